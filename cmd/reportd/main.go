// Command reportd runs the issue report service and its maintenance tasks.
package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "reportd",
		Usage: "Community issue report service",
		Commands: []*cli.Command{
			serveCommand,
			seedCommand,
			checkCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("reportd failed", "error", err)
		os.Exit(1)
	}
}
