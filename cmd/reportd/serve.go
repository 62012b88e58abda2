package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	httpadapter "github.com/couchcryptid/issue-report-service/internal/adapter/http"
	"github.com/couchcryptid/issue-report-service/internal/config"
	"github.com/couchcryptid/issue-report-service/internal/events"
	"github.com/couchcryptid/issue-report-service/internal/geocoding"
	"github.com/couchcryptid/issue-report-service/internal/observability"
	"github.com/couchcryptid/issue-report-service/internal/reports"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP API",
	Action: serve,
}

func serve(_ *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open report repository: %w", err)
	}
	defer closeQuietly(logger, "repository", closeRepo)
	logger.Info("report repository ready", "backend", cfg.StorageBackend)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	logger.Info("blob store ready", "backend", cfg.BlobBackend)

	pub, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect event backend: %w", err)
	}

	var opts []reports.Option
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatchDone := make(chan struct{})
	if pub != nil {
		dispatcher := events.NewDispatcher(pub, cfg.EventsBuffer, cfg.BatchSize, cfg.BatchFlushInterval, logger, metrics)
		opts = append(opts, reports.WithEvents(dispatcher))
		go func() {
			defer close(dispatchDone)
			if err := dispatcher.Run(dispatchCtx); err != nil {
				logger.Error("event dispatcher error", "error", err)
			}
		}()
		logger.Info("report events enabled", "backend", cfg.EventsBackend)
	} else {
		close(dispatchDone)
	}

	store := reports.New(repo, blobs, logger, metrics, opts...)
	gateway := geocoding.NewGateway(newGeocoder(cfg, metrics, logger), cfg.GeocodeTimeout, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, gateway, cfg.MaxUploadBytes, logger, metrics)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		logger.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Handlers have returned, so no further events can be queued.
	stopDispatch()
	<-dispatchDone
	if pub != nil {
		closeQuietly(logger, "event publisher", pub.Close)
	}

	logger.Info("shutdown complete")
	return err
}

func closeQuietly(logger *slog.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error(name+" close error", "error", err)
	}
}
