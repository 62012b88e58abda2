package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/couchcryptid/issue-report-service/internal/config"
	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/observability"
)

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "Verify stored reports and their image references",
	Action: func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := observability.NewLogger(cfg)
		ctx := c.Context

		repo, closeRepo, err := openRepository(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open report repository: %w", err)
		}
		defer closeQuietly(logger, "repository", closeRepo)

		blobs, err := openBlobStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}

		all, err := repo.All(ctx)
		if err != nil {
			return fmt.Errorf("load reports: %w", err)
		}

		phases := runChecks(ctx, all, blobs)
		if !printPhases(os.Stdout, len(all), phases) {
			return cli.Exit("", 1)
		}
		return nil
	},
}

// blobChecker answers whether a referenced image is stored.
type blobChecker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// phase tracks pass/fail for one group of checks.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runChecks(ctx context.Context, all []domain.Report, blobs blobChecker) []*phase {
	return []*phase{
		checkIdentifiers(all),
		checkStatuses(all),
		checkFields(all),
		checkImages(ctx, all, blobs),
	}
}

func checkIdentifiers(all []domain.Report) *phase {
	p := &phase{name: "Identifiers"}
	seen := make(map[string]int, len(all))
	for i, r := range all {
		if r.ID == "" {
			p.errorf("report #%d has no id", i)
			continue
		}
		if first, dup := seen[r.ID]; dup {
			p.errorf("report #%d repeats id %s of report #%d", i, r.ID, first)
			continue
		}
		seen[r.ID] = i
	}
	return p
}

func checkStatuses(all []domain.Report) *phase {
	p := &phase{name: "Statuses"}
	for _, r := range all {
		if !r.Status.Valid() {
			p.errorf("%s: invalid status %q", r.ID, r.Status)
		}
		if r.UpdatedAt != nil && r.UpdatedAt.Before(r.Timestamp) {
			p.errorf("%s: updated_at precedes timestamp", r.ID)
		}
	}
	return p
}

func checkFields(all []domain.Report) *phase {
	p := &phase{name: "Fields"}
	for _, r := range all {
		if r.Timestamp.IsZero() {
			p.errorf("%s: missing timestamp", r.ID)
		}
		if r.IssueType != domain.CustomIssueType && r.CustomIssue != "" {
			p.errorf("%s: custom_issue set for issue type %q", r.ID, r.IssueType)
		}
		if (r.Latitude == nil) != (r.Longitude == nil) {
			p.errorf("%s: only one of latitude and longitude is set", r.ID)
		}
	}
	return p
}

func checkImages(ctx context.Context, all []domain.Report, blobs blobChecker) *phase {
	p := &phase{name: "Images"}
	for _, r := range all {
		if !r.HasImage() {
			continue
		}
		name := *r.ImageFilename
		if !domain.ValidBlobName(name) {
			p.errorf("%s: image name %q is not a generated blob name", r.ID, name)
			continue
		}
		ok, err := blobs.Exists(ctx, name)
		if err != nil {
			p.errorf("%s: check image %s: %v", r.ID, name, err)
			continue
		}
		if !ok {
			p.errorf("%s: image %s is missing", r.ID, name)
		}
	}
	return p
}

// printPhases writes a summary followed by every failure and reports
// whether all phases passed.
func printPhases(w io.Writer, total int, phases []*phase) bool {
	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-16s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nReports checked: %d\n", total)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll checks passed.")
		return true
	}
	fmt.Fprintln(w, "\nCheck FAILED.")
	return false
}
