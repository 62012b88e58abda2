package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/couchcryptid/issue-report-service/internal/config"
	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/observability"
)

// legacyTimestamp is the zone-less ISO-8601 layout of older data files.
// Such values are read as UTC.
const legacyTimestamp = "2006-01-02T15:04:05.999999999"

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Import reports from a JSON fixture file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Aliases:  []string{"f"},
			Usage:    "Path to a JSON array of reports",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := observability.NewLogger(cfg)
		ctx := c.Context

		f, err := os.Open(c.String("file"))
		if err != nil {
			return fmt.Errorf("open fixtures: %w", err)
		}
		defer f.Close()

		fixtures, err := loadFixtures(f, uuid.NewString, time.Now().UTC())
		if err != nil {
			return err
		}

		repo, closeRepo, err := openRepository(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open report repository: %w", err)
		}
		defer closeQuietly(logger, "repository", closeRepo)

		inserted, skipped, err := seedReports(ctx, repo, fixtures)
		if err != nil {
			return err
		}
		logger.Info("seed complete", "inserted", inserted, "skipped", skipped, "backend", cfg.StorageBackend)
		return nil
	},
}

// fixture is a report as written in seed files. Timestamps stay raw so both
// RFC 3339 and legacy zone-less values can be accepted.
type fixture struct {
	ID            string   `json:"id"`
	Timestamp     string   `json:"timestamp"`
	IssueType     string   `json:"issue_type"`
	CustomIssue   string   `json:"custom_issue"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	ImageFilename *string  `json:"image_filename"`
	Status        string   `json:"status"`
	UpdatedAt     string   `json:"updated_at"`
}

// loadFixtures decodes and normalizes seed reports. Missing ids are
// generated, missing timestamps default to now and a blank status means
// pending.
func loadFixtures(r io.Reader, newID func() string, now time.Time) ([]domain.Report, error) {
	var raw []fixture
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	out := make([]domain.Report, 0, len(raw))
	for i, fx := range raw {
		report, err := fx.toReport(newID, now)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		out = append(out, report)
	}
	return out, nil
}

func (fx fixture) toReport(newID func() string, now time.Time) (domain.Report, error) {
	report := domain.Report{
		ID:            fx.ID,
		Timestamp:     now,
		IssueType:     fx.IssueType,
		Description:   fx.Description,
		Location:      fx.Location,
		Latitude:      fx.Latitude,
		Longitude:     fx.Longitude,
		ImageFilename: fx.ImageFilename,
		Status:        domain.StatusPending,
	}
	if report.ID == "" {
		report.ID = newID()
	}
	if fx.IssueType == domain.CustomIssueType {
		report.CustomIssue = fx.CustomIssue
	}
	if report.ImageFilename != nil && *report.ImageFilename == "" {
		report.ImageFilename = nil
	}

	if fx.Status != "" {
		status, err := domain.ParseStatus(fx.Status)
		if err != nil {
			return domain.Report{}, err
		}
		report.Status = status
	}

	if fx.Timestamp != "" {
		ts, err := parseTimestamp(fx.Timestamp)
		if err != nil {
			return domain.Report{}, fmt.Errorf("timestamp: %w", err)
		}
		report.Timestamp = ts
	}
	if fx.UpdatedAt != "" {
		ts, err := parseTimestamp(fx.UpdatedAt)
		if err != nil {
			return domain.Report{}, fmt.Errorf("updated_at: %w", err)
		}
		report.UpdatedAt = &ts
	}
	return report, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(legacyTimestamp, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
	}
	return ts, nil
}

// seedReports inserts fixtures whose ids are not stored yet.
func seedReports(ctx context.Context, repo domain.Repository, fixtures []domain.Report) (inserted, skipped int, err error) {
	for _, report := range fixtures {
		_, err := repo.Get(ctx, report.ID)
		switch {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return inserted, skipped, fmt.Errorf("look up report %s: %w", report.ID, err)
		}
		if err := repo.Insert(ctx, report); err != nil {
			return inserted, skipped, fmt.Errorf("insert report %s: %w", report.ID, err)
		}
		inserted++
	}
	return inserted, skipped, nil
}
