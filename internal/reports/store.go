// Package reports implements the report store: creation with optional image
// upload, filtered listing, status transitions and deletion with blob
// cleanup.
package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/observability"
)

// Submission carries the raw client fields of a new report.
type Submission struct {
	IssueType   string `form:"issueType"`
	CustomIssue string `form:"customIssue"`
	Description string `form:"description"`
	Location    string `form:"location"`
	Latitude    string `form:"latitude"`
	Longitude   string `form:"longitude"`
}

// Upload is an image attached to a submission.
type Upload struct {
	Filename string
	Content  io.Reader
}

// EventPublisher receives lifecycle events. Implementations must not block.
type EventPublisher interface {
	Publish(event domain.ReportEvent)
}

// Store coordinates the repository, blob sink and event publisher.
// Read-modify-write sequences are serialized so concurrent status updates and
// deletes cannot lose each other's writes.
type Store struct {
	repo    domain.Repository
	blobs   domain.BlobSink
	events  EventPublisher
	clock   clockwork.Clock
	newID   func() string
	logger  *slog.Logger
	metrics *observability.Metrics
	mu      sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithEvents routes lifecycle events to p.
func WithEvents(p EventPublisher) Option {
	return func(s *Store) { s.events = p }
}

// WithClock sets the time source for report and event timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator replaces the UUIDv4 report id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a Store. Events are discarded unless WithEvents is given.
func New(repo domain.Repository, blobs domain.BlobSink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Store {
	s := &Store{
		repo:    repo,
		blobs:   blobs,
		events:  discardEvents{},
		clock:   clockwork.NewRealClock(),
		newID:   uuid.NewString,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates sub, stores the optional upload and persists a new
// pending report. A missing or rejected upload leaves ImageFilename nil.
func (s *Store) Create(ctx context.Context, sub Submission, upload *Upload) (domain.Report, error) {
	lat, err := parseCoordinate("latitude", sub.Latitude)
	if err != nil {
		return domain.Report{}, err
	}
	lon, err := parseCoordinate("longitude", sub.Longitude)
	if err != nil {
		return domain.Report{}, err
	}

	report := domain.Report{
		ID:          s.newID(),
		Timestamp:   s.now(),
		IssueType:   sub.IssueType,
		Description: sub.Description,
		Location:    sub.Location,
		Latitude:    lat,
		Longitude:   lon,
		Status:      domain.StatusPending,
	}
	if sub.IssueType == domain.CustomIssueType {
		report.CustomIssue = sub.CustomIssue
	}

	name, err := s.storeImage(ctx, upload)
	if err != nil {
		return domain.Report{}, err
	}
	if name != "" {
		report.ImageFilename = &name
	}

	s.mu.Lock()
	err = s.repo.Insert(ctx, report)
	s.mu.Unlock()
	if err != nil {
		s.discardImage(ctx, report)
		return domain.Report{}, s.storageError(ctx, "create", "save report", err, "report_id", report.ID)
	}

	s.metrics.ReportsCreated.Inc()
	s.logger.InfoContext(ctx, "report created", "report_id", report.ID, "issue_type", report.IssueType, "has_image", report.HasImage())
	s.events.Publish(domain.NewReportEvent(domain.EventReportCreated, report, report.Timestamp))
	return report, nil
}

// List returns reports newest first. An empty status returns everything; any
// other value is matched exactly, so an unknown status yields no reports.
func (s *Store) List(ctx context.Context, status string) ([]domain.Report, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, s.storageError(ctx, "list", "load reports", err)
	}

	out := make([]domain.Report, 0, len(all))
	for _, r := range all {
		if status == "" || string(r.Status) == status {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Report) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

// Get returns a single report.
func (s *Store) Get(ctx context.Context, id string) (domain.Report, error) {
	report, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Report{}, domain.ErrReportNotFound
	}
	if err != nil {
		return domain.Report{}, s.storageError(ctx, "get", "load report", err, "report_id", id)
	}
	return report, nil
}

// UpdateStatus moves a report to status and stamps UpdatedAt. The status is
// validated before the report is looked up.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) (domain.Report, error) {
	next, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.Get(ctx, id)
	if err != nil {
		return domain.Report{}, err
	}

	prev := report.Status
	now := s.now()
	report.Status = next
	report.UpdatedAt = &now

	if err := s.repo.Update(ctx, report); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Report{}, domain.ErrReportNotFound
		}
		return domain.Report{}, s.storageError(ctx, "update_status", "save report", err, "report_id", id)
	}

	s.metrics.StatusUpdates.WithLabelValues(string(next)).Inc()
	s.logger.InfoContext(ctx, "report status updated", "report_id", id, "from", prev, "to", next)

	evt := domain.NewReportEvent(domain.EventReportStatusUpdated, report, now)
	evt.OldStatus = prev
	s.events.Publish(evt)
	return report, nil
}

// Delete removes a report and its image. Blob failures are logged and
// counted but never block removal of the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if report.HasImage() {
		if err := s.blobs.Remove(ctx, *report.ImageFilename); err != nil {
			s.metrics.BlobCleanupFailures.Inc()
			s.logger.WarnContext(ctx, "remove report image failed",
				"report_id", id,
				"image", *report.ImageFilename,
				"error", err,
			)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrReportNotFound
		}
		return s.storageError(ctx, "delete", "remove report", err, "report_id", id)
	}

	s.metrics.ReportsDeleted.Inc()
	s.logger.InfoContext(ctx, "report deleted", "report_id", id)
	s.events.Publish(domain.NewReportEvent(domain.EventReportDeleted, report, s.now()))
	return nil
}

// Image opens a stored image by its generated name.
func (s *Store) Image(ctx context.Context, filename string) (io.ReadCloser, error) {
	if !domain.ValidBlobName(filename) {
		return nil, domain.ErrImageNotFound
	}
	rc, err := s.blobs.Retrieve(ctx, filename)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrImageNotFound
	}
	if err != nil {
		return nil, s.storageError(ctx, "image", "load image", err, "image", filename)
	}
	return rc, nil
}

// CheckReadiness reports whether the repository is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("report repository unavailable: %w", err)
	}
	return nil
}

// storeImage hands an accepted upload to the blob sink and returns its name,
// or "" when there is nothing to keep.
func (s *Store) storeImage(ctx context.Context, upload *Upload) (string, error) {
	if upload == nil || upload.Filename == "" || upload.Content == nil {
		return "", nil
	}
	if _, ok := domain.ImageExt(upload.Filename); !ok {
		s.metrics.ImagesRejected.Inc()
		s.logger.InfoContext(ctx, "ignoring upload with disallowed type", "filename", upload.Filename)
		return "", nil
	}

	name, err := s.blobs.Store(ctx, upload.Content, upload.Filename)
	if errors.Is(err, domain.ErrValidation) {
		s.metrics.ImagesRejected.Inc()
		s.logger.InfoContext(ctx, "ignoring rejected upload", "filename", upload.Filename, "reason", err)
		return "", nil
	}
	if err != nil {
		return "", s.storageError(ctx, "create", "store image", err)
	}
	s.metrics.ImagesStored.Inc()
	return name, nil
}

// discardImage removes the blob of a report that failed to persist.
func (s *Store) discardImage(ctx context.Context, report domain.Report) {
	if !report.HasImage() {
		return
	}
	if err := s.blobs.Remove(ctx, *report.ImageFilename); err != nil {
		s.metrics.BlobCleanupFailures.Inc()
		s.logger.WarnContext(ctx, "remove orphaned image failed", "image", *report.ImageFilename, "error", err)
	}
}

// now is truncated to microseconds, the finest precision the SQL backends
// keep, so a returned report matches what a later read yields.
func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *Store) storageError(ctx context.Context, op, desc string, cause error, attrs ...any) error {
	s.metrics.StorageErrors.WithLabelValues(op).Inc()
	s.logger.ErrorContext(ctx, desc+" failed", append(attrs, "error", cause)...)
	return domain.StorageError(desc)
}

// parseCoordinate converts an optional numeric field. Blank input is nil.
func parseCoordinate(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrValidation, field)
	}
	return &v, nil
}

type discardEvents struct{}

func (discardEvents) Publish(domain.ReportEvent) {}
