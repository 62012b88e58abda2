// Package sqlstore persists reports row by row in MySQL or Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

const reportsTable = "reports"

var reportColumns = []string{
	"id",
	"reported_at",
	"issue_type",
	"custom_issue",
	"description",
	"location",
	"latitude",
	"longitude",
	"image_filename",
	"status",
	"updated_at",
}

// Repository implements domain.Repository on a SQL table. Insertion order is
// kept by an auto-increment seq column.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

// Open connects to the database named by dsn and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Repository, error) {
	driver, dsn, err := driverDSN(dialect, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return New(db, dialect), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect Dialect) *Repository {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == Postgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &Repository{db: db, dialect: dialect, builder: builder}
}

// driverDSN maps a dialect to its registered driver. MySQL DSNs are forced to
// parse DATETIME columns into time.Time in UTC.
func driverDSN(dialect Dialect, dsn string) (string, string, error) {
	switch dialect {
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return "mysql", cfg.FormatDSN(), nil
	case Postgres:
		return "pgx", dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the reports table when it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema[r.dialect] {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// All returns every report in insertion order.
func (r *Repository) All(ctx context.Context) ([]domain.Report, error) {
	query, args, err := r.builder.
		Select(reportColumns...).
		From(reportsTable).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	reports := []domain.Report{}
	if err := sqlscan.Select(ctx, r.db, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("select reports: %w", err)
	}
	return reports, nil
}

// Get returns the report with the given id.
func (r *Repository) Get(ctx context.Context, id string) (domain.Report, error) {
	query, args, err := r.builder.
		Select(reportColumns...).
		From(reportsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Report{}, fmt.Errorf("build select: %w", err)
	}

	var report domain.Report
	if err := sqlscan.Get(ctx, r.db, &report, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return domain.Report{}, domain.ErrReportNotFound
		}
		return domain.Report{}, fmt.Errorf("select report %s: %w", id, err)
	}
	return report, nil
}

// Insert adds a new row.
func (r *Repository) Insert(ctx context.Context, report domain.Report) error {
	_, err := r.builder.
		Insert(reportsTable).
		Columns(reportColumns...).
		Values(
			report.ID,
			report.Timestamp,
			report.IssueType,
			report.CustomIssue,
			report.Description,
			report.Location,
			report.Latitude,
			report.Longitude,
			report.ImageFilename,
			report.Status,
			report.UpdatedAt,
		).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", report.ID, err)
	}
	return nil
}

// Update writes the mutable lifecycle fields of report.
func (r *Repository) Update(ctx context.Context, report domain.Report) error {
	res, err := r.builder.
		Update(reportsTable).
		Set("status", report.Status).
		Set("updated_at", report.UpdatedAt).
		Where(sq.Eq{"id": report.ID}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update report %s: %w", report.ID, err)
	}
	return requireAffected(res, report.ID)
}

// Delete removes the row with the given id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.builder.
		Delete(reportsTable).
		Where(sq.Eq{"id": id}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for report %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}
