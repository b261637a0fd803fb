// Package catalog keeps a queryable SQLite index of completed runs so
// operators can inspect acquisition history without walking run directories.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"NewsWatch/internal/domain"
	"NewsWatch/internal/ports"
)

// SQLiteCatalog persists run summaries in a single-file database.
type SQLiteCatalog struct {
	db *sql.DB
}

var _ ports.Catalog = (*SQLiteCatalog)(nil)

// Open creates or opens the catalog database and ensures its schema.
func Open(path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		discovered INTEGER NOT NULL,
		fetched INTEGER NOT NULL,
		shortlisted INTEGER NOT NULL,
		failed_extractions INTEGER NOT NULL,
		endpoint_failures INTEGER NOT NULL,
		note TEXT
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

// Close releases the database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Record upserts one run summary.
func (c *SQLiteCatalog) Record(ctx context.Context, summary domain.RunSummary) error {
	query, args, err := sq.Insert("runs").
		Columns("run_id", "created_at", "discovered", "fetched", "shortlisted",
			"failed_extractions", "endpoint_failures", "note").
		Values(summary.RunID, summary.CreatedAt.UTC().Format(time.RFC3339),
			summary.Discovered, summary.Fetched, summary.Shortlisted,
			summary.FailedExtractions, summary.EndpointFailures, summary.Note).
		Suffix(`ON CONFLICT (run_id) DO UPDATE SET
			discovered = excluded.discovered,
			fetched = excluded.fetched,
			shortlisted = excluded.shortlisted,
			failed_extractions = excluded.failed_extractions,
			endpoint_failures = excluded.endpoint_failures,
			note = excluded.note`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the latest run summaries, newest first.
func (c *SQLiteCatalog) Recent(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := sq.Select("run_id", "created_at", "discovered", "fetched",
		"shortlisted", "failed_extractions", "endpoint_failures", "note").
		From("runs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var (
			s       domain.RunSummary
			created string
		)
		if err := rows.Scan(&s.RunID, &created, &s.Discovered, &s.Fetched,
			&s.Shortlisted, &s.FailedExtractions, &s.EndpointFailures, &s.Note); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			s.CreatedAt = t
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Totals aggregates acquisition volume across all recorded runs.
func (c *SQLiteCatalog) Totals(ctx context.Context) (runs, fetched, shortlisted int, err error) {
	query, args, err := sq.Select(
		"COUNT(*)", "COALESCE(SUM(fetched), 0)", "COALESCE(SUM(shortlisted), 0)").
		From("runs").
		ToSql()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("build totals: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&runs, &fetched, &shortlisted); err != nil {
		return 0, 0, 0, fmt.Errorf("query totals: %w", err)
	}
	return runs, fetched, shortlisted, nil
}
