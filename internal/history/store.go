// Package history persists one row per pipeline run. It is optional
// observability: callers log store failures and keep processing.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/formintake/formintake/constants"
	"github.com/formintake/formintake/internal/common"
)

// Run is one recorded pipeline run.
type Run struct {
	ID           string
	SourcePath   string
	Status       constants.RunStatus
	Pages        int
	Fields       int
	OutputPath   string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// timeLayout is RFC 3339 with a fixed-width fraction so stored timestamps
// order lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS intake_run (
	id            TEXT PRIMARY KEY,
	source_path   TEXT NOT NULL,
	status        TEXT NOT NULL,
	pages         INTEGER NOT NULL DEFAULT 0,
	fields        INTEGER NOT NULL DEFAULT 0,
	output_path   TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL
)`

// Store records runs in postgres (postgres:// DSNs, via pgx) or embedded
// sqlite (anything else, e.g. a file path or :memory:). One schema serves
// both.
type Store struct {
	db   *sql.DB
	pool *pgxpool.Pool // nil for sqlite
	log  *slog.Logger
}

// Open connects, creates the schema if missing, and returns the store.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{log: logger}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		pc, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, common.ConfigurationFault(fmt.Sprintf("history_dsn %q", dsn), err)
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "formintake"
		pool, err := pgxpool.NewWithConfig(ctx, pc)
		if err != nil {
			return nil, common.WrapError(err, "connect history store")
		}
		s.pool = pool
		s.db = stdlib.OpenDBFromPool(pool)
	} else {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, common.WrapError(err, fmt.Sprintf("open history store %s", dsn))
		}
		// single writer; also pins :memory: stores to one connection
		db.SetMaxOpenConns(1)
		s.db = db
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		_ = s.Close()
		return nil, common.WrapError(err, "create history schema")
	}
	s.log.Debug("history store ready", "dsn", dsn)
	return s, nil
}

func (s *Store) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// RecordRun inserts one finished run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO intake_run
	(id, source_path, status, pages, fields, output_path, error_message, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.SourcePath, string(run.Status), run.Pages, run.Fields,
		run.OutputPath, run.ErrorMessage,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		s.log.Error("history record failed", "run_id", run.ID, "error", err)
		return common.WrapError(err, fmt.Sprintf("record run %s", run.ID))
	}
	s.log.Debug("history run recorded", "run_id", run.ID, "status", string(run.Status))
	return nil
}

// RecentRuns lists the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, source_path, status, pages, fields, output_path, error_message, started_at, finished_at
FROM intake_run
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, common.WrapError(err, "list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status, started, finished string
		if err := rows.Scan(&r.ID, &r.SourcePath, &status, &r.Pages, &r.Fields,
			&r.OutputPath, &r.ErrorMessage, &started, &finished); err != nil {
			return nil, common.WrapError(err, "scan run")
		}
		r.Status = constants.RunStatus(status)
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
