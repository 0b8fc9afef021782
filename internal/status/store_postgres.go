package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"globaldata/pkg/platform/sentinel"
	txcontext "globaldata/pkg/platform/tx"
)

// PostgresStore persists the status record and run history in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed status store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Get returns the freshness record, or sentinel.ErrNotFound when no refresh
// has ever completed.
func (s *PostgresStore) Get(ctx context.Context) (*Status, error) {
	var st Status
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT id, last_updated FROM api_status ORDER BY id LIMIT 1`,
	).Scan(&st.ID, &st.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &st, nil
}

// Touch sets the freshness timestamp, creating the single row on first use.
// The fixed id keeps the table single-row under concurrent refreshes.
func (s *PostgresStore) Touch(ctx context.Context, at time.Time) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO api_status (id, last_updated)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_updated = EXCLUDED.last_updated
	`, at)
	if err != nil {
		return fmt.Errorf("touch status: %w", err)
	}
	return nil
}

// RecordRun appends one refresh run to the history.
func (s *PostgresStore) RecordRun(ctx context.Context, run RefreshRun) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO refresh_runs (id, started_at, finished_at, inserted, updated, total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.StartedAt, run.FinishedAt, run.Inserted, run.Updated, run.Total)
	if err != nil {
		return fmt.Errorf("record refresh run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent refresh runs, newest first.
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]RefreshRun, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, started_at, finished_at, inserted, updated, total
		FROM refresh_runs
		ORDER BY finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list refresh runs: %w", err)
	}
	defer rows.Close()

	var runs []RefreshRun
	for rows.Next() {
		var r RefreshRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Inserted, &r.Updated, &r.Total); err != nil {
			return nil, fmt.Errorf("scan refresh run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh runs: %w", err)
	}
	return runs, nil
}
