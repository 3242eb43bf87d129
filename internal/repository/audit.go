// Package repository persists match audit records: every match's RNG seed
// at creation and its outcome at completion, so any shuffle can be
// reproduced after the fact.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MatchAuditStore records match lifecycle events.
type MatchAuditStore interface {
	RecordCreated(ctx context.Context, matchID, seed string) error
	RecordFinished(ctx context.Context, matchID, winner string, turns int) error
	Close()
}

// PostgresAuditStore writes audit rows through a pgx connection pool.
type PostgresAuditStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS match_audit (
	match_id    TEXT PRIMARY KEY,
	seed        TEXT NOT NULL,
	winner      TEXT,
	turns       INT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
)`

// NewPostgresAuditStore connects to url and ensures the audit table
// exists.
func NewPostgresAuditStore(ctx context.Context, url string, logger *zap.Logger) (*PostgresAuditStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresAuditStore{pool: pool, logger: logger}, nil
}

// RecordCreated inserts the match's seed row at creation time.
func (s *PostgresAuditStore) RecordCreated(ctx context.Context, matchID, seed string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_audit (match_id, seed) VALUES ($1, $2)
		 ON CONFLICT (match_id) DO NOTHING`,
		matchID, seed,
	)
	if err != nil {
		return fmt.Errorf("record match created: %w", err)
	}
	return nil
}

// RecordFinished stores the outcome of a completed match.
func (s *PostgresAuditStore) RecordFinished(ctx context.Context, matchID, winner string, turns int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE match_audit
		 SET winner = $2, turns = $3, finished_at = now()
		 WHERE match_id = $1`,
		matchID, winner, turns,
	)
	if err != nil {
		return fmt.Errorf("record match finished: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresAuditStore) Close() {
	s.pool.Close()
}

// NopAuditStore discards all records. Used when no database is
// configured.
type NopAuditStore struct{}

func (NopAuditStore) RecordCreated(context.Context, string, string) error       { return nil }
func (NopAuditStore) RecordFinished(context.Context, string, string, int) error { return nil }
func (NopAuditStore) Close()                                                    {}
