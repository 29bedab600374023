package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"smtpx/internal/enum"
)

// Store persists finalized run reports to PostgreSQL, so results survive the
// assessor's terminal session. The in-memory run state itself is never
// persisted; only the final report is.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres, verifies the connection and applies migrations.
func Open(ctx context.Context, connString string) (*Store, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(initCtx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(initCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(initCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the tables if they don't exist.
func (s *Store) migrate(ctx context.Context) error {
	queryRuns := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		method TEXT NOT NULL,
		probed INT NOT NULL,
		valid_count INT NOT NULL,
		failed_count INT NOT NULL,
		elapsed_ms BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);`

	queryValid := `
	CREATE TABLE IF NOT EXISTS valid_users (
		id SERIAL PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id),
		address TEXT NOT NULL
	);`

	if _, err := s.pool.Exec(ctx, queryRuns); err != nil {
		return fmt.Errorf("migration failed (runs): %w", err)
	}
	if _, err := s.pool.Exec(ctx, queryValid); err != nil {
		return fmt.Errorf("migration failed (valid_users): %w", err)
	}
	return nil
}

// SaveReport writes the run row and its valid users in one transaction.
func (s *Store) SaveReport(ctx context.Context, r enum.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (id, target, method, probed, valid_count, failed_count, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.RunID, r.Target, string(r.Method), r.Probed, len(r.ValidUsers), r.FailedCount, r.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	for _, addr := range r.ValidUsers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO valid_users (run_id, address) VALUES ($1, $2)
		`, r.RunID, addr); err != nil {
			return fmt.Errorf("save valid user %s: %w", addr, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}
