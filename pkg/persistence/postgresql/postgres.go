// Package postgresql provides PostgreSQL run result storage.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/persistence"
)

// Store implements persistence.Store on PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects, pings and migrates the schema.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: database, logger: logger}

	if err := store.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *Store) SaveRun(ctx context.Context, result *engine.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: result.RunID, Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow_id, workflow_name, status, started_at, finished_at, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			result = EXCLUDED.result
	`, result.RunID, result.WorkflowID, result.WorkflowName, string(result.Status),
		result.StartedAt, result.FinishedAt, payload)
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: result.RunID, Err: err}
	}

	return nil
}

func (s *Store) RunByID(ctx context.Context, runID string) (*engine.RunResult, error) {
	var payload []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM runs WHERE run_id = $1`, runID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.StoreError{Op: "RunByID", RunID: runID, Err: persistence.ErrRunNotFound}
	}

	if err != nil {
		return nil, &persistence.StoreError{Op: "RunByID", RunID: runID, Err: err}
	}

	var result engine.RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, &persistence.StoreError{Op: "RunByID", RunID: runID, Err: err}
	}

	return &result, nil
}

func (s *Store) Runs(ctx context.Context) ([]*engine.RunResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, &persistence.StoreError{Op: "Runs", Err: err}
	}
	defer rows.Close()

	var results []*engine.RunResult

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, &persistence.StoreError{Op: "Runs", Err: err}
		}

		var result engine.RunResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, &persistence.StoreError{Op: "Runs", Err: err}
		}

		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.StoreError{Op: "Runs", Err: err}
	}

	return results, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
