// Package redis provides Redis run result storage, useful when several
// runner processes share one result archive.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/persistence"
)

const (
	runKeyPrefix = "taskline:runs:"
	runIndexKey  = "taskline:runs"
)

// Store implements persistence.Store on Redis: one JSON value per run plus
// a set index for listing.
type Store struct {
	client goredis.UniversalClient
}

func NewStore(redisURL string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &Store{client: goredis.NewClient(opts)}, nil
}

// NewStoreWithClient wraps an existing client; used by tests.
func NewStoreWithClient(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) SaveRun(ctx context.Context, result *engine.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: result.RunID, Err: err}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, runKeyPrefix+result.RunID, payload, 0)
	pipe.SAdd(ctx, runIndexKey, result.RunID)

	if _, err := pipe.Exec(ctx); err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: result.RunID, Err: err}
	}

	return nil
}

func (s *Store) RunByID(ctx context.Context, runID string) (*engine.RunResult, error) {
	payload, err := s.client.Get(ctx, runKeyPrefix+runID).Bytes()
	if errors.Is(err, goredis.Nil) {
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
	runIDs, err := s.client.SMembers(ctx, runIndexKey).Result()
	if err != nil {
		return nil, &persistence.StoreError{Op: "Runs", Err: err}
	}

	var results []*engine.RunResult

	for _, runID := range runIDs {
		result, err := s.RunByID(ctx, runID)
		if err != nil {
			if persistence.IsRunNotFound(err) {
				continue
			}

			return nil, err
		}

		results = append(results, result)
	}

	return results, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
