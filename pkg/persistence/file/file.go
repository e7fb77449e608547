// Package file provides file-based run result storage: one JSON document
// per run below the configured root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/persistence"
)

const runsDir = "runs"

// Store implements persistence.Store on the local filesystem.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Store{root: cleanRoot}
}

func (s *Store) SaveRun(_ context.Context, result *engine.RunResult) error {
	dir := filepath.Join(s.root, runsDir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: result.RunID, Err: err}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: result.RunID, Err: err}
	}

	path := filepath.Join(dir, result.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &persistence.StoreError{Op: "SaveRun", RunID: result.RunID, Err: err}
	}

	return nil
}

func (s *Store) RunByID(_ context.Context, runID string) (*engine.RunResult, error) {
	path := filepath.Join(s.root, runsDir, runID+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.StoreError{Op: "RunByID", RunID: runID, Err: persistence.ErrRunNotFound}
		}

		return nil, &persistence.StoreError{Op: "RunByID", RunID: runID, Err: err}
	}

	var result engine.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &persistence.StoreError{Op: "RunByID", RunID: runID, Err: err}
	}

	return &result, nil
}

func (s *Store) Runs(_ context.Context) ([]*engine.RunResult, error) {
	dir := filepath.Join(s.root, runsDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, &persistence.StoreError{Op: "Runs", Err: err}
	}

	var results []*engine.RunResult

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		runID := strings.TrimSuffix(entry.Name(), ".json")

		result, err := s.RunByID(context.Background(), runID)
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
		}

		results = append(results, result)
	}

	return results, nil
}

// HealthCheck verifies the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file storage there is nothing
// to clean up.
func (s *Store) Close(_ context.Context) error {
	return nil
}
