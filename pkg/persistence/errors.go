// Package persistence provides standardized error types for store operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound indicates no run result exists for the given id.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunAlreadyExists indicates a run result with the same id is stored.
	ErrRunAlreadyExists = errors.New("run already exists")
)

// StoreError wraps store failures with operation context.
type StoreError struct {
	Op    string // Operation being performed (e.g. "SaveRun", "RunByID")
	RunID string
	Err   error
}

func (e *StoreError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s failed for run %s: %v", e.Op, e.RunID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsRunNotFound reports whether err means the run does not exist.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
