package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	err := &StoreError{Op: "RunByID", RunID: "run-1", Err: ErrRunNotFound}

	assert.Equal(t, "RunByID failed for run run-1: run not found", err.Error())
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.True(t, IsRunNotFound(err))
}

func TestStoreError_NoRunID(t *testing.T) {
	err := &StoreError{Op: "Runs", Err: errors.New("disk full")}

	assert.Equal(t, "Runs failed: disk full", err.Error())
	assert.False(t, IsRunNotFound(err))
}
