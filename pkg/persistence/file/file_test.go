package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/models"
	"github.com/taskline/taskline/pkg/persistence"
)

func sampleResult(runID string) *engine.RunResult {
	return &engine.RunResult{
		RunID:        runID,
		WorkflowID:   "wf-1",
		WorkflowName: "sample",
		Status:       models.WorkflowStatusSuccess,
		Tasks: map[string]*engine.TaskSnapshot{
			"a": {
				ID:     "a",
				Name:   "A",
				Status: models.TaskStatusSuccess,
				Output: models.NewSuccess(map[string]any{"value": "ok"}),
			},
		},
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	result := sampleResult("run-1")
	require.NoError(t, store.SaveRun(ctx, result))

	loaded, err := store.RunByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, result.RunID, loaded.RunID)
	assert.Equal(t, result.Status, loaded.Status)
	require.Contains(t, loaded.Tasks, "a")
	assert.Equal(t, models.TaskStatusSuccess, loaded.Tasks["a"].Status)
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	result := sampleResult("run-1")
	require.NoError(t, store.SaveRun(ctx, result))

	result.Status = models.WorkflowStatusFailed
	require.NoError(t, store.SaveRun(ctx, result))

	loaded, err := store.RunByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusFailed, loaded.Status)
}

func TestStore_RunByID_NotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.RunByID(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, persistence.IsRunNotFound(err))
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestStore_Runs(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	require.NoError(t, store.SaveRun(ctx, sampleResult("run-1")))
	require.NoError(t, store.SaveRun(ctx, sampleResult("run-2")))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_Runs_EmptyRoot(t *testing.T) {
	store := NewStore(t.TempDir())

	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewStore_StripsFileScheme(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("file://" + dir)

	require.NoError(t, store.SaveRun(context.Background(), sampleResult("run-1")))

	loaded, err := store.RunByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
}

func TestStore_HealthCheck(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, NewStore(dir).HealthCheck(context.Background()))
	assert.Error(t, NewStore(dir+"/missing").HealthCheck(context.Background()))
}
