package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskline/taskline/pkg/models"
)

func TestEngine_RunParallel_Diamond(t *testing.T) {
	producer := &stubTool{id: "produce", fn: func(_ context.Context, _ map[string]any) (any, error) {
		return map[string]any{"value": "seed"}, nil
	}}
	echo := &stubTool{id: "echo", fn: func(_ context.Context, input map[string]any) (any, error) {
		return map[string]any{"value": input["value"]}, nil
	}}
	join := &stubTool{id: "join", fn: func(_ context.Context, input map[string]any) (any, error) {
		return map[string]any{"left": input["left"], "right": input["right"]}, nil
	}}

	wf := models.NewWorkflow("wf-1", "diamond")
	require.NoError(t, wf.AddTask(toolTask("a", "produce")))

	b := toolTask("b", "echo", dep("a"))
	b.InputData = map[string]any{"value": "${a.result.value}"}
	require.NoError(t, wf.AddTask(b))

	c := toolTask("c", "echo", dep("a"))
	c.InputData = map[string]any{"value": "${a.result.value}"}
	require.NoError(t, wf.AddTask(c))

	d := toolTask("d", "join", dep("b"), dep("c"))
	d.InputData = map[string]any{
		"left":  "${b.result.value}",
		"right": "${c.result.value}",
	}
	require.NoError(t, wf.AddTask(d))

	eng := newTestEngine(newTestRegistry(producer, echo, join))
	result := eng.RunParallel(context.Background(), wf)

	assert.Equal(t, models.WorkflowStatusSuccess, result.Status)

	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, models.TaskStatusSuccess, result.Tasks[id].Status, "task %s", id)
	}

	snap := result.Tasks["d"]
	assert.Equal(t, map[string]any{"left": "seed", "right": "seed"}, snap.Output.Result)
}

func TestEngine_RunParallel_IndependentTasksOverlap(t *testing.T) {
	var (
		current atomic.Int32
		peak    atomic.Int32
	)

	release := make(chan struct{})

	slow := &stubTool{id: "slow", fn: func(ctx context.Context, _ map[string]any) (any, error) {
		n := current.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}

		select {
		case <-release:
		case <-ctx.Done():
		}

		current.Add(-1)

		return map[string]any{"ok": true}, nil
	}}

	wf := models.NewWorkflow("wf-1", "overlap")
	require.NoError(t, wf.AddTask(toolTask("x", "slow")))
	require.NoError(t, wf.AddTask(toolTask("y", "slow")))

	eng := New(newTestRegistry(slow), Options{Logger: testLogger(), MaxWorkers: 2})

	go func() {
		// Let both workers enter the tool, then release them.
		for peak.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		close(release)
	}()

	result := eng.RunParallel(context.Background(), wf)

	assert.Equal(t, models.WorkflowStatusSuccess, result.Status)
	assert.Equal(t, int32(2), peak.Load())
}

func TestEngine_RunParallel_CascadeSkip(t *testing.T) {
	failing := &stubTool{id: "failing", fn: func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	}}
	noop := &stubTool{id: "noop"}

	wf := models.NewWorkflow("wf-1", "cascade")
	require.NoError(t, wf.AddTask(toolTask("a", "failing")))
	require.NoError(t, wf.AddTask(toolTask("b", "noop", dep("a"))))
	require.NoError(t, wf.AddTask(toolTask("c", "noop", dep("b"))))

	eng := newTestEngine(newTestRegistry(failing, noop))
	result := eng.RunParallel(context.Background(), wf)

	assert.Equal(t, models.WorkflowStatusFailed, result.Status)
	assert.Equal(t, models.TaskStatusFailed, result.Tasks["a"].Status)
	assert.Equal(t, models.TaskStatusSkipped, result.Tasks["b"].Status)
	assert.Equal(t, models.TaskStatusSkipped, result.Tasks["c"].Status)
	assert.Equal(t, 0, noop.Attempts())
}

func TestEngine_RunParallel_ResolutionFailureUnblocksTolerant(t *testing.T) {
	producer := &stubTool{id: "produce", fn: func(_ context.Context, _ map[string]any) (any, error) {
		return map[string]any{}, nil
	}}
	noop := &stubTool{id: "noop"}

	wf := models.NewWorkflow("wf-1", "unblock")
	require.NoError(t, wf.AddTask(toolTask("a", "produce")))

	// b fails resolution permanently; c tolerates b's failure.
	b := toolTask("b", "noop", dep("a"))
	b.InputData = map[string]any{"v": "${a.result.missing}"}
	require.NoError(t, wf.AddTask(b))

	require.NoError(t, wf.AddTask(toolTask("c", "noop", tolerantDep("b"))))

	eng := newTestEngine(newTestRegistry(producer, noop))
	result := eng.RunParallel(context.Background(), wf)

	assert.Equal(t, models.TaskStatusFailed, result.Tasks["b"].Status)
	assert.Equal(t, models.CodeValidation, result.Tasks["b"].ErrorCode)
	assert.Equal(t, models.TaskStatusSuccess, result.Tasks["c"].Status)
}

func TestEngine_RunParallel_MatchesSequentialStatuses(t *testing.T) {
	build := func() *models.Workflow {
		wf := models.NewWorkflow("wf-1", "equiv")
		require.NoError(t, wf.AddTask(toolTask("a", "failing")))
		require.NoError(t, wf.AddTask(toolTask("b", "noop", dep("a"))))
		require.NoError(t, wf.AddTask(toolTask("c", "noop", tolerantDep("a"))))
		require.NoError(t, wf.AddTask(toolTask("d", "noop")))

		return wf
	}

	newReg := func() (*stubTool, *stubTool) {
		failing := &stubTool{id: "failing", fn: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("boom")
		}}
		noop := &stubTool{id: "noop"}

		return failing, noop
	}

	failing1, noop1 := newReg()
	seq := newTestEngine(newTestRegistry(failing1, noop1)).Run(context.Background(), build())

	failing2, noop2 := newReg()
	par := newTestEngine(newTestRegistry(failing2, noop2)).RunParallel(context.Background(), build())

	assert.Equal(t, seq.Status, par.Status)

	for id, snap := range seq.Tasks {
		assert.Equal(t, snap.Status, par.Tasks[id].Status, "task %s", id)
		assert.Equal(t, snap.SkipReason, par.Tasks[id].SkipReason, "task %s", id)
	}
}

func TestEngine_RunParallel_Abort(t *testing.T) {
	wf := models.NewWorkflow("wf-1", "abort")

	var (
		eng  *Engine
		once sync.Once
	)

	first := &stubTool{id: "first", fn: func(_ context.Context, _ map[string]any) (any, error) {
		once.Do(func() { eng.Abort() })

		return map[string]any{"ok": true}, nil
	}}
	second := &stubTool{id: "second"}

	require.NoError(t, wf.AddTask(toolTask("a", "first")))
	require.NoError(t, wf.AddTask(toolTask("b", "second", dep("a"))))

	eng = New(newTestRegistry(first, second), Options{Logger: testLogger(), MaxWorkers: 1})
	result := eng.RunParallel(context.Background(), wf)

	assert.Equal(t, models.TaskStatusSuccess, result.Tasks["a"].Status)
	assert.Equal(t, models.TaskStatusSkipped, result.Tasks["b"].Status)
	assert.Equal(t, "aborted", result.Tasks["b"].SkipReason)
}
