// Package engine schedules and executes workflow task graphs: readiness
// from the dependency graph, template resolution, dispatch through the
// registry, retries, cascading skip and final result aggregation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskline/taskline/pkg/errcontext"
	"github.com/taskline/taskline/pkg/eventbus"
	"github.com/taskline/taskline/pkg/events"
	"github.com/taskline/taskline/pkg/models"
	"github.com/taskline/taskline/pkg/otelhelper"
	"github.com/taskline/taskline/pkg/registry"
	"github.com/taskline/taskline/pkg/template"
)

const abortReason = "aborted"

// Options configures an Engine. The zero value is usable: real clock,
// default logger, no events, no tracing, synchronous dispatch.
type Options struct {
	// DispatchTimeout bounds a single tool/handler call. Zero means no bound.
	DispatchTimeout time.Duration

	// MaxWorkers bounds concurrent dispatches in RunParallel. Zero means 4.
	MaxWorkers int

	Clock    clockwork.Clock
	Logger   *slog.Logger
	EventBus eventbus.EventBus
	Tracer   trace.Tracer
}

// Engine executes workflows against a registry of tools and handlers.
// Registries, clock and event bus are passed in explicitly; the engine
// holds no process-wide state.
type Engine struct {
	registry *registry.Registry
	opts     Options
	aborted  atomic.Bool
}

func New(reg *registry.Registry, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}

	return &Engine{registry: reg, opts: opts}
}

// Abort stops scheduling new work. In-flight dispatches finish; every task
// not yet started is skipped with an "aborted" reason.
func (e *Engine) Abort() {
	e.aborted.Store(true)
}

// run-local state shared by the synchronous and parallel loops.
type run struct {
	id        string
	wf        *models.Workflow
	errctx    *errcontext.Context
	notBefore map[string]time.Time
	logger    *slog.Logger
	startedAt time.Time
}

// Run executes the workflow to completion with the synchronous loop: one
// task dispatched and fully settled before the next is considered. It
// always returns a result object; task failures surface through statuses
// and the error summary, never as an error.
func (e *Engine) Run(ctx context.Context, wf *models.Workflow) *RunResult {
	r := e.newRun(wf)

	r.logger.Info("Starting workflow run", "tasks", wf.Len())
	e.publish(ctx, r, events.RunStarted{
		BaseEvent:    e.baseEvent(events.RunStartedEvent, r),
		WorkflowName: wf.Name,
		TaskCount:    wf.Len(),
	})

	for {
		if e.stopRequested(ctx) {
			e.abortPending(ctx, r)

			break
		}

		runnable, wakeAt := e.runnableTasks(r)
		if len(runnable) == 0 {
			if wakeAt.IsZero() {
				break
			}

			e.opts.Clock.Sleep(wakeAt.Sub(e.opts.Clock.Now()))

			continue
		}

		for _, task := range runnable {
			if e.stopRequested(ctx) {
				break
			}

			e.executeTask(ctx, r, task)
		}
	}

	return e.finish(ctx, r)
}

func (e *Engine) newRun(wf *models.Workflow) *run {
	runID := "run-" + uuid.New().String()[:8]

	r := &run{
		id:        runID,
		wf:        wf,
		errctx:    errcontext.New(),
		notBefore: make(map[string]time.Time),
		logger: e.opts.Logger.With(
			"module", "engine",
			"workflow_id", wf.ID,
			"run_id", runID,
		),
		startedAt: e.opts.Clock.Now(),
	}

	wf.RecomputeStatus()

	return r
}

func (e *Engine) stopRequested(ctx context.Context) bool {
	return ctx.Err() != nil || e.aborted.Load()
}

// runnableTasks filters ReadyTasks by retry-delay eligibility. When
// everything ready is still waiting on a delay, wakeAt carries the
// earliest eligibility time.
func (e *Engine) runnableTasks(r *run) ([]*models.Task, time.Time) {
	var (
		runnable []*models.Task
		wakeAt   time.Time
	)

	now := e.opts.Clock.Now()

	for _, task := range r.wf.ReadyTasks() {
		if nb, ok := r.notBefore[task.ID]; ok && nb.After(now) {
			if wakeAt.IsZero() || nb.Before(wakeAt) {
				wakeAt = nb
			}

			continue
		}

		runnable = append(runnable, task)
	}

	return runnable, wakeAt
}

// executeTask resolves, dispatches and settles one ready task.
func (e *Engine) executeTask(ctx context.Context, r *run, task *models.Task) {
	logger := r.logger.With("task_id", task.ID)

	resolved, err := e.resolveInput(r, task)
	if err != nil {
		logger.Warn("Input resolution failed", "error", err)
		e.failValidation(ctx, r, task, err)

		return
	}

	callable, schema, kind, name, err := e.lookupTarget(task)
	if err != nil {
		// Unknown names are rejected at construction; hitting this means
		// the graph bypassed validation.
		e.failValidation(ctx, r, task, err)

		return
	}

	if err := registry.ValidateInput(schema, resolved); err != nil {
		logger.Warn("Input schema validation failed", "error", err)
		e.failValidation(ctx, r, task, err)

		return
	}

	if err := task.Start(); err != nil {
		logger.Error("Illegal task transition", "error", err)

		return
	}

	e.publish(ctx, r, events.TaskStarted{
		BaseEvent: e.baseEvent(events.TaskStartedEvent, r),
		TaskID:    task.ID,
		Attempt:   task.RetryCount + 1,
	})

	started := e.opts.Clock.Now()
	resp := e.dispatch(ctx, r, task, callable, resolved, kind, name, logger)

	e.settle(ctx, r, task, resp, e.opts.Clock.Since(started), logger)
}

type callable func(ctx context.Context, input map[string]any, logger *slog.Logger) (any, error)

func (e *Engine) lookupTarget(task *models.Task) (callable, map[string]any, string, string, error) {
	if task.ToolName != "" {
		tool, err := e.registry.Tool(task.ToolName)
		if err != nil {
			return nil, nil, "", "", err
		}

		return tool.Execute, tool.InputSchema(), "tool", task.ToolName, nil
	}

	handler, err := e.registry.Handler(task.HandlerName)
	if err != nil {
		return nil, nil, "", "", err
	}

	return handler.Execute, handler.InputSchema(), "handler", task.HandlerName, nil
}

// dispatch calls the capability and normalizes whatever comes back. This
// is the only place the engine blocks, and it holds no shared state while
// doing so.
func (e *Engine) dispatch(
	ctx context.Context,
	r *run,
	task *models.Task,
	call callable,
	input map[string]any,
	kind, name string,
	logger *slog.Logger,
) *models.Response {
	dctx := ctx

	if e.opts.DispatchTimeout > 0 {
		var cancel context.CancelFunc

		dctx, cancel = context.WithTimeout(ctx, e.opts.DispatchTimeout)
		defer cancel()
	}

	if e.opts.Tracer != nil {
		var span trace.Span

		dctx, span = otelhelper.StartSpan(dctx, e.opts.Tracer, "engine.dispatch",
			attribute.String(otelhelper.WorkflowIDKey, r.wf.ID),
			attribute.String(otelhelper.RunIDKey, r.id),
			attribute.String(otelhelper.TaskIDKey, task.ID),
			attribute.String(otelhelper.DispatchKindKey, kind),
			attribute.String(otelhelper.DispatchNameKey, name),
			attribute.Int(otelhelper.AttemptKey, task.RetryCount+1),
		)
		defer span.End()

		raw, err := call(dctx, input, logger)
		if err != nil {
			otelhelper.SetError(span, err)

			return models.NewFailure(err.Error(), models.CodeForError(err), nil)
		}

		return models.Normalize(raw)
	}

	raw, err := call(dctx, input, logger)
	if err != nil {
		return models.NewFailure(err.Error(), models.CodeForError(err), nil)
	}

	return models.Normalize(raw)
}

// settle applies a normalized response to task state: success, retry with
// deferred re-readiness, or terminal failure with cascade skip.
func (e *Engine) settle(
	ctx context.Context,
	r *run,
	task *models.Task,
	resp *models.Response,
	elapsed time.Duration,
	logger *slog.Logger,
) {
	if resp.Success {
		if err := task.Complete(resp); err != nil {
			logger.Error("Illegal task transition", "error", err)

			return
		}

		logger.Info("Task finished", "status", resp.Status, "duration", elapsed)
		e.publish(ctx, r, events.TaskFinished{
			BaseEvent: e.baseEvent(events.TaskFinishedEvent, r),
			TaskID:    task.ID,
			Warning:   resp.Warning,
			Duration:  elapsed,
		})

		return
	}

	retrying, err := task.Fail(resp)
	if err != nil {
		logger.Error("Illegal task transition", "error", err)

		return
	}

	if retrying {
		r.notBefore[task.ID] = e.opts.Clock.Now().Add(task.RetryDelay)

		logger.Warn("Task failed, retrying",
			"error", resp.Error,
			"retry_count", task.RetryCount,
			"retry_delay", task.RetryDelay,
		)
		e.publish(ctx, r, events.TaskRetrying{
			BaseEvent:  e.baseEvent(events.TaskRetryingEvent, r),
			TaskID:     task.ID,
			RetryCount: task.RetryCount,
			RetryDelay: task.RetryDelay,
		})

		return
	}

	logger.Error("Task permanently failed", "error", resp.Error, "error_code", resp.ErrorCode)
	e.recordFailure(ctx, r, task, resp)
}

// failValidation terminally fails a task before dispatch: unresolved
// templates and schema violations are deterministic, retries cannot help.
func (e *Engine) failValidation(ctx context.Context, r *run, task *models.Task, cause error) {
	resp := models.NewFailure(cause.Error(), models.CodeValidation, nil)

	if err := task.FailPermanently(resp); err != nil {
		r.logger.Error("Illegal task transition", "task_id", task.ID, "error", err)

		return
	}

	e.recordFailure(ctx, r, task, resp)
}

// recordFailure records a permanent failure into the error context and
// cascade-skips non-tolerant descendants. Applied once per permanent
// failure, not per retry.
func (e *Engine) recordFailure(ctx context.Context, r *run, task *models.Task, resp *models.Response) {
	r.errctx.RecordTaskError(task.ID, errcontext.Record{
		Message: resp.Error,
		Code:    resp.ErrorCode,
		Details: resp.ErrorDetails,
	})

	e.publish(ctx, r, events.TaskFailed{
		BaseEvent: e.baseEvent(events.TaskFailedEvent, r),
		TaskID:    task.ID,
		Error:     resp.Error,
		ErrorCode: resp.ErrorCode,
	})

	for _, skipped := range r.wf.CascadeSkip(task.ID, resp.Error) {
		r.logger.Info("Task skipped", "task_id", skipped.ID, "reason", skipped.SkipReason)
		e.publish(ctx, r, events.TaskSkipped{
			BaseEvent: e.baseEvent(events.TaskSkippedEvent, r),
			TaskID:    skipped.ID,
			Reason:    skipped.SkipReason,
		})
	}
}

// resolveInput builds a resolver scoped to the task: outputs come from
// terminal upstream tasks, error references go through the error context
// so each one is logged as a propagation.
func (e *Engine) resolveInput(r *run, task *models.Task) (map[string]any, error) {
	resolver := template.NewResolver(
		func(taskID string) (any, bool) {
			upstream, ok := r.wf.Task(taskID)
			if !ok || !upstream.Status.Terminal() || upstream.Output == nil {
				return nil, false
			}

			return upstream.Output.View(), true
		},
		func(sourceID string) (map[string]any, bool) {
			return r.errctx.PropagateError(sourceID, task.ID, nil)
		},
	)

	return resolver.ResolveInput(task.InputData)
}

// abortPending skips every task that has not started yet.
func (e *Engine) abortPending(ctx context.Context, r *run) {
	for _, task := range r.wf.Tasks() {
		if task.Status != models.TaskStatusPending {
			continue
		}

		if err := task.Skip(abortReason); err != nil {
			continue
		}

		e.publish(ctx, r, events.TaskSkipped{
			BaseEvent: e.baseEvent(events.TaskSkippedEvent, r),
			TaskID:    task.ID,
			Reason:    abortReason,
		})
	}
}

func (e *Engine) finish(ctx context.Context, r *run) *RunResult {
	status := r.wf.RecomputeStatus()

	result := &RunResult{
		RunID:        r.id,
		WorkflowID:   r.wf.ID,
		WorkflowName: r.wf.Name,
		Status:       status,
		Tasks:        make(map[string]*TaskSnapshot, r.wf.Len()),
		StartedAt:    r.startedAt,
		FinishedAt:   e.opts.Clock.Now(),
	}

	for _, task := range r.wf.Tasks() {
		result.Tasks[task.ID] = snapshot(task)
	}

	if r.errctx.HasErrors() {
		result.ErrorSummary = r.errctx.Summarize()

		summary := result.ErrorSummary
		r.wf.Error = fmt.Sprintf("%d task(s) failed", len(summary.Errors))
		r.wf.ErrorCode = models.CodeExecution
		result.Status = r.wf.Status
	}

	r.logger.Info("Workflow run finished",
		"status", result.Status,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)
	e.publish(ctx, r, events.RunFinished{
		BaseEvent: e.baseEvent(events.RunFinishedEvent, r),
		Status:    result.Status,
		Duration:  result.FinishedAt.Sub(result.StartedAt),
	})

	return result
}

func (e *Engine) baseEvent(eventType events.EventType, r *run) events.BaseEvent {
	var id string
	if e.opts.EventBus != nil {
		id = e.opts.EventBus.GenerateID()
	} else {
		id = uuid.New().String()
	}

	return events.BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  e.opts.Clock.Now(),
		WorkflowID: r.wf.ID,
		RunID:      r.id,
	}
}

func (e *Engine) publish(ctx context.Context, r *run, event events.Event) {
	if e.opts.EventBus == nil {
		return
	}

	if err := e.opts.EventBus.Publish(ctx, r.wf.ID, event); err != nil {
		r.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
