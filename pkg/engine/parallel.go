package engine

import (
	"context"
	"time"

	"github.com/taskline/taskline/pkg/events"
	"github.com/taskline/taskline/pkg/models"
	"github.com/taskline/taskline/pkg/registry"
)

// RunParallel executes the workflow with a bounded worker pool dispatching
// mutually-independent ready tasks concurrently. All task and error-ledger
// mutation stays on the scheduler goroutine: workers only perform the
// dispatch call and hand the normalized response back over a channel, so
// concurrent completions cannot race on cascade-skip decisions or error
// records. Terminal statuses match what Run would produce.
func (e *Engine) RunParallel(ctx context.Context, wf *models.Workflow) *RunResult {
	r := e.newRun(wf)

	r.logger.Info("Starting workflow run", "tasks", wf.Len(), "max_workers", e.opts.MaxWorkers)
	e.publish(ctx, r, events.RunStarted{
		BaseEvent:    e.baseEvent(events.RunStartedEvent, r),
		WorkflowName: wf.Name,
		TaskCount:    wf.Len(),
	})

	type completion struct {
		task    *models.Task
		resp    *models.Response
		elapsed time.Duration
	}

	completions := make(chan completion, e.opts.MaxWorkers)
	inflight := 0

	for {
		if !e.stopRequested(ctx) {
			// Settling a validation failure can unblock tolerant
			// downstream tasks, so launching loops until a pass makes no
			// further progress.
			for progress := true; progress; {
				progress = false

				runnable, _ := e.runnableTasks(r)

				for _, task := range runnable {
					if inflight >= e.opts.MaxWorkers {
						break
					}

					logger := r.logger.With("task_id", task.ID)

					resolved, err := e.resolveInput(r, task)
					if err != nil {
						logger.Warn("Input resolution failed", "error", err)
						e.failValidation(ctx, r, task, err)

						progress = true

						continue
					}

					call, schema, kind, name, err := e.lookupTarget(task)
					if err != nil {
						e.failValidation(ctx, r, task, err)

						progress = true

						continue
					}

					if err := registry.ValidateInput(schema, resolved); err != nil {
						logger.Warn("Input schema validation failed", "error", err)
						e.failValidation(ctx, r, task, err)

						progress = true

						continue
					}

					if err := task.Start(); err != nil {
						logger.Error("Illegal task transition", "error", err)

						continue
					}

					e.publish(ctx, r, events.TaskStarted{
						BaseEvent: e.baseEvent(events.TaskStartedEvent, r),
						TaskID:    task.ID,
						Attempt:   task.RetryCount + 1,
					})

					inflight++

					go func(task *models.Task, input map[string]any) {
						started := e.opts.Clock.Now()
						resp := e.dispatch(ctx, r, task, call, input, kind, name, logger)
						completions <- completion{task: task, resp: resp, elapsed: e.opts.Clock.Since(started)}
					}(task, resolved)
				}
			}
		}

		if inflight > 0 {
			c := <-completions
			inflight--

			e.settle(ctx, r, c.task, c.resp, c.elapsed, r.logger.With("task_id", c.task.ID))

			continue
		}

		if e.stopRequested(ctx) {
			e.abortPending(ctx, r)

			break
		}

		runnable, wakeAt := e.runnableTasks(r)
		if len(runnable) > 0 {
			continue
		}

		if wakeAt.IsZero() {
			break
		}

		e.opts.Clock.Sleep(wakeAt.Sub(e.opts.Clock.Now()))
	}

	return e.finish(ctx, r)
}
