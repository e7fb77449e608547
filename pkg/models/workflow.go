package models

import (
	"fmt"

	"github.com/taskline/taskline/pkg/template"
)

// WorkflowStatus represents the aggregate run state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending WorkflowStatus = "pending"
	WorkflowStatusRunning WorkflowStatus = "running"
	WorkflowStatusSuccess WorkflowStatus = "success"
	WorkflowStatusFailed  WorkflowStatus = "failed"
)

// Workflow is a DAG of tasks plus aggregate run status. Task insertion
// order is preserved; ids are unique. The graph is a DAG at all times:
// AddTask rejects anything that would violate that.
type Workflow struct {
	ID   string `json:"id"   validate:"required"`
	Name string `json:"name" validate:"required"`

	Status    WorkflowStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`

	order []string
	tasks map[string]*Task
}

func NewWorkflow(id, name string) *Workflow {
	return &Workflow{
		ID:     id,
		Name:   name,
		Status: WorkflowStatusPending,
		tasks:  make(map[string]*Task),
	}
}

// AddTask validates the task against the graph built so far and inserts it.
// Construction-time failures are framework errors: duplicate id, missing or
// ambiguous dispatch target, unknown or self dependency, cycle, and
// template references outside depends_on (forward-only wiring).
func (w *Workflow) AddTask(task *Task) error {
	if task.ID == "" {
		return fmt.Errorf("task id is empty: %w", ErrUnknownDependency)
	}

	if _, exists := w.tasks[task.ID]; exists {
		return fmt.Errorf("task %q: %w", task.ID, ErrDuplicateTask)
	}

	hasTool := task.ToolName != ""
	hasHandler := task.HandlerName != ""

	if hasTool == hasHandler {
		return fmt.Errorf("task %q: %w", task.ID, ErrDispatchTarget)
	}

	for _, dep := range task.DependsOn {
		if dep.TaskID == task.ID {
			return fmt.Errorf("task %q depends on itself: %w", task.ID, ErrSelfDependency)
		}

		if _, ok := w.tasks[dep.TaskID]; !ok {
			return fmt.Errorf("task %q depends on %q: %w", task.ID, dep.TaskID, ErrUnknownDependency)
		}
	}

	if err := w.checkReferences(task); err != nil {
		return err
	}

	w.tasks[task.ID] = task
	w.order = append(w.order, task.ID)

	if w.hasCycle() {
		delete(w.tasks, task.ID)
		w.order = w.order[:len(w.order)-1]

		return fmt.Errorf("task %q: %w", task.ID, ErrCycle)
	}

	if task.Status == "" {
		task.Status = TaskStatusPending
	}

	return nil
}

// checkReferences enforces forward-only wiring: every template token in
// the task input must address a task in depends_on (for the error
// namespace, the task named by the first path segment).
func (w *Workflow) checkReferences(task *Task) error {
	for _, tok := range template.ScanValue(task.InputData) {
		referenced := tok.Namespace
		if referenced == template.ErrorNamespace {
			referenced = tok.Path[0]
		}

		if referenced == task.ID {
			return fmt.Errorf("task %q references ${%s}: %w", task.ID, tok.Reference, ErrSelfDependency)
		}

		if !task.DependsOnTask(referenced) {
			return fmt.Errorf("task %q references ${%s} but does not depend on %q: %w",
				task.ID, tok.Reference, referenced, ErrForwardReference)
		}
	}

	return nil
}

// Task returns the task with the given id.
func (w *Workflow) Task(id string) (*Task, bool) {
	task, ok := w.tasks[id]

	return task, ok
}

// Tasks returns all tasks in insertion order.
func (w *Workflow) Tasks() []*Task {
	out := make([]*Task, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.tasks[id])
	}

	return out
}

// Len returns the number of tasks.
func (w *Workflow) Len() int {
	return len(w.order)
}

// ReadyTasks returns the pending tasks whose every dependency is in a
// satisfied terminal state: success always satisfies; failed and skipped
// satisfy only a tolerant edge. Order is insertion order.
func (w *Workflow) ReadyTasks() []*Task {
	var ready []*Task

	for _, id := range w.order {
		task := w.tasks[id]
		if task.Status != TaskStatusPending {
			continue
		}

		if w.depsSatisfied(task) {
			ready = append(ready, task)
		}
	}

	return ready
}

func (w *Workflow) depsSatisfied(task *Task) bool {
	for _, dep := range task.DependsOn {
		upstream := w.tasks[dep.TaskID]

		switch upstream.Status {
		case TaskStatusSuccess:
		case TaskStatusFailed, TaskStatusSkipped:
			if !dep.TolerateFailure {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// CascadeSkip transitively skips every pending descendant of a permanently
// failed task reachable through non-tolerant edges, recording the reason
// chain. Returns the skipped tasks. Applied once per permanent failure.
func (w *Workflow) CascadeSkip(failedID, reason string) []*Task {
	var skipped []*Task

	queue := []string{failedID}
	reasons := map[string]string{failedID: reason}
	seen := map[string]bool{failedID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, id := range w.order {
			task := w.tasks[id]
			if seen[id] || task.Status != TaskStatusPending {
				continue
			}

			if !dependsNonTolerant(task, current) {
				continue
			}

			chain := fmt.Sprintf("dependency %q: %s", current, reasons[current])
			if err := task.Skip(chain); err != nil {
				continue
			}

			reasons[id] = chain
			seen[id] = true

			skipped = append(skipped, task)
			queue = append(queue, id)
		}
	}

	return skipped
}

func dependsNonTolerant(task *Task, upstreamID string) bool {
	for _, dep := range task.DependsOn {
		if dep.TaskID == upstreamID && !dep.TolerateFailure {
			return true
		}
	}

	return false
}

// RecomputeStatus applies the aggregate rule: success iff every non-skipped
// task succeeded, failed iff at least one task permanently failed and
// nothing is runnable anymore, otherwise running (pending if untouched).
func (w *Workflow) RecomputeStatus() WorkflowStatus {
	allPending := true
	anyFailed := false
	allSettled := true

	for _, id := range w.order {
		task := w.tasks[id]

		if task.Status != TaskStatusPending {
			allPending = false
		}

		if task.Status == TaskStatusFailed {
			anyFailed = true
		}

		if !task.Status.Terminal() {
			allSettled = false
		}
	}

	switch {
	case len(w.order) == 0:
		w.Status = WorkflowStatusSuccess
	case allPending:
		w.Status = WorkflowStatusPending
	case !allSettled:
		w.Status = WorkflowStatusRunning
	case anyFailed:
		w.Status = WorkflowStatusFailed
	default:
		w.Status = WorkflowStatusSuccess
	}

	return w.Status
}

// hasCycle runs a depth-first search over dependency edges. Dependencies
// must exist before their dependents, which keeps the graph acyclic by
// construction; the check guards against direct mutation of DependsOn.
func (w *Workflow) hasCycle() bool {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)

	state := make(map[string]int, len(w.tasks))

	var visit func(id string) bool

	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}

		state[id] = visiting

		if task, ok := w.tasks[id]; ok {
			for _, dep := range task.DependsOn {
				if visit(dep.TaskID) {
					return true
				}
			}
		}

		state[id] = done

		return false
	}

	for _, id := range w.order {
		if visit(id) {
			return true
		}
	}

	return false
}
