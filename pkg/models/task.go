// Package models defines the core domain models for dependency-graph task
// execution: tasks, workflows and the standard dispatch response contract.
package models

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusFailed  TaskStatus = "failed"
	TaskStatusSkipped TaskStatus = "skipped"
)

// Terminal reports whether the status never changes again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed || s == TaskStatusSkipped
}

// Dependency is an edge in the task graph. A tolerant edge is satisfied by
// a failed or skipped upstream task, not only a successful one.
type Dependency struct {
	TaskID          string `json:"task_id"         validate:"required"`
	TolerateFailure bool   `json:"tolerate_failure,omitempty"`
}

// UnmarshalJSON accepts either a bare task id string or a full edge object.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		d.TaskID = id
		d.TolerateFailure = false

		return nil
	}

	type alias Dependency

	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	*d = Dependency(a)

	return nil
}

// Task is a single schedulable unit of work with a dispatch target and
// lifecycle state. Exactly one of ToolName/HandlerName must be set.
type Task struct {
	ID          string         `json:"id"                     validate:"required"`
	Name        string         `json:"name"`
	ToolName    string         `json:"tool_name,omitempty"`
	HandlerName string         `json:"handler_name,omitempty"`
	InputData   map[string]any `json:"input_data,omitempty"`
	DependsOn   []Dependency   `json:"depends_on,omitempty"`

	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	Status     TaskStatus `json:"status"`
	RetryCount int        `json:"retry_count"`

	Output *Response `json:"output,omitempty"`

	// Mirrored from a failed output for fast access.
	Error        string         `json:"error,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`

	SkipReason string `json:"skip_reason,omitempty"`
}

// NewTask returns a pending task. The dispatch target is validated when the
// task is added to a workflow, not here.
func NewTask(id, name string) *Task {
	return &Task{
		ID:     id,
		Name:   name,
		Status: TaskStatusPending,
	}
}

// DependsOnTask reports whether id is in the dependency set.
func (t *Task) DependsOnTask(id string) bool {
	for _, dep := range t.DependsOn {
		if dep.TaskID == id {
			return true
		}
	}

	return false
}

// Start transitions pending -> running.
func (t *Task) Start() error {
	if t.Status != TaskStatusPending {
		return &InvalidStateError{TaskID: t.ID, From: t.Status, Op: "start"}
	}

	t.Status = TaskStatusRunning

	return nil
}

// Complete stores the response as output and transitions running -> success.
// A warning response counts as success; the warning fields stay on the output.
func (t *Task) Complete(resp *Response) error {
	if t.Status != TaskStatusRunning {
		return &InvalidStateError{TaskID: t.ID, From: t.Status, Op: "complete"}
	}

	t.Output = resp
	t.Status = TaskStatusSuccess

	return nil
}

// Fail records a failed response. While retry budget remains the task
// returns to pending and reports retrying=true; otherwise it is terminally
// failed and the error fields are mirrored for fast access.
func (t *Task) Fail(resp *Response) (bool, error) {
	if t.Status != TaskStatusRunning {
		return false, &InvalidStateError{TaskID: t.ID, From: t.Status, Op: "fail"}
	}

	t.Output = resp

	if t.RetryCount < t.MaxRetries {
		t.RetryCount++
		t.Status = TaskStatusPending

		return true, nil
	}

	t.markFailed(resp)

	return false, nil
}

// FailPermanently fails the task regardless of remaining retries. Used for
// deterministic failures such as unresolved template references, where a
// retry can never change the outcome. Valid from pending or running.
func (t *Task) FailPermanently(resp *Response) error {
	if t.Status != TaskStatusPending && t.Status != TaskStatusRunning {
		return &InvalidStateError{TaskID: t.ID, From: t.Status, Op: "fail"}
	}

	t.Output = resp
	t.markFailed(resp)

	return nil
}

// Skip transitions pending -> skipped. Only callable before Start; used for
// the cascade from failed dependencies and for run aborts.
func (t *Task) Skip(reason string) error {
	if t.Status != TaskStatusPending {
		return &InvalidStateError{TaskID: t.ID, From: t.Status, Op: "skip"}
	}

	t.Status = TaskStatusSkipped
	t.SkipReason = reason

	return nil
}

func (t *Task) markFailed(resp *Response) {
	t.Status = TaskStatusFailed
	t.Error = resp.Error
	t.ErrorCode = resp.ErrorCode
	t.ErrorDetails = resp.ErrorDetails
}
