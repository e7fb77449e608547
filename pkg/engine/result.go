package engine

import (
	"time"

	"github.com/taskline/taskline/pkg/errcontext"
	"github.com/taskline/taskline/pkg/models"
)

// TaskSnapshot is the per-task slice of the final run report.
type TaskSnapshot struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Status       models.TaskStatus `json:"status"`
	RetryCount   int               `json:"retry_count"`
	Output       *models.Response  `json:"output,omitempty"`
	Error        string            `json:"error,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorDetails map[string]any    `json:"error_details,omitempty"`
	SkipReason   string            `json:"skip_reason,omitempty"`
}

// RunResult is what Run always returns: per-task snapshots, the aggregate
// workflow status and the error summary when anything failed. No error
// escapes a well-formed graph; failure is visible here, not thrown.
type RunResult struct {
	RunID        string                   `json:"run_id"`
	WorkflowID   string                   `json:"workflow_id"`
	WorkflowName string                   `json:"workflow_name"`
	Status       models.WorkflowStatus    `json:"status"`
	Tasks        map[string]*TaskSnapshot `json:"tasks"`
	ErrorSummary *errcontext.Summary      `json:"error_summary,omitempty"`
	StartedAt    time.Time                `json:"started_at"`
	FinishedAt   time.Time                `json:"finished_at"`
}

func snapshot(task *models.Task) *TaskSnapshot {
	return &TaskSnapshot{
		ID:           task.ID,
		Name:         task.Name,
		Status:       task.Status,
		RetryCount:   task.RetryCount,
		Output:       task.Output,
		Error:        task.Error,
		ErrorCode:    task.ErrorCode,
		ErrorDetails: task.ErrorDetails,
		SkipReason:   task.SkipReason,
	}
}
