package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Error category codes carried in Response.ErrorCode and the error summary.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeResource   = "RESOURCE_ERROR"
	CodeConnection = "CONNECTION_ERROR"
	CodeFramework  = "FRAMEWORK_ERROR"
	CodeUnknown    = "UNKNOWN_ERROR"
)

// Framework errors are construction-time programmer errors. They are fatal
// to building a workflow, never to running one.
var (
	// ErrDuplicateTask indicates a task id was added twice to a workflow.
	ErrDuplicateTask = errors.New("duplicate task id")

	// ErrUnknownDependency indicates depends_on references a task id not in the workflow.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrSelfDependency indicates a task depends on or references itself.
	ErrSelfDependency = errors.New("task references itself")

	// ErrCycle indicates adding a task would make the graph cyclic.
	ErrCycle = errors.New("dependency cycle detected")

	// ErrDispatchTarget indicates a task does not name exactly one of tool/handler.
	ErrDispatchTarget = errors.New("task must name exactly one of tool_name or handler_name")

	// ErrForwardReference indicates a template token references a task id
	// outside the task's depends_on set.
	ErrForwardReference = errors.New("template reference outside depends_on")
)

// InvalidStateError reports an illegal task lifecycle transition.
type InvalidStateError struct {
	TaskID string
	From   TaskStatus
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("task %s: cannot %s from status %q", e.TaskID, e.Op, e.From)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ErrInvalidState is the sentinel matched by errors.Is for InvalidStateError.
var ErrInvalidState = errors.New("invalid task state transition")

// CodeForError maps a dispatch error onto an error category code.
// Network-layer failures become connection errors, filesystem lookups
// resource errors, everything else counts as an execution failure.
func CodeForError(err error) string {
	if err == nil {
		return CodeUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return CodeConnection
	}

	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return CodeResource
	}

	return CodeExecution
}
