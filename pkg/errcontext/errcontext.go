// Package errcontext keeps the per-run ledger of task failures and their
// propagation to dependent tasks.
package errcontext

import (
	"sync"
	"time"
)

// Record is the authoritative error entry for one task. Later calls for
// the same task replace the entry, they never append.
type Record struct {
	Message   string         `json:"message"`
	Code      string         `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Propagation is one append-only log entry, created whenever a downstream
// task's input references an upstream error.
type Propagation struct {
	SourceTaskID string         `json:"source_task_id"`
	TargetTaskID string         `json:"target_task_id"`
	Context      map[string]any `json:"context,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// TaskError is one flattened entry of the final summary.
type TaskError struct {
	TaskID    string `json:"task_id"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// Summary groups recorded errors by code for final reporting. It is never
// consulted for scheduling decisions.
type Summary struct {
	Counts map[string]int `json:"counts"`
	Errors []TaskError    `json:"errors"`
}

// Context is the ledger for a single workflow run. Safe for concurrent use.
type Context struct {
	mu         sync.Mutex
	taskErrors map[string]*Record
	order      []string
	propagated []Propagation
}

func New() *Context {
	return &Context{
		taskErrors: make(map[string]*Record),
	}
}

// RecordTaskError stores the authoritative entry for a task, overwriting
// any previous entry for the same id.
func (c *Context) RecordTaskError(taskID string, record Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	if _, exists := c.taskErrors[taskID]; !exists {
		c.order = append(c.order, taskID)
	}

	c.taskErrors[taskID] = &record
}

// TaskError returns the recorded entry for a task, if any.
func (c *Context) TaskError(taskID string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.taskErrors[taskID]
	if !ok {
		return Record{}, false
	}

	return *record, true
}

// PropagateError appends to the propagation log and returns the merged
// view (record fields plus extra context) served for ${error.<source>...}
// references.
func (c *Context) PropagateError(sourceID, targetID string, extra map[string]any) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.taskErrors[sourceID]
	if !ok {
		return nil, false
	}

	c.propagated = append(c.propagated, Propagation{
		SourceTaskID: sourceID,
		TargetTaskID: targetID,
		Context:      extra,
		Timestamp:    time.Now().UTC(),
	})

	view := map[string]any{
		"message":   record.Message,
		"code":      record.Code,
		"timestamp": record.Timestamp.Format(time.RFC3339Nano),
	}

	if record.Details != nil {
		view["details"] = record.Details
	}

	for k, v := range extra {
		view[k] = v
	}

	return view, true
}

// Propagations returns a copy of the propagation log in append order.
func (c *Context) Propagations() []Propagation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Propagation, len(c.propagated))
	copy(out, c.propagated)

	return out
}

// HasErrors reports whether any task error was recorded.
func (c *Context) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.taskErrors) > 0
}

// Summarize builds the final report view: counts grouped by error code and
// a flat list in recording order.
func (c *Context) Summarize() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := &Summary{Counts: make(map[string]int)}

	for _, taskID := range c.order {
		record := c.taskErrors[taskID]
		summary.Counts[record.Code]++
		summary.Errors = append(summary.Errors, TaskError{
			TaskID:    taskID,
			Message:   record.Message,
			ErrorCode: record.Code,
		})
	}

	return summary
}
