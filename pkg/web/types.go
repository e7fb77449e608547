// Package web provides HTTP request and response types for the run API.
package web

// ValidatePlanResponse reports the outcome of a plan validation request.
type ValidatePlanResponse struct {
	Valid      bool   `json:"valid"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Name       string `json:"name,omitempty"`
	TaskCount  int    `json:"task_count"`
}

// Capability describes one registered tool or handler.
type Capability struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}
