// Package protocol defines the capability interfaces implemented by
// dispatchable tools and handlers.
package protocol

import (
	"context"
	"log/slog"
)

// Tool is an external capability dispatched by tool_name. Execute receives
// the task's fully resolved input mapping and may return a bare value, a
// partial mapping, or a conformant standard response; the engine
// normalizes whatever comes back.
type Tool interface {
	// ID returns the unique registry name for this tool
	ID() string

	// Name returns the human-readable name
	Name() string

	// Description returns a description of what this tool does
	Description() string

	// InputSchema returns the JSON schema the resolved input must satisfy,
	// or nil when the tool accepts anything
	InputSchema() map[string]any

	// Execute performs the work with the resolved input
	Execute(ctx context.Context, input map[string]any, logger *slog.Logger) (any, error)
}
