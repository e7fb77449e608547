package protocol

import (
	"context"
	"log/slog"
)

// Handler is an external capability dispatched by handler_name. Handlers
// and tools share the same calling convention; the split exists so a plan
// can address the two capability sets independently.
type Handler interface {
	ID() string
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any, logger *slog.Logger) (any, error)
}
