// Package transform provides the built-in value transform handler.
package transform

import (
	"context"
	"fmt"
	"log/slog"
)

// Handler reshapes already-resolved values: it returns the input value
// as-is, optionally reduced to a selection of keys. Combined with template
// references this merges and renames upstream outputs without custom code.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) ID() string   { return "transform" }
func (h *Handler) Name() string { return "Transform" }

func (h *Handler) Description() string {
	return "Returns the resolved input value, optionally picking a subset of keys"
}

func (h *Handler) InputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"value"},
		"properties": map[string]any{
			"value": map[string]any{},
			"pick": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

func (h *Handler) Execute(_ context.Context, input map[string]any, _ *slog.Logger) (any, error) {
	value := input["value"]

	pick, ok := input["pick"].([]any)
	if !ok || len(pick) == 0 {
		return value, nil
	}

	mapping, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("pick requires a mapping value, got %T", value)
	}

	out := make(map[string]any, len(pick))

	for _, key := range pick {
		name, ok := key.(string)
		if !ok {
			continue
		}

		if v, exists := mapping[name]; exists {
			out[name] = v
		}
	}

	return out, nil
}
