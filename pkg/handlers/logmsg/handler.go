// Package logmsg provides the built-in logging handler.
package logmsg

import (
	"context"
	"log/slog"
)

// Handler emits the resolved message through the structured logger.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) ID() string   { return "log" }
func (h *Handler) Name() string { return "Log" }

func (h *Handler) Description() string {
	return "Logs a message at the given level and echoes it back"
}

func (h *Handler) InputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"message"},
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
			"level":   map[string]any{"type": "string", "enum": []any{"debug", "info", "warn", "error"}},
		},
	}
}

func (h *Handler) Execute(_ context.Context, input map[string]any, logger *slog.Logger) (any, error) {
	message, _ := input["message"].(string)
	level, _ := input["level"].(string)

	logger = logger.With("module", "log_handler")

	switch level {
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}

	return map[string]any{
		"logged":  true,
		"message": message,
	}, nil
}
