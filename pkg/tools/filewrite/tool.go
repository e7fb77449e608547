// Package filewrite provides the built-in file writing tool.
package filewrite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Tool writes resolved content to a path, creating parent directories.
type Tool struct{}

func NewTool() *Tool {
	return &Tool{}
}

func (t *Tool) ID() string   { return "file_write" }
func (t *Tool) Name() string { return "File Write" }

func (t *Tool) Description() string {
	return "Writes content to a file, creating parent directories as needed"
}

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"path", "content"},
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "minLength": 1},
			"content": map[string]any{"type": "string"},
			"append":  map[string]any{"type": "boolean"},
		},
	}
}

func (t *Tool) Execute(_ context.Context, input map[string]any, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "file_write_tool")

	path, _ := input["path"].(string)
	content, _ := input["content"].(string)
	appendMode, _ := input["append"].(bool)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	written, err := f.WriteString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("File written", "path", path, "bytes", written)

	return map[string]any{
		"path":          path,
		"bytes_written": written,
	}, nil
}
