// Package registry provides name-keyed lookup of tools and handlers with
// registration-time and construction-time validation.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"strings"

	"github.com/taskline/taskline/pkg/models"
	"github.com/taskline/taskline/pkg/protocol"
)

// ErrNotRegistered is the sentinel behind every failed lookup.
var ErrNotRegistered = errors.New("not registered")

// LookupError reports a failed registry lookup by capability kind and name.
type LookupError struct {
	Kind string // "tool" or "handler"
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q is not registered", e.Kind, e.Name)
}

func (e *LookupError) Is(target error) bool {
	return target == ErrNotRegistered
}

// Registry holds the tool and handler capability tables.
type Registry struct {
	logger   *slog.Logger
	tools    map[string]protocol.Tool
	handlers map[string]protocol.Handler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		tools:    make(map[string]protocol.Tool),
		handlers: make(map[string]protocol.Handler),
	}
}

func (r *Registry) RegisterTool(tool protocol.Tool) {
	r.tools[tool.ID()] = tool
}

func (r *Registry) RegisterHandler(handler protocol.Handler) {
	r.handlers[handler.ID()] = handler
}

// Tool returns the tool registered under name.
func (r *Registry) Tool(name string) (protocol.Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, &LookupError{Kind: "tool", Name: name}
	}

	return tool, nil
}

// Handler returns the handler registered under name.
func (r *Registry) Handler(name string) (protocol.Handler, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, &LookupError{Kind: "handler", Name: name}
	}

	return handler, nil
}

// ToolIDs returns the registered tool names.
func (r *Registry) ToolIDs() []string {
	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}

	return ids
}

// HandlerIDs returns the registered handler names.
func (r *Registry) HandlerIDs() []string {
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}

	return ids
}

// ValidateTask checks a task's dispatch target against the registry.
// Unknown names are rejected here, at graph construction, never at
// dispatch time.
func (r *Registry) ValidateTask(task *models.Task) error {
	switch {
	case task.ToolName != "":
		_, err := r.Tool(task.ToolName)

		return err
	case task.HandlerName != "":
		_, err := r.Handler(task.HandlerName)

		return err
	default:
		return fmt.Errorf("task %q: %w", task.ID, models.ErrDispatchTarget)
	}
}

// LoadToolPlugins loads tool implementations from shared objects below
// pluginsPath/tools.
func (r *Registry) LoadToolPlugins(pluginsPath string) ([]protocol.Tool, error) {
	return loadPlugins[protocol.Tool](r.logger, pluginsPath, "Tool")
}

// LoadHandlerPlugins loads handler implementations from shared objects
// below pluginsPath/handlers.
func (r *Registry) LoadHandlerPlugins(pluginsPath string) ([]protocol.Handler, error) {
	return loadPlugins[protocol.Handler](r.logger, pluginsPath, "Handler")
}

func loadPlugins[T any](logger *slog.Logger, pluginsPath, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	root := os.DirFS(rootPath)

	paths, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	loaded := make([]T, 0, len(paths))

	for _, p := range paths {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		symbol, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s is missing symbol %s: %w", p, symbolName, err)
		}

		cast, ok := symbol.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s: symbol %s has wrong type", p, symbolName)
		}

		loaded = append(loaded, cast)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return loaded, nil
}
