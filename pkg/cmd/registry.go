// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/taskline/taskline/pkg/handlers/logmsg"
	"github.com/taskline/taskline/pkg/handlers/transform"
	"github.com/taskline/taskline/pkg/registry"
	"github.com/taskline/taskline/pkg/tools/filewrite"
	"github.com/taskline/taskline/pkg/tools/httprequest"
)

func registerToolPlugins(reg *registry.Registry, pluginsPath string) {
	toolPlugins, err := reg.LoadToolPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range toolPlugins {
		reg.RegisterTool(plugin)
	}
}

func registerHandlerPlugins(reg *registry.Registry, pluginsPath string) {
	handlerPlugins, err := reg.LoadHandlerPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range handlerPlugins {
		reg.RegisterHandler(plugin)
	}
}

func registerNativeTools(reg *registry.Registry) {
	reg.RegisterTool(httprequest.NewTool())
	reg.RegisterTool(filewrite.NewTool())
}

func registerNativeHandlers(reg *registry.Registry) {
	reg.RegisterHandler(transform.NewHandler())
	reg.RegisterHandler(logmsg.NewHandler())
}

func NewRegistry(log *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		registerToolPlugins(reg, pluginsPath)
		registerHandlerPlugins(reg, pluginsPath)
	}

	registerNativeTools(reg)
	registerNativeHandlers(reg)

	return reg
}
