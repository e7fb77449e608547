package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/taskline/taskline/pkg/cmd"
	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/log"
	"github.com/taskline/taskline/pkg/otelhelper"
	"github.com/taskline/taskline/pkg/plan"
)

const (
	defaultPort       = 9091
	defaultMaxRetries = 0
	defaultRetryDelay = 5 * time.Second
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "taskline-api",
		Usage:                 "Validate plans and execute runs over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for run persistence",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing tool and handler plugins",
				Required: false,
			},
			&cli.DurationFlag{
				Name:    "dispatch-timeout",
				Usage:   "Per-attempt execution timeout (0 disables)",
				Sources: cli.EnvVars("DISPATCH_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "max-workers",
				Usage:   "Concurrent task limit for parallel runs",
				Sources: cli.EnvVars("MAX_WORKERS"),
			},
			&cli.IntFlag{
				Name:  "default-max-retries",
				Usage: "Retry budget for tasks that do not set one",
				Value: defaultMaxRetries,
			},
			&cli.DurationFlag{
				Name:  "default-retry-delay",
				Usage: "Retry delay for tasks that do not set one",
				Value: defaultRetryDelay,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Taskline API")

			tracerProvider, err := otelhelper.NewTracerProvider(ctx, "taskline-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			defaults := plan.Defaults{
				MaxRetries: command.Int("default-max-retries"),
				RetryDelay: command.Duration("default-retry-delay"),
			}

			engineOpts := engine.Options{
				DispatchTimeout: command.Duration("dispatch-timeout"),
				MaxWorkers:      command.Int("max-workers"),
				Logger:          logger,
				EventBus:        eventBus,
				Tracer:          tracerProvider.Tracer("taskline-api"),
			}

			api := NewAPI(logger, store, registry, defaults, engineOpts)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
