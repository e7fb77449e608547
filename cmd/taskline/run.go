package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/taskline/taskline/pkg/cmd"
	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/log"
	"github.com/taskline/taskline/pkg/models"
	"github.com/taskline/taskline/pkg/plan"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Execute a plan file and print the run result",
		ArgsUsage: "<plan.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for run persistence (empty disables archiving)",
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
				Name:  "plugins-path",
				Usage: "Path to the directory containing tool and handler plugins",
			},
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "Run independent tasks concurrently",
			},
			&cli.DurationFlag{
				Name:  "dispatch-timeout",
				Usage: "Per-attempt execution timeout (0 disables)",
			},
			&cli.IntFlag{
				Name:  "max-workers",
				Usage: "Concurrent task limit for parallel runs",
			},
			&cli.IntFlag{
				Name:  "default-max-retries",
				Usage: "Retry budget for tasks that do not set one",
			},
			&cli.DurationFlag{
				Name:  "default-retry-delay",
				Usage: "Retry delay for tasks that do not set one",
				Value: 5 * time.Second,
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
			logger := log.WithModule("cli")

			planPath := command.Args().First()
			if planPath == "" {
				return fmt.Errorf("plan file argument is required")
			}

			data, err := os.ReadFile(planPath)
			if err != nil {
				return fmt.Errorf("failed to read plan file: %w", err)
			}

			parsed, err := plan.Parse(data)
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			wf, err := parsed.Materialize(registry, plan.Defaults{
				MaxRetries: command.Int("default-max-retries"),
				RetryDelay: command.Duration("default-retry-delay"),
			})
			if err != nil {
				return err
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			eng := engine.New(registry, engine.Options{
				DispatchTimeout: command.Duration("dispatch-timeout"),
				MaxWorkers:      command.Int("max-workers"),
				Logger:          logger,
				EventBus:        eventBus,
			})

			// First signal aborts pending tasks, a second one kills the process.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				<-sigCh
				logger.Warn("Abort requested, skipping pending tasks")
				eng.Abort()
				signal.Stop(sigCh)
			}()

			var result *engine.RunResult
			if command.Bool("parallel") {
				result = eng.RunParallel(ctx, wf)
			} else {
				result = eng.Run(ctx, wf)
			}

			if databaseURL := command.String("database-url"); databaseURL != "" {
				store, err := cmd.NewPersistence(ctx, logger, databaseURL)
				if err != nil {
					return err
				}

				defer func() {
					if err := store.Close(ctx); err != nil {
						logger.Error("Failed to close persistence", "error", err)
					}
				}()

				if err := store.SaveRun(ctx, result); err != nil {
					return fmt.Errorf("failed to archive run: %w", err)
				}
			}

			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode run result: %w", err)
			}

			fmt.Println(string(output))

			if result.Status == models.WorkflowStatusFailed {
				return fmt.Errorf("run %s finished with failed tasks", result.RunID)
			}

			return nil
		},
	}
}
