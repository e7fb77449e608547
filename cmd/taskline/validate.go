package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/taskline/taskline/pkg/cmd"
	"github.com/taskline/taskline/pkg/log"
	"github.com/taskline/taskline/pkg/plan"
)

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check a plan file against the schema and the registered capabilities",
		ArgsUsage: "<plan.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "plugins-path",
				Usage: "Path to the directory containing tool and handler plugins",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "error",
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
				var schemaErr *plan.SchemaError
				if errors.As(err, &schemaErr) {
					for _, violation := range schemaErr.Violations {
						fmt.Fprintln(os.Stderr, "violation:", violation)
					}
				}

				return err
			}

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			wf, err := parsed.Materialize(registry, plan.Defaults{})
			if err != nil {
				return err
			}

			fmt.Printf("plan %q is valid: %d task(s)\n", wf.Name, wf.Len())

			return nil
		},
	}
}
