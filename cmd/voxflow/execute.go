package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/voxflow/voxflow/pkg/cmd"
	"github.com/voxflow/voxflow/pkg/engine"
	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/invoker"
	"github.com/voxflow/voxflow/pkg/log"
	"github.com/voxflow/voxflow/pkg/operations"
	"github.com/voxflow/voxflow/pkg/payload"
	"github.com/voxflow/voxflow/pkg/pipeline"
)

func executeCommand() *cli.Command {
	return &cli.Command{
		Name:  "execute",
		Usage: "Run a single execution to completion for one media object",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "bucket",
				Usage:    "Bucket holding the media object",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "key",
				Usage:    "Object key of the media file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Pipeline configuration file (YAML)",
				Sources: cli.EnvVars("PIPELINE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Use in-memory services instead of cloud calls",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), "text")
			logger := log.WithModule(serviceName)

			cfg, err := pipeline.LoadConfig(command.String("config"))
			if err != nil {
				return err
			}

			if command.Bool("dry-run") {
				// No point sleeping through real poll intervals against fakes.
				cfg.PollInterval = pipeline.Duration(1)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			services, err := cmd.NewServices(ctx, cfg, command.Bool("dry-run"))
			if err != nil {
				return err
			}

			inv := invoker.New(logger)
			operations.Register(inv, services)

			eng := engine.New(inv, logger, cfg.EngineOptions())

			seed := payload.Payload{
				"detail": map[string]any{
					"bucket": map[string]any{"name": command.String("bucket")},
					"object": map[string]any{"key": command.String("key")},
				},
			}

			execCtx := execution.NewContext(pipeline.GraphName, seed)

			final, runErr := eng.Run(ctx, pipeline.Graph(cfg), execCtx)

			fmt.Printf("execution: %s\noutcome:   %s\n", final.ID, final.Outcome)

			if final.Failure != nil {
				fmt.Printf("failure:   [%s] at %s: %s\n",
					final.Failure.Kind, final.Failure.State, final.Failure.Message)
			}

			fmt.Printf("payload:   %s\n", final.Payload.Snapshot())

			return runErr
		},
	}
}
