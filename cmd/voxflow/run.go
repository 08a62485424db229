package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/voxflow/voxflow/pkg/activator"
	"github.com/voxflow/voxflow/pkg/cmd"
	"github.com/voxflow/voxflow/pkg/engine"
	"github.com/voxflow/voxflow/pkg/events"
	"github.com/voxflow/voxflow/pkg/invoker"
	"github.com/voxflow/voxflow/pkg/log"
	"github.com/voxflow/voxflow/pkg/operations"
	"github.com/voxflow/voxflow/pkg/pipeline"
	"github.com/voxflow/voxflow/pkg/tracing"
)

const serviceName = "voxflow"

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the activator service consuming object-created events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event channel provider (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "topic",
				Usage:   "Topic carrying object-created events",
				Value:   events.ObjectCreatedTopic,
				Sources: cli.EnvVars("EVENT_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Pipeline configuration file (YAML)",
				Sources: cli.EnvVars("PIPELINE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "checkpoint-url",
				Usage:   "Checkpoint storage URL (file://dir or redis://...); empty disables checkpointing",
				Sources: cli.EnvVars("CHECKPOINT_URL"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent",
				Usage:   "Maximum executions in flight",
				Value:   10,
				Sources: cli.EnvVars("MAX_CONCURRENT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), "json")
			logger := log.WithModule(serviceName)

			cfg, err := pipeline.LoadConfig(command.String("config"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			services, err := cmd.NewServices(ctx, cfg, false)
			if err != nil {
				return err
			}

			inv := invoker.New(logger)
			operations.Register(inv, services)

			eng := engine.New(inv, logger, cfg.EngineOptions())

			checkpoints, err := cmd.NewCheckpointRepository(command.String("checkpoint-url"))
			if err != nil {
				return err
			}

			if checkpoints != nil {
				defer func() {
					if err := checkpoints.Close(context.Background()); err != nil {
						logger.Error("failed to close checkpoint repository", "error", err)
					}
				}()

				eng.WithCheckpoints(checkpoints)
			}

			if command.Bool("tracing") {
				provider, err := tracing.NewProvider(ctx, serviceName)
				if err != nil {
					return err
				}

				defer func() {
					if err := provider.Shutdown(context.Background()); err != nil {
						logger.Error("failed to shut down tracing", "error", err)
					}
				}()

				eng.WithTracer(provider.Tracer)
			}

			_, subscriber, err := cmd.NewChannel(command.String("event-bus"), serviceName, logger)
			if err != nil {
				return err
			}

			act := activator.New(
				subscriber,
				command.String("topic"),
				events.NewSuffixFilter(cfg.AllowedSuffixes...),
				pipeline.Graph(cfg),
				eng,
				logger,
				int(command.Int("max-concurrent")),
			)

			if err := act.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutting down, draining in-flight executions")
			act.Drain()

			return nil
		},
	}
}
