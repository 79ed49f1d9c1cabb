package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cumplia/sgci/pkg/cmd"
	"github.com/cumplia/sgci/pkg/log"
	"github.com/cumplia/sgci/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("checker")

	cmd := &cli.Command{
		Name:                  "sgci-checker",
		Usage:                 "Periodically evaluate alert rules for every institution",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the alert sweep",
				Value:   "@every 1h",
				Sources: cli.EnvVars("CHECKER_SCHEDULE"),
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

			logger.InfoContext(ctx, "Initializing SGCI Checker")

			tracerProvider, err := otelhelper.InitTracer(ctx, "sgci-checker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			checker, err := NewChecker(logger, persistence, eventBus)
			if err != nil {
				return fmt.Errorf("failed to create checker: %w", err)
			}

			return checker.Start(ctx, command.String("schedule"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
