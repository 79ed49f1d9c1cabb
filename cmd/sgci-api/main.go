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

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	cmd := &cli.Command{
		Name:                  "sgci-api",
		Usage:                 "Serve the internal control compliance API",
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
				Name:    "redis-url",
				Usage:   "Redis URL for the score cache (disabled when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "catalog-path",
				Usage:   "Path to a checklist catalog JSON file to seed on startup",
				Sources: cli.EnvVars("CATALOG_PATH"),
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

			logger.InfoContext(ctx, "Initializing SGCI API")

			tracerProvider, err := otelhelper.InitTracer(ctx, "sgci-api")
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

			scoreCache := cmd.NewScoreCache(ctx, logger, command.String("redis-url"))
			defer scoreCache.Close()

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				scoreCache,
			)

			if catalogPath := command.String("catalog-path"); catalogPath != "" {
				if err := api.SeedCatalog(ctx, catalogPath); err != nil {
					return fmt.Errorf("failed to seed checklist catalog: %w", err)
				}
			}

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
