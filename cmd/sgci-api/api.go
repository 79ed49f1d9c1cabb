// Package main provides the SGCI API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/cumplia/sgci/pkg/cache"
	"github.com/cumplia/sgci/pkg/checklist"
	"github.com/cumplia/sgci/pkg/eventbus"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/cumplia/sgci/pkg/services"
	"github.com/cumplia/sgci/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	scoreCache  cache.ScoreCache
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	scoreCache cache.ScoreCache,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		scoreCache:  scoreCache,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SeedCatalog loads a checklist catalog file and upserts its items.
func (a *API) SeedCatalog(ctx context.Context, path string) error {
	items, err := checklist.Load(path)
	if err != nil {
		return err
	}

	err = checklist.Seed(ctx, a.persistence, items)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "Checklist catalog seeded", "items", len(items))

	return nil
}

func (a *API) App() *fiber.App {
	thresholds := services.DefaultThresholds()

	compliance := services.NewCompliance(a.persistence, a.eventBus, a.logger)
	tracker := services.NewTracker(a.persistence, a.eventBus, a.logger)
	assessor := services.NewAssessor(a.persistence, a.eventBus, thresholds, a.logger)
	registry := services.NewRegistry(a.persistence, a.eventBus, a.logger)
	engine := services.NewEngine(a.persistence, compliance, a.eventBus, thresholds, a.logger)

	handlers := web.NewAPIHandlers(a.persistence, compliance, tracker, assessor, registry, engine, a.scoreCache, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("SGCI API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
