// Package main provides the SGCI alert checker daemon.
package main

import (
	"context"
	"log/slog"

	"github.com/cumplia/sgci/pkg/eventbus"
	"github.com/cumplia/sgci/pkg/otelhelper"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/cumplia/sgci/pkg/services"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Checker sweeps every institution on a cron schedule and regenerates
// its alerts.
type Checker struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *services.Engine
	tracer      trace.Tracer
}

func NewChecker(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
) (*Checker, error) {
	tracer, err := otelhelper.NewTracer(context.Background(), "sgci-checker")
	if err != nil {
		return nil, err
	}

	thresholds := services.DefaultThresholds()
	compliance := services.NewCompliance(persistence, eventBus, logger)
	engine := services.NewEngine(persistence, compliance, eventBus, thresholds, logger)

	return &Checker{
		logger:      logger,
		persistence: persistence,
		engine:      engine,
		tracer:      tracer,
	}, nil
}

// Start blocks until the context is cancelled.
func (c *Checker) Start(ctx context.Context, schedule string) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(schedule, func() {
		c.sweep(ctx)
	})
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Checker started", "schedule", schedule)

	scheduler.Start()

	// Run one sweep immediately so a fresh deployment does not wait a
	// full period for its first alerts.
	c.sweep(ctx)

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	return nil
}

func (c *Checker) sweep(ctx context.Context) {
	institutions, err := c.persistence.Institutions().GetAll(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to list institutions", "error", err)

		return
	}

	for _, institution := range institutions {
		spanCtx, span := otelhelper.StartSpan(ctx, c.tracer, "checker.sweep evaluate",
			attribute.String(otelhelper.InstitutionIDKey, institution.ID),
		)

		alerts, err := c.engine.Evaluate(spanCtx, institution.ID)
		if err != nil {
			otelhelper.SetError(span, err)
			c.logger.ErrorContext(spanCtx, "Alert evaluation failed",
				"institution_id", institution.ID, "error", err)
			span.End()

			continue
		}

		c.logger.InfoContext(spanCtx, "Alert evaluation finished",
			"institution_id", institution.ID, "alerts", len(alerts))
		span.End()
	}
}
