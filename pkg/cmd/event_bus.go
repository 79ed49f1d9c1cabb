package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cumplia/sgci/pkg/channels/gochannel"
	"github.com/cumplia/sgci/pkg/channels/kafka"
	"github.com/cumplia/sgci/pkg/eventbus"
)

// NewEventBus creates the event bus for the given provider. The gochannel
// provider keeps everything in-process and is the default for local runs.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "sgci")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
