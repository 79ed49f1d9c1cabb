// Package kafka provides the watermill Kafka channel used by the event bus.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// CreateChannel builds the Kafka publisher/subscriber pair for the
// compliance event topic. Brokers come from KAFKA_BROKERS (comma-separated).
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, nil, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	subscriber, err := newSubscriber(logger, brokers, serviceName)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := newPublisher(logger, brokers, serviceName)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

func newSubscriber(logger watermill.LoggerAdapter, brokers []string, serviceName string) (*kafka.Subscriber, error) {
	config := kafka.DefaultSaramaSubscriberConfig()
	config.ClientID = serviceName
	// Notification projectors replay the whole topic on first attach.
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: config,
			ConsumerGroup:         "cg-" + serviceName,
			OTELEnabled:           true,
		},
		logger,
	)
}

func newPublisher(logger watermill.LoggerAdapter, brokers []string, serviceName string) (*kafka.Publisher, error) {
	config := sarama.NewConfig()
	config.ClientID = serviceName
	config.Producer.Return.Successes = true
	// Alert and deviation events drive user-visible notifications, so wait
	// for full ISR acknowledgement rather than leader-only.
	config.Producer.RequiredAcks = sarama.WaitForAll

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: config,
			OTELEnabled:           true,
		},
		logger,
	)
}
