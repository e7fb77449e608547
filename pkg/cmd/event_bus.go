package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/taskline/taskline/pkg/eventbus"
)

// NewEventBus creates an event bus based on the provider name. The Kafka
// provider reads brokers from kafkaBrokers as a comma separated list.
func NewEventBus(provider, kafkaBrokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		return eventbus.NewGoChannel(wmLogger), nil
	case "kafka":
		brokers := strings.Split(kafkaBrokers, ",")

		bus, err := eventbus.NewKafka(brokers, "taskline", wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka event bus: %w", err)
		}

		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
