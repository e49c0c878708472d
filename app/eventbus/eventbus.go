// Package eventbus publishes domain events to NATS JetStream through
// watermill. The services only see the small events.Publisher interface;
// everything here is plumbing.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/esolangs/codeguessing/app/shared/events"
)

// EventBus is the NATS-backed events.Publisher.
type EventBus struct {
	publisher message.Publisher
	conn      *nc.Conn
	logger    *slog.Logger
}

var _ events.Publisher = (*EventBus)(nil)

// NewEventBus connects to NATS and builds a JetStream publisher.
func NewEventBus(natsURL string, logger *slog.Logger) (*EventBus, error) {
	conn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	publisher, err := wnats.NewPublisher(
		wnats.PublisherConfig{
			URL:       natsURL,
			Marshaler: &wnats.NATSMarshaler{},
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
			JetStream: wnats.JetStreamConfig{AutoProvision: true},
		},
		watermillLogger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	return &EventBus{
		publisher: publisher,
		conn:      conn,
		logger:    logger,
	}, nil
}

// Publish marshals payload as JSON and publishes it on topic.
func (b *EventBus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	b.logger.Debug("Publishing event",
		slog.String("topic", topic),
		slog.Int("payload_bytes", len(data)),
	)
	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", topic, err)
	}
	return nil
}

// Close shuts down the publisher and the NATS connection.
func (b *EventBus) Close() error {
	err := b.publisher.Close()
	b.conn.Close()
	return err
}
