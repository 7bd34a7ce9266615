package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/printshop-os/opsboard/shared/rabbitmq"
)

// AMQPPublisher publishes events to the shop automation exchange. The routing
// key is the event type, so consumers bind with patterns like "job.*".
type AMQPPublisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewAMQPPublisher wraps an established RabbitMQ client.
func NewAMQPPublisher(client *rabbitmq.Client, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		client: client,
		logger: logger,
	}
}

// Publish sends one event, retrying transient broker failures.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}

	if err := p.client.PublishWithRetry(ctx, string(event.Type), body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	p.logger.Debug("Event published",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
	)
	return nil
}

// Close shuts down the underlying connection.
func (p *AMQPPublisher) Close() error {
	return p.client.Close()
}
