// Package events defines the shop-automation events this service emits.
// Downstream consumers (workflow automations, notification bots) bind their
// own queues; we only publish.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type is the event name, doubling as the AMQP routing key.
type Type string

const (
	TypeJobStatusChanged   Type = "job.status.changed"
	TypeInvoicePaid        Type = "invoice.paid"
	TypeSOPUpdated         Type = "sop.updated"
	TypeCapacityOverbooked Type = "capacity.overbooked"
	TypeSyncMutationFailed Type = "sync.mutation.failed"
)

// Event is the wire format for a single emitted event.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New builds an event with a fresh id stamped at the current time.
func New(eventType Type, data map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher emits events to whatever transport is configured.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when eventing is disabled in config.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (NopPublisher) Close() error { return nil }
