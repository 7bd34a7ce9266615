// Package handler implements the HTTP handlers of the api-service. Reads are
// served from the in-memory snapshot; writes go to the CMS directly and fall
// back to the outbox when the CMS is unreachable.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/events"
	"github.com/printshop-os/opsboard/internal/outbox"
	"github.com/printshop-os/opsboard/internal/schedule"
	"github.com/printshop-os/opsboard/internal/snapshot"
)

// CMS is the slice of the CMS client handlers mutate through.
type CMS interface {
	UpdateJobStatus(ctx context.Context, id string, status domain.Status) error
	MarkInvoicePaid(ctx context.Context, id string) error
	SaveSOP(ctx context.Context, id, content string) error
}

// Dependencies holds all dependencies needed by handlers.
type Dependencies struct {
	Logger    *slog.Logger
	Snapshot  *snapshot.Store
	CMS       CMS
	Outbox    *outbox.Store
	Publisher events.Publisher

	// Schedule view settings.
	Location      *time.Location
	DailyCapacity int

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dependencies) location() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.Local
}

func (d *Dependencies) capacity() int {
	if d.DailyCapacity > 0 {
		return d.DailyCapacity
	}
	return schedule.DefaultDailyCapacity
}

func (d *Dependencies) publish(ctx context.Context, eventType events.Type, data map[string]any) {
	if d.Publisher == nil {
		return
	}
	if err := d.Publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		d.Logger.Warn("Failed to publish event",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()),
		)
	}
}

// applyOrQueue runs the direct CMS write and, when it fails retryably, queues
// the mutation for the worker instead. On success both returns are nil; a
// non-nil mutation means the write was queued.
func (d *Dependencies) applyOrQueue(ctx context.Context, direct func(context.Context) error, kind outbox.Kind, targetID string, payload any) (*outbox.Mutation, error) {
	err := direct(ctx)
	if err == nil {
		return nil, nil
	}
	if !domain.IsRetryable(err) {
		return nil, err
	}

	d.Logger.Warn("CMS write failed, queueing mutation for replay",
		slog.String("kind", string(kind)),
		slog.String("target_id", targetID),
		slog.String("error", err.Error()),
	)

	mutation, enqueueErr := d.Outbox.Enqueue(ctx, kind, targetID, payload)
	if enqueueErr != nil {
		d.Logger.Error("Failed to enqueue mutation",
			slog.String("kind", string(kind)),
			slog.String("target_id", targetID),
			slog.String("error", enqueueErr.Error()),
		)
		// Surface the original CMS failure; the caller maps it to 503.
		return nil, err
	}
	return mutation, nil
}
