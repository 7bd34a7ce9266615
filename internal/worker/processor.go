package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/events"
	"github.com/printshop-os/opsboard/internal/outbox"
)

// processMutation replays a single claimed mutation and resolves its outbox
// state: synced on success, rescheduled on retryable failure, failed
// otherwise. Dead-lettered and permanently failed mutations emit a
// sync.mutation.failed event so someone can go look.
func (w *Worker) processMutation(ctx context.Context, mutation *outbox.Mutation, workerName string) {
	syncCtx, cancel := context.WithTimeout(ctx, w.config.SyncTimeout)
	defer cancel()

	data, err := w.replay(syncCtx, mutation)
	if err == nil {
		if markErr := w.store.MarkSynced(ctx, mutation.ID); markErr != nil {
			w.logger.Error("Failed to mark mutation synced",
				slog.String("worker_name", workerName),
				slog.String("mutation_id", mutation.ID),
				slog.String("error", markErr.Error()),
			)
			return
		}

		w.logger.Info("Mutation synced",
			slog.String("worker_name", workerName),
			slog.String("mutation_id", mutation.ID),
			slog.String("kind", string(mutation.Kind)),
			slog.String("target_id", mutation.TargetID),
		)

		w.publishSynced(ctx, mutation, data)
		return
	}

	if domain.IsRetryable(err) {
		status, markErr := w.store.MarkRetry(ctx, mutation.ID, err.Error())
		if markErr != nil {
			w.logger.Error("Failed to reschedule mutation",
				slog.String("worker_name", workerName),
				slog.String("mutation_id", mutation.ID),
				slog.String("error", markErr.Error()),
			)
			return
		}
		if status == outbox.StatusFailed {
			w.publishFailed(ctx, mutation, err)
		}
		return
	}

	w.logger.Error("Mutation replay failed permanently",
		slog.String("worker_name", workerName),
		slog.String("mutation_id", mutation.ID),
		slog.String("kind", string(mutation.Kind)),
		slog.String("error", err.Error()),
	)

	if markErr := w.store.MarkFailed(ctx, mutation.ID, err.Error()); markErr != nil {
		w.logger.Error("Failed to mark mutation failed",
			slog.String("worker_name", workerName),
			slog.String("mutation_id", mutation.ID),
			slog.String("error", markErr.Error()),
		)
		return
	}

	w.publishFailed(ctx, mutation, err)
}

// replay applies one mutation to the CMS and returns the event data for the
// corresponding success event. Decode and validation failures are permanent:
// retrying a malformed payload can never succeed.
func (w *Worker) replay(ctx context.Context, mutation *outbox.Mutation) (map[string]any, error) {
	switch mutation.Kind {
	case outbox.KindJobStatus:
		var payload outbox.JobStatusPayload
		if err := json.Unmarshal(mutation.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode job status payload: %w", err)
		}
		status := domain.Status(payload.Status)
		if !domain.IsValidStatus(status) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, payload.Status)
		}
		if err := w.syncer.UpdateJobStatus(ctx, mutation.TargetID, status); err != nil {
			return nil, err
		}
		return map[string]any{
			"job_id": mutation.TargetID,
			"status": string(status),
		}, nil

	case outbox.KindInvoicePaid:
		if err := w.syncer.MarkInvoicePaid(ctx, mutation.TargetID); err != nil {
			return nil, err
		}
		return map[string]any{
			"invoice_id": mutation.TargetID,
		}, nil

	case outbox.KindSOPContent:
		var payload outbox.SOPContentPayload
		if err := json.Unmarshal(mutation.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode sop content payload: %w", err)
		}
		if err := w.syncer.SaveSOP(ctx, mutation.TargetID, payload.Content); err != nil {
			return nil, err
		}
		return map[string]any{
			"sop_id": mutation.TargetID,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported mutation kind %q", mutation.Kind)
	}
}

func (w *Worker) publishSynced(ctx context.Context, mutation *outbox.Mutation, data map[string]any) {
	eventType := eventTypeFor(mutation.Kind)
	if eventType == "" {
		return
	}
	data["mutation_id"] = mutation.ID

	if err := w.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		w.logger.Warn("Failed to publish sync event",
			slog.String("mutation_id", mutation.ID),
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) publishFailed(ctx context.Context, mutation *outbox.Mutation, cause error) {
	event := events.New(events.TypeSyncMutationFailed, map[string]any{
		"mutation_id": mutation.ID,
		"kind":        string(mutation.Kind),
		"target_id":   mutation.TargetID,
		"attempts":    mutation.Attempts + 1,
		"error":       cause.Error(),
	})

	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("Failed to publish sync failure event",
			slog.String("mutation_id", mutation.ID),
			slog.String("error", err.Error()),
		)
	}
}

func eventTypeFor(kind outbox.Kind) events.Type {
	switch kind {
	case outbox.KindJobStatus:
		return events.TypeJobStatusChanged
	case outbox.KindInvoicePaid:
		return events.TypeInvoicePaid
	case outbox.KindSOPContent:
		return events.TypeSOPUpdated
	default:
		return ""
	}
}
