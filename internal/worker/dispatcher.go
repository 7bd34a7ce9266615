package worker

import (
	"context"
	"log/slog"
	"time"
)

// dispatchLoop polls the outbox and feeds claimed mutations to the worker
// pool. It blocks until the context is canceled or the worker is stopped.
func (w *Worker) dispatchLoop(ctx context.Context) {
	w.logger.Info("Outbox dispatcher started",
		slog.String("worker_id", w.config.WorkerID),
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	releaseTicker := time.NewTicker(w.config.StaleClaimAge)
	defer releaseTicker.Stop()

	w.drainCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Outbox dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Outbox dispatcher stopped - stopChan closed")
			return

		case <-releaseTicker.C:
			released, err := w.store.ReleaseStale(ctx, w.config.StaleClaimAge)
			if err != nil {
				w.logger.Error("Failed to release stale claims",
					slog.String("error", err.Error()),
				)
			} else if released > 0 {
				w.logger.Warn("Released stale mutation claims",
					slog.Int64("released", released),
				)
			}

		case <-ticker.C:
			w.drainCycle(ctx)
		}
	}
}

// drainCycle claims due mutations until the queue is empty. The CMS health
// probe gates the whole cycle: replaying into a down CMS would only burn
// attempts, so the backlog stays queued until the probe passes.
func (w *Worker) drainCycle(ctx context.Context) {
	if err := w.syncer.Health(ctx); err != nil {
		w.logger.Warn("CMS unhealthy, skipping drain cycle",
			slog.String("error", err.Error()),
		)
		return
	}

	for {
		mutation, err := w.store.ClaimNext(ctx, w.config.WorkerID)
		if err != nil {
			w.logger.Error("Failed to claim mutation",
				slog.String("error", err.Error()),
			)
			return
		}
		if mutation == nil {
			return
		}

		w.logger.Debug("Mutation dispatched to worker pool",
			slog.String("mutation_id", mutation.ID),
			slog.String("kind", string(mutation.Kind)),
		)

		select {
		case w.jobsChan <- mutation:

		case <-ctx.Done():
			// The claim stays in place; ReleaseStale on the next run
			// returns it to pending.
			w.logger.Warn("Dispatcher stopping with a claimed mutation in flight",
				slog.String("mutation_id", mutation.ID),
			)
			return

		case <-w.stopChan:
			w.logger.Warn("Dispatcher stopping with a claimed mutation in flight",
				slog.String("mutation_id", mutation.ID),
			)
			return
		}
	}
}
