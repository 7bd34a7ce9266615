// Package worker drains the mutation outbox against the CMS. A dispatcher
// claims due mutations and feeds them to a pool of goroutines; each replay
// either syncs, reschedules with backoff, or dead-letters.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/events"
	"github.com/printshop-os/opsboard/internal/outbox"
)

// Syncer is the slice of the CMS client the worker replays mutations through.
type Syncer interface {
	Health(ctx context.Context) error
	WaitForHealthy(ctx context.Context, maxWait, interval time.Duration) error
	UpdateJobStatus(ctx context.Context, id string, status domain.Status) error
	MarkInvoicePaid(ctx context.Context, id string) error
	SaveSOP(ctx context.Context, id, content string) error
}

// Config holds worker configuration.
type Config struct {
	WorkerID       string
	Concurrency    int
	PollInterval   time.Duration
	SyncTimeout    time.Duration
	StaleClaimAge  time.Duration
	HealthMaxWait  time.Duration
	HealthInterval time.Duration
}

// Worker replays queued mutations against the CMS.
type Worker struct {
	config    *Config
	store     *outbox.Store
	syncer    Syncer
	publisher events.Publisher
	logger    *slog.Logger

	jobsChan chan *outbox.Mutation
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a new worker instance.
func NewWorker(config *Config, store *outbox.Store, syncer Syncer, publisher events.Publisher, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = "worker-" + uuid.New().String()[:8]
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.SyncTimeout <= 0 {
		config.SyncTimeout = 30 * time.Second
	}
	if config.StaleClaimAge <= 0 {
		config.StaleClaimAge = 5 * time.Minute
	}
	if config.HealthMaxWait <= 0 {
		config.HealthMaxWait = 2 * time.Minute
	}
	if config.HealthInterval <= 0 {
		config.HealthInterval = 5 * time.Second
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Worker{
		config:    config,
		store:     store,
		syncer:    syncer,
		publisher: publisher,
		logger:    logger,
		jobsChan:  make(chan *outbox.Mutation, config.Concurrency),
		stopChan:  make(chan struct{}),
	}
}

// Run drains the outbox until the context is canceled. It blocks.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.config.WorkerID),
		slog.Int("concurrency", w.config.Concurrency),
		slog.Duration("poll_interval", w.config.PollInterval),
		slog.Duration("sync_timeout", w.config.SyncTimeout),
	)

	if err := w.syncer.WaitForHealthy(ctx, w.config.HealthMaxWait, w.config.HealthInterval); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Not fatal: each drain cycle re-probes, so the worker just idles
		// until the CMS comes back.
		w.logger.Warn("CMS not healthy at startup, draining waits for recovery",
			slog.String("error", err.Error()),
		)
	}

	released, err := w.store.ReleaseStale(ctx, w.config.StaleClaimAge)
	if err != nil {
		w.logger.Error("Failed to release stale claims at startup",
			slog.String("error", err.Error()),
		)
	} else if released > 0 {
		w.logger.Warn("Released stale mutation claims from a previous run",
			slog.Int64("released", released),
		)
	}

	w.spawnWorkerPool(ctx)
	w.dispatchLoop(ctx)

	w.logger.Info("Worker run loop finished")
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
