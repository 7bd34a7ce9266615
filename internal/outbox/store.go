package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/printshop-os/opsboard/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS mutations (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	target_id       TEXT NOT NULL,
	payload         BLOB NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	attempts        INTEGER NOT NULL DEFAULT 0,
	max_attempts    INTEGER NOT NULL DEFAULT 5,
	last_error      TEXT,
	next_attempt_at TIMESTAMP NOT NULL,
	claimed_by      TEXT,
	claimed_at      TIMESTAMP,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mutations_claim ON mutations (status, next_attempt_at);
`

// Config holds outbox retry tuning.
type Config struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Store handles all outbox database operations
type Store struct {
	db     *sqlx.DB
	config *Config
	logger *slog.Logger
}

// NewStore creates a new Store instance and ensures the schema exists.
func NewStore(db *sqlx.DB, config *Config, logger *slog.Logger) (*Store, error) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 30 * time.Second
	}
	if config.RetryMaxDelay <= 0 {
		config.RetryMaxDelay = 30 * time.Minute
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create outbox schema: %w", err)
	}

	return &Store{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// Enqueue inserts a new pending mutation, due immediately.
func (s *Store) Enqueue(ctx context.Context, kind Kind, targetID string, payload any) (*Mutation, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mutation payload: %w", err)
	}

	now := time.Now().UTC()
	mutation := &Mutation{
		ID:            uuid.New().String(),
		Kind:          kind,
		TargetID:      targetID,
		Payload:       body,
		Status:        StatusPending,
		MaxAttempts:   s.config.MaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO mutations (id, kind, target_id, payload, status, attempts, max_attempts, next_attempt_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		mutation.ID, mutation.Kind, mutation.TargetID, mutation.Payload,
		mutation.Status, mutation.MaxAttempts, mutation.NextAttemptAt,
		mutation.CreatedAt, mutation.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	s.logger.Info("Mutation enqueued",
		slog.String("mutation_id", mutation.ID),
		slog.String("kind", string(kind)),
		slog.String("target_id", targetID),
	)

	return mutation, nil
}

// Get retrieves a mutation by id.
func (s *Store) Get(ctx context.Context, id string) (*Mutation, error) {
	var mutation Mutation
	err := s.db.GetContext(ctx, &mutation, `SELECT * FROM mutations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMutationNotFound
		}
		return nil, fmt.Errorf("failed to get mutation: %w", err)
	}
	return &mutation, nil
}

// ClaimNext attempts to claim the oldest due pending mutation using
// optimistic locking. Returns nil with no error when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context, workerID string) (*Mutation, error) {
	now := time.Now().UTC()
	query := `
		UPDATE mutations
		SET status = ?,
		    claimed_by = ?,
		    claimed_at = ?,
		    updated_at = ?
		WHERE id = (
			SELECT id FROM mutations
			WHERE status = ? AND next_attempt_at <= ?
			ORDER BY created_at
			LIMIT 1
		) AND status = ?
		RETURNING id, kind, target_id, payload, status, attempts, max_attempts, last_error, next_attempt_at, claimed_by, claimed_at, created_at, updated_at
	`

	var mutation Mutation
	err := s.db.QueryRowxContext(ctx, query,
		StatusSyncing, workerID, now, now,
		StatusPending, now,
		StatusPending,
	).StructScan(&mutation)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim mutation: %w", err)
	}

	s.logger.Info("Mutation claimed",
		slog.String("mutation_id", mutation.ID),
		slog.String("worker_id", workerID),
		slog.String("kind", string(mutation.Kind)),
		slog.Int("attempts", mutation.Attempts),
	)

	return &mutation, nil
}

// MarkSynced records a successful replay.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	query := `
		UPDATE mutations
		SET status = ?, last_error = NULL, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, StatusSynced, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark mutation synced: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrMutationNotFound
	}

	s.logger.Info("Mutation synced",
		slog.String("mutation_id", id),
	)
	return nil
}

// MarkRetry reschedules a claimed mutation after a transient failure with an
// exponentially growing delay, dead-lettering it once attempts reach the
// maximum. Returns the resulting status (pending or failed).
func (s *Store) MarkRetry(ctx context.Context, id, cause string) (Status, error) {
	now := time.Now().UTC()
	query := `
		UPDATE mutations
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= max_attempts THEN ? ELSE ? END,
		    last_error = ?,
		    claimed_by = NULL,
		    claimed_at = NULL,
		    updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING status, attempts
	`

	var status Status
	var attempts int
	err := s.db.QueryRowContext(ctx, query,
		StatusFailed, StatusPending, cause, now, id, StatusSyncing,
	).Scan(&status, &attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrMutationNotFound
		}
		return "", fmt.Errorf("failed to mark mutation for retry: %w", err)
	}

	if status == StatusPending {
		next := now.Add(s.backoffDelay(attempts))
		if _, err := s.db.ExecContext(ctx,
			`UPDATE mutations SET next_attempt_at = ? WHERE id = ?`, next, id,
		); err != nil {
			return status, fmt.Errorf("failed to schedule next attempt: %w", err)
		}

		s.logger.Warn("Mutation rescheduled",
			slog.String("mutation_id", id),
			slog.Int("attempts", attempts),
			slog.Time("next_attempt_at", next),
			slog.String("cause", cause),
		)
		return status, nil
	}

	s.logger.Error("Mutation dead-lettered after max attempts",
		slog.String("mutation_id", id),
		slog.Int("attempts", attempts),
		slog.String("cause", cause),
	)
	return status, nil
}

// MarkFailed dead-letters a mutation immediately on a permanent error.
func (s *Store) MarkFailed(ctx context.Context, id, cause string) error {
	query := `
		UPDATE mutations
		SET status = ?, last_error = ?, claimed_by = NULL, claimed_at = NULL, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, StatusFailed, cause, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark mutation failed: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrMutationNotFound
	}

	s.logger.Error("Mutation failed permanently",
		slog.String("mutation_id", id),
		slog.String("cause", cause),
	)
	return nil
}

// ReleaseStale returns mutations claimed longer than olderThan ago to the
// pending state. Covers workers that died mid-replay.
func (s *Store) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-olderThan)

	query := `
		UPDATE mutations
		SET status = ?, claimed_by = NULL, claimed_at = NULL, next_attempt_at = ?, updated_at = ?
		WHERE status = ? AND claimed_at < ?
	`
	result, err := s.db.ExecContext(ctx, query, StatusPending, now, now, StatusSyncing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	released, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if released > 0 {
		s.logger.Warn("Released stale mutation claims",
			slog.Int64("count", released),
		)
	}
	return released, nil
}

// Stats returns per-state mutation counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT
			COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending,
			COUNT(CASE WHEN status = 'syncing' THEN 1 END) AS syncing,
			COUNT(CASE WHEN status = 'synced' THEN 1 END) AS synced,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) AS failed
		FROM mutations
	`
	var stats Stats
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return Stats{}, fmt.Errorf("failed to get outbox stats: %w", err)
	}
	return stats, nil
}

// backoffDelay returns the delay before the given attempt number retries,
// capped at the configured maximum.
func (s *Store) backoffDelay(attempts int) time.Duration {
	delay := time.Duration(float64(s.config.RetryBaseDelay) * float64(uint(1)<<uint(attempts-1)))
	if delay > s.config.RetryMaxDelay || delay <= 0 {
		return s.config.RetryMaxDelay
	}
	return delay
}
