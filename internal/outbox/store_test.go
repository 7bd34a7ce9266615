package outbox

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printshop-os/opsboard/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, &Config{
		MaxAttempts:    3,
		RetryBaseDelay: time.Minute,
		RetryMaxDelay:  time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store
}

func TestStoreEnqueueAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindJobStatus, "ord-17", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)
	require.NotEmpty(t, mutation.ID)

	got, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)
	assert.Equal(t, KindJobStatus, got.Kind)
	assert.Equal(t, "ord-17", got.TargetID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, 3, got.MaxAttempts)
	assert.JSONEq(t, `{"status": "printing"}`, string(got.Payload))
}

func TestStoreGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, domain.ErrMutationNotFound)
}

func TestStoreClaimNext_IsExclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindInvoicePaid, "inv-9", nil)
	require.NoError(t, err)

	first, err := store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, mutation.ID, first.ID)
	assert.Equal(t, StatusSyncing, first.Status)
	assert.Equal(t, "worker-1", first.ClaimedBy.String)

	second, err := store.ClaimNext(ctx, "worker-2")
	require.NoError(t, err)
	assert.Nil(t, second, "a syncing mutation cannot be claimed again")
}

func TestStoreClaimNext_EmptyQueue(t *testing.T) {
	store := newTestStore(t)

	claimed, err := store.ClaimNext(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestStoreClaimNext_FIFO(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, KindJobStatus, "ord-1", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindJobStatus, "ord-2", JobStatusPayload{Status: "finishing"})
	require.NoError(t, err)

	claimed, err := store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID, "oldest mutation is claimed first")
}

func TestStoreMarkSynced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindSOPContent, "sop-1", SOPContentPayload{Content: "updated"})
	require.NoError(t, err)

	_, err = store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, store.MarkSynced(ctx, mutation.ID))

	got, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, got.Status)

	assert.ErrorIs(t, store.MarkSynced(ctx, "no-such-id"), domain.ErrMutationNotFound)
}

func TestStoreMarkRetry_ReschedulesWithBackoff(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindJobStatus, "ord-17", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)

	claimed, err := store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	before := time.Now().UTC()
	status, err := store.MarkRetry(ctx, mutation.ID, "cms timeout")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)

	got, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "cms timeout", got.LastError.String)
	assert.False(t, got.ClaimedBy.Valid, "claim is released")
	assert.True(t, got.NextAttemptAt.After(before.Add(30*time.Second)), "first retry waits out the base delay")

	claimed, err = store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	assert.Nil(t, claimed, "not claimable until the backoff elapses")
}

func TestStoreMarkRetry_GrowingDelay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindJobStatus, "ord-17", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)

	// First failure: one base delay out.
	_, err = store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	_, err = store.MarkRetry(ctx, mutation.ID, "cms timeout")
	require.NoError(t, err)

	first, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)

	// Force the row claimable again without waiting out the schedule.
	_, err = store.db.ExecContext(ctx, `UPDATE mutations SET next_attempt_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Second), mutation.ID)
	require.NoError(t, err)

	_, err = store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	before := time.Now().UTC()
	_, err = store.MarkRetry(ctx, mutation.ID, "cms timeout")
	require.NoError(t, err)

	second, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)

	firstDelay := first.NextAttemptAt.Sub(first.UpdatedAt)
	secondDelay := second.NextAttemptAt.Sub(before)
	assert.Greater(t, secondDelay, firstDelay, "delay grows with each attempt")
}

func TestStoreMarkRetry_DeadLettersAtMaxAttempts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindJobStatus, "ord-17", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		_, err = store.db.ExecContext(ctx, `UPDATE mutations SET next_attempt_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Second), mutation.ID)
		require.NoError(t, err)

		claimed, err := store.ClaimNext(ctx, "worker-1")
		require.NoError(t, err)
		require.NotNil(t, claimed, "attempt %d should claim", attempt)

		status, err := store.MarkRetry(ctx, mutation.ID, "cms timeout")
		require.NoError(t, err)

		if attempt < 3 {
			assert.Equal(t, StatusPending, status)
		} else {
			assert.Equal(t, StatusFailed, status, "third failure exhausts max_attempts")
		}
	}

	got, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
}

func TestStoreMarkRetry_RequiresClaim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindJobStatus, "ord-17", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)

	_, err = store.MarkRetry(ctx, mutation.ID, "nope")
	assert.ErrorIs(t, err, domain.ErrMutationNotFound, "only syncing mutations can be rescheduled")
}

func TestStoreMarkFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindJobStatus, "ord-17", JobStatusPayload{Status: "nonsense"})
	require.NoError(t, err)

	_, err = store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, mutation.ID, "unknown status"))

	got, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "unknown status", got.LastError.String)
}

func TestStoreReleaseStale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mutation, err := store.Enqueue(ctx, KindJobStatus, "ord-17", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)

	_, err = store.ClaimNext(ctx, "worker-dead")
	require.NoError(t, err)

	// A generous cutoff leaves the fresh claim alone.
	released, err := store.ReleaseStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, released)

	// A zero cutoff reclaims anything currently syncing.
	released, err = store.ReleaseStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	got, err := store.Get(ctx, mutation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.False(t, got.ClaimedBy.Valid)

	claimed, err := store.ClaimNext(ctx, "worker-2")
	require.NoError(t, err)
	require.NotNil(t, claimed, "released mutation is claimable again")
}

func TestStoreStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, KindJobStatus, "ord-1", JobStatusPayload{Status: "printing"})
	require.NoError(t, err)
	second, err := store.Enqueue(ctx, KindJobStatus, "ord-2", JobStatusPayload{Status: "finishing"})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, KindInvoicePaid, "inv-1", nil)
	require.NoError(t, err)

	_, err = store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)

	claimed, err := store.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, second.ID, claimed.ID)
	require.NoError(t, store.MarkSynced(ctx, second.ID))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1, Syncing: 1, Synced: 1, Failed: 0}, stats)
	assert.Equal(t, 2, stats.Backlog())
}
