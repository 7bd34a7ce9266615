// Package outbox queues CMS mutations that could not be applied immediately
// (the CMS was down or flapping) in an embedded SQLite table. The api-service
// enqueues; the worker-service claims and replays. Replays are last-write-wins
// against the CMS, matching the direct mutation path.
package outbox

import (
	"database/sql"
	"time"
)

// Kind identifies which CMS write a mutation replays.
type Kind string

const (
	KindJobStatus   Kind = "job_status"
	KindInvoicePaid Kind = "invoice_paid"
	KindSOPContent  Kind = "sop_content"
)

// Mutation lifecycle states.
const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// Status is the outbox lifecycle state of a mutation.
type Status string

// Mutation is one queued CMS write.
type Mutation struct {
	ID            string         `db:"id"`
	Kind          Kind           `db:"kind"`
	TargetID      string         `db:"target_id"`
	Payload       []byte         `db:"payload"`
	Status        Status         `db:"status"`
	Attempts      int            `db:"attempts"`
	MaxAttempts   int            `db:"max_attempts"`
	LastError     sql.NullString `db:"last_error"`
	NextAttemptAt time.Time      `db:"next_attempt_at"`
	ClaimedBy     sql.NullString `db:"claimed_by"`
	ClaimedAt     sql.NullTime   `db:"claimed_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// JobStatusPayload is the payload for KindJobStatus mutations.
type JobStatusPayload struct {
	Status string `json:"status"`
}

// SOPContentPayload is the payload for KindSOPContent mutations.
type SOPContentPayload struct {
	Content string `json:"content"`
}

// Stats are per-state mutation counts for the sync-status endpoint.
type Stats struct {
	Pending int `json:"pending" db:"pending"`
	Syncing int `json:"syncing" db:"syncing"`
	Synced  int `json:"synced" db:"synced"`
	Failed  int `json:"failed" db:"failed"`
}

// Backlog is the number of mutations still waiting to reach the CMS.
func (s Stats) Backlog() int {
	return s.Pending + s.Syncing
}
