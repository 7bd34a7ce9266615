// Package snapshot holds the in-memory copy of CMS data the dashboard serves
// from. Every poll replaces whole collections at once; readers never observe
// a partial write. Derived views (capacity, kanban, queues) are recomputed
// from the snapshot per request, never cached.
package snapshot

import (
	"sync"
	"time"

	"github.com/printshop-os/opsboard/internal/domain"
)

// Snapshot sources, surfaced on the sync-status endpoint.
const (
	SourceNone = "none"
	SourceCMS  = "cms"
	SourceDemo = "demo"
)

// Collections is one complete fetch of everything the dashboard reads.
type Collections struct {
	Jobs     []domain.Job
	Invoices []domain.Invoice
	SOPs     []domain.SOP
	Products []domain.Product
}

// Status describes snapshot freshness for the offline/sync indicator.
type Status struct {
	Seq                 uint64     `json:"seq"`
	Source              string     `json:"source"`
	FetchedAt           time.Time  `json:"fetched_at"`
	JobCount            int        `json:"job_count"`
	LastError           string     `json:"last_error,omitempty"`
	LastErrorAt         *time.Time `json:"last_error_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// Store is a sequence-guarded holder for the latest snapshot. Writes carry a
// monotonically increasing sequence; a slow fetch that finishes after a newer
// one cannot overwrite fresher data.
type Store struct {
	mu                  sync.RWMutex
	data                Collections
	seq                 uint64
	source              string
	fetchedAt           time.Time
	lastErr             error
	lastErrAt           time.Time
	consecutiveFailures int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{source: SourceNone}
}

// Replace installs a snapshot when seq is newer than the current one and
// resets the failure counters. Stale writes are rejected.
func (s *Store) Replace(seq uint64, data Collections, source string, fetchedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.seq {
		return false
	}

	s.seq = seq
	s.data = data
	s.source = source
	s.fetchedAt = fetchedAt
	s.lastErr = nil
	s.consecutiveFailures = 0
	return true
}

// RecordFailure notes a failed fetch. The retained snapshot keeps serving.
func (s *Store) RecordFailure(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	s.lastErrAt = at
	s.consecutiveFailures++
}

// HasSnapshot reports whether any snapshot has ever been installed.
func (s *Store) HasSnapshot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq > 0
}

// Jobs returns the current job list. Callers must treat it as read-only.
func (s *Store) Jobs() []domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Jobs
}

// Invoices returns the current invoice list. Read-only for callers.
func (s *Store) Invoices() []domain.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Invoices
}

// SOPs returns the current procedure documents. Read-only for callers.
func (s *Store) SOPs() []domain.SOP {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.SOPs
}

// Products returns the current catalog. Read-only for callers.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Products
}

// JobByID looks up a job in the current snapshot.
func (s *Store) JobByID(id string) (domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.data.Jobs {
		if job.ID == id {
			return job, true
		}
	}
	return domain.Job{}, false
}

// InvoiceByID looks up an invoice in the current snapshot.
func (s *Store) InvoiceByID(id string) (domain.Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inv := range s.data.Invoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return domain.Invoice{}, false
}

// SOPByID looks up a procedure document in the current snapshot.
func (s *Store) SOPByID(id string) (domain.SOP, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sop := range s.data.SOPs {
		if sop.ID == id {
			return sop, true
		}
	}
	return domain.SOP{}, false
}

// UpdateJob applies fn to the job with id via copy-on-write so a successful
// direct mutation is visible before the next poll. Reports whether the job
// existed. The sequence is untouched: the next poll still wins.
func (s *Store) UpdateJob(id string, fn func(domain.Job) domain.Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, job := range s.data.Jobs {
		if job.ID == id {
			jobs := make([]domain.Job, len(s.data.Jobs))
			copy(jobs, s.data.Jobs)
			jobs[i] = fn(job)
			s.data.Jobs = jobs
			return true
		}
	}
	return false
}

// UpdateInvoice is the invoice counterpart of UpdateJob.
func (s *Store) UpdateInvoice(id string, fn func(domain.Invoice) domain.Invoice) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, inv := range s.data.Invoices {
		if inv.ID == id {
			invoices := make([]domain.Invoice, len(s.data.Invoices))
			copy(invoices, s.data.Invoices)
			invoices[i] = fn(inv)
			s.data.Invoices = invoices
			return true
		}
	}
	return false
}

// UpdateSOP is the SOP counterpart of UpdateJob.
func (s *Store) UpdateSOP(id string, fn func(domain.SOP) domain.SOP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sop := range s.data.SOPs {
		if sop.ID == id {
			sops := make([]domain.SOP, len(s.data.SOPs))
			copy(sops, s.data.SOPs)
			sops[i] = fn(sop)
			s.data.SOPs = sops
			return true
		}
	}
	return false
}

// Status reports snapshot freshness for the sync endpoint.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Seq:                 s.seq,
		Source:              s.source,
		FetchedAt:           s.fetchedAt,
		JobCount:            len(s.data.Jobs),
		ConsecutiveFailures: s.consecutiveFailures,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
		at := s.lastErrAt
		status.LastErrorAt = &at
	}
	return status
}
