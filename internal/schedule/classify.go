// Package schedule computes the derived production views: capacity buckets,
// kanban columns, sorted queues and priority tiers. Everything here is pure
// computation over a job slice; nothing is persisted and time is always an
// explicit parameter so results are deterministic under test.
package schedule

import (
	"time"

	"github.com/printshop-os/opsboard/internal/domain"
)

// Priority thresholds in hours until the due date. Boundaries are strict:
// a job due in exactly 24h is high, not urgent.
const (
	UrgentWithinHours = 24
	HighWithinHours   = 48
	NormalWithinHours = 168 // 7 days
)

// ClassifyPriority derives the priority tier of a job from its time to due
// date. Overdue jobs classify as urgent. The result is not stable across
// time: recomputing with a later now can reclassify the same job.
func ClassifyPriority(job domain.Job, now time.Time) domain.Priority {
	hoursUntilDue := job.DueDate.Sub(now).Hours()

	switch {
	case hoursUntilDue < UrgentWithinHours:
		return domain.PriorityUrgent
	case hoursUntilDue < HighWithinHours:
		return domain.PriorityHigh
	case hoursUntilDue < NormalWithinHours:
		return domain.PriorityNormal
	default:
		return domain.PriorityLow
	}
}
