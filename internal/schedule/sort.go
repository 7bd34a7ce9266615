package schedule

import (
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/printshop-os/opsboard/internal/domain"
)

// SortKey selects the comparator used by SortJobs.
type SortKey string

const (
	SortByPriority SortKey = "priority"
	SortByDueDate  SortKey = "due_date"
	SortByCustomer SortKey = "customer"
)

// ValidSortKey reports whether k is one of the supported sort keys.
func ValidSortKey(k SortKey) bool {
	switch k {
	case SortByPriority, SortByDueDate, SortByCustomer:
		return true
	}
	return false
}

// SortJobs returns a new slice sorted by the given key; the input is never
// mutated. The sort is stable: jobs that compare equal keep their input
// order, which is the only tie-break. Priority ranks derive from now;
// customer comparison is collation-based (English locale), not byte order.
// An unknown key returns an unsorted copy.
func SortJobs(jobs []domain.Job, key SortKey, now time.Time) []domain.Job {
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)

	switch key {
	case SortByPriority:
		slices.SortStableFunc(out, func(a, b domain.Job) int {
			return ClassifyPriority(a, now).Rank() - ClassifyPriority(b, now).Rank()
		})
	case SortByDueDate:
		slices.SortStableFunc(out, func(a, b domain.Job) int {
			return a.DueDate.Compare(b.DueDate)
		})
	case SortByCustomer:
		// Collators buffer state internally and are not safe for concurrent
		// use, so each sort builds its own.
		c := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b domain.Job) int {
			return c.CompareString(a.Customer, b.Customer)
		})
	}
	return out
}

// FilterByStatus returns the jobs whose status matches, preserving order.
func FilterByStatus(jobs []domain.Job, status domain.Status) []domain.Job {
	var out []domain.Job
	for _, job := range jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	return out
}

// FilterByPriority returns the jobs whose derived priority matches,
// preserving order.
func FilterByPriority(jobs []domain.Job, p domain.Priority, now time.Time) []domain.Job {
	var out []domain.Job
	for _, job := range jobs {
		if ClassifyPriority(job, now) == p {
			out = append(out, job)
		}
	}
	return out
}
