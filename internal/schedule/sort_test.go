package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printshop-os/opsboard/internal/domain"
)

func jobIDs(jobs []domain.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

func TestSortJobs_ByPriority(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	jobs := []domain.Job{
		jobDue("j-normal", now.Add(10*24*time.Hour)),
		jobDue("j-urgent", now.Add(10*time.Hour)),
		jobDue("j-high", now.Add(30*time.Hour)),
	}

	sorted := SortJobs(jobs, SortByPriority, now)
	assert.Equal(t, []string{"j-urgent", "j-high", "j-normal"}, jobIDs(sorted))
}

func TestSortJobs_PriorityIsStable(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(30 * time.Hour)

	// All three share a priority; their input order must survive the sort.
	jobs := []domain.Job{
		jobDue("j-b", due),
		jobDue("j-a", due),
		jobDue("j-c", due),
	}

	sorted := SortJobs(jobs, SortByPriority, now)
	assert.Equal(t, []string{"j-b", "j-a", "j-c"}, jobIDs(sorted))
}

func TestSortJobs_ByDueDate(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	jobs := []domain.Job{
		jobDue("j-3", now.Add(72*time.Hour)),
		jobDue("j-1", now.Add(6*time.Hour)),
		jobDue("j-2", now.Add(24*time.Hour)),
	}

	sorted := SortJobs(jobs, SortByDueDate, now)
	assert.Equal(t, []string{"j-1", "j-2", "j-3"}, jobIDs(sorted))
}

func TestSortJobs_ByCustomerUsesCollation(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(72 * time.Hour)

	jobs := []domain.Job{
		{ID: "j-1", Customer: "Übermöbel", DueDate: due},
		{ID: "j-2", Customer: "acme shirts", DueDate: due},
		{ID: "j-3", Customer: "Zebra Co", DueDate: due},
		{ID: "j-4", Customer: "Älvsjö Press", DueDate: due},
		{ID: "j-5", Customer: "banner world", DueDate: due},
	}

	sorted := SortJobs(jobs, SortByCustomer, now)

	// Naive byte comparison would put "Zebra Co" first and the accented
	// names last; collation interleaves them by base letter.
	assert.Equal(t, []string{"j-2", "j-4", "j-5", "j-1", "j-3"}, jobIDs(sorted))
}

func TestSortJobs_UnknownKeyKeepsOrder(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		jobDue("j-2", now.Add(48*time.Hour)),
		jobDue("j-1", now.Add(6*time.Hour)),
	}

	sorted := SortJobs(jobs, SortKey("nonsense"), now)
	assert.Equal(t, []string{"j-2", "j-1"}, jobIDs(sorted))
}

func TestSortJobs_DoesNotMutateInput(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		jobDue("j-2", now.Add(48*time.Hour)),
		jobDue("j-1", now.Add(6*time.Hour)),
	}

	sorted := SortJobs(jobs, SortByDueDate, now)
	require.Equal(t, []string{"j-1", "j-2"}, jobIDs(sorted))
	assert.Equal(t, []string{"j-2", "j-1"}, jobIDs(jobs), "input slice keeps its order")
}

func TestValidSortKey(t *testing.T) {
	assert.True(t, ValidSortKey(SortByPriority))
	assert.True(t, ValidSortKey(SortByDueDate))
	assert.True(t, ValidSortKey(SortByCustomer))
	assert.False(t, ValidSortKey(SortKey("customer_name")))
}

func TestFilterByStatus(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		{ID: "j-1", Status: domain.StatusPrinting, DueDate: now},
		{ID: "j-2", Status: domain.StatusQuote, DueDate: now},
		{ID: "j-3", Status: domain.StatusPrinting, DueDate: now},
	}

	printing := FilterByStatus(jobs, domain.StatusPrinting)
	assert.Equal(t, []string{"j-1", "j-3"}, jobIDs(printing))
	assert.Empty(t, FilterByStatus(jobs, domain.StatusDelivery))
}

func TestFilterByPriority(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		jobDue("j-urgent", now.Add(2*time.Hour)),
		jobDue("j-low", now.Add(30*24*time.Hour)),
	}

	urgent := FilterByPriority(jobs, domain.PriorityUrgent, now)
	assert.Equal(t, []string{"j-urgent"}, jobIDs(urgent))
}
