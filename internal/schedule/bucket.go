package schedule

import (
	"math"
	"time"

	"github.com/printshop-os/opsboard/internal/domain"
)

// DefaultDailyCapacity is the per-day job-count ceiling used to flag
// overbooking. It is a head count, not derived from machine or staffing data,
// and it is deliberately not weighted by quantity or estimated minutes.
const DefaultDailyCapacity = 10

// CapacityData is the per-period aggregate behind the capacity bars. It is
// recomputed from the current snapshot on every request and never persisted.
type CapacityData struct {
	Date            time.Time `json:"date"`
	ScheduledJobs   int       `json:"scheduled_jobs"`
	TotalCapacity   int       `json:"total_capacity"`
	PercentUtilized int       `json:"percent_utilized"`
	IsOverbooked    bool      `json:"is_overbooked"`
}

// BucketByDay groups jobs by the calendar day their due date falls on and
// returns one entry per day in [from, to] inclusive, zero-filled for days
// with no jobs. Calendar-day equality is evaluated in loc, the shop's
// configured timezone, so a job due at 23:30 belongs to that local day no
// matter what zone the CMS stored it in. An inverted range returns nil.
func BucketByDay(jobs []domain.Job, from, to time.Time, loc *time.Location, capacity int) []CapacityData {
	if loc == nil {
		loc = time.Local
	}
	if capacity <= 0 {
		capacity = DefaultDailyCapacity
	}

	start := DayStart(from, loc)
	end := DayStart(to, loc)
	if start.After(end) {
		return nil
	}

	counts := make(map[time.Time]int, len(jobs))
	for _, job := range jobs {
		counts[DayStart(job.DueDate, loc)]++
	}

	var out []CapacityData
	y, m, d := start.Date()
	for i := 0; ; i++ {
		day := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
		if day.After(end) {
			break
		}
		out = append(out, newCapacityData(day, counts[day], capacity))
	}
	return out
}

// BucketByWeek groups jobs into ISO weeks (Monday start) and returns one
// entry per week intersecting [from, to]. Date is the week's Monday and the
// capacity is a full week regardless of partial overlap with the range.
func BucketByWeek(jobs []domain.Job, from, to time.Time, loc *time.Location, dailyCapacity int) []CapacityData {
	if loc == nil {
		loc = time.Local
	}
	if dailyCapacity <= 0 {
		dailyCapacity = DefaultDailyCapacity
	}

	start := WeekStart(from, loc)
	end := WeekStart(to, loc)
	if start.After(end) {
		return nil
	}

	counts := make(map[time.Time]int, len(jobs))
	for _, job := range jobs {
		counts[WeekStart(job.DueDate, loc)]++
	}

	var out []CapacityData
	y, m, d := start.Date()
	for i := 0; ; i++ {
		week := time.Date(y, m, d+7*i, 0, 0, 0, 0, loc)
		if week.After(end) {
			break
		}
		out = append(out, newCapacityData(week, counts[week], dailyCapacity*7))
	}
	return out
}

// BucketByMonth groups jobs into calendar months and returns one entry per
// month intersecting [from, to]. Date is the first of the month; capacity is
// the daily capacity times the number of days in that month.
func BucketByMonth(jobs []domain.Job, from, to time.Time, loc *time.Location, dailyCapacity int) []CapacityData {
	if loc == nil {
		loc = time.Local
	}
	if dailyCapacity <= 0 {
		dailyCapacity = DefaultDailyCapacity
	}

	start := monthStart(from, loc)
	end := monthStart(to, loc)
	if start.After(end) {
		return nil
	}

	counts := make(map[time.Time]int, len(jobs))
	for _, job := range jobs {
		counts[monthStart(job.DueDate, loc)]++
	}

	var out []CapacityData
	y, m, _ := start.Date()
	for i := 0; ; i++ {
		month := time.Date(y, m+time.Month(i), 1, 0, 0, 0, 0, loc)
		if month.After(end) {
			break
		}
		daysInMonth := time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, loc).Day()
		out = append(out, newCapacityData(month, counts[month], dailyCapacity*daysInMonth))
	}
	return out
}

// BucketByStatus groups jobs into kanban columns keyed by workflow status,
// preserving the relative order of jobs within each column. Every workflow
// stage gets an entry even when empty; cancelled appears only when occupied.
func BucketByStatus(jobs []domain.Job) map[domain.Status][]domain.Job {
	buckets := make(map[domain.Status][]domain.Job, len(domain.WorkflowOrder)+1)
	for _, s := range domain.WorkflowOrder {
		buckets[s] = nil
	}
	for _, job := range jobs {
		status := job.Status
		if !domain.IsValidStatus(status) {
			status = domain.StatusQuote
		}
		buckets[status] = append(buckets[status], job)
	}
	return buckets
}

func newCapacityData(date time.Time, scheduled, capacity int) CapacityData {
	return CapacityData{
		Date:            date,
		ScheduledJobs:   scheduled,
		TotalCapacity:   capacity,
		PercentUtilized: int(math.Round(float64(scheduled) / float64(capacity) * 100)),
		IsOverbooked:    scheduled > capacity,
	}
}

// DayStart returns midnight of the calendar day containing t, evaluated in
// loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// WeekStart returns the Monday midnight of the week containing t, evaluated
// in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	offset := (int(t.In(loc).Weekday()) + 6) % 7
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

func monthStart(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}
