package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/printshop-os/opsboard/internal/api/dto"
	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/schedule"
)

// defaultRangeDays is the inclusive range served when from/to are omitted.
const defaultRangeDays = 7

// ScheduleHandler serves the derived production views.
type ScheduleHandler struct {
	deps *Dependencies
}

// NewScheduleHandler creates a new ScheduleHandler instance.
func NewScheduleHandler(deps *Dependencies) *ScheduleHandler {
	return &ScheduleHandler{deps: deps}
}

// GetCapacity handles GET /api/v1/schedule/capacity.
func (h *ScheduleHandler) GetCapacity(c *gin.Context) {
	var req dto.ScheduleRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	from, to, err := h.parseRange(req.From, req.To)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	jobs := h.deps.Snapshot.Jobs()
	loc := h.deps.location()
	capacity := h.deps.capacity()

	var buckets []schedule.CapacityData
	switch req.Granularity {
	case "", "day":
		buckets = schedule.BucketByDay(jobs, from, to, loc, capacity)
	case "week":
		buckets = schedule.BucketByWeek(jobs, from, to, loc, capacity)
	case "month":
		buckets = schedule.BucketByMonth(jobs, from, to, loc, capacity)
	default:
		respondError(c, http.StatusBadRequest, "granularity must be day, week or month")
		return
	}

	if buckets == nil {
		buckets = []schedule.CapacityData{}
	}
	c.JSON(http.StatusOK, gin.H{"capacity": buckets})
}

// GetBoard handles GET /api/v1/schedule/board. Columns come back in workflow
// order; cancelled appears as a trailing column only when occupied.
func (h *ScheduleHandler) GetBoard(c *gin.Context) {
	now := h.deps.now()
	buckets := schedule.BucketByStatus(h.deps.Snapshot.Jobs())

	columns := make([]dto.BoardColumn, 0, len(domain.WorkflowOrder)+1)
	for _, status := range domain.WorkflowOrder {
		columns = append(columns, dto.BoardColumn{
			Status: string(status),
			Jobs:   toJobResponses(buckets[status], now),
		})
	}
	if cancelled := buckets[domain.StatusCancelled]; len(cancelled) > 0 {
		columns = append(columns, dto.BoardColumn{
			Status: string(domain.StatusCancelled),
			Jobs:   toJobResponses(cancelled, now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

// GetQueue handles GET /api/v1/schedule/queue.
func (h *ScheduleHandler) GetQueue(c *gin.Context) {
	var req dto.QueueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	key := schedule.SortKey(req.Sort)
	if req.Sort == "" {
		key = schedule.SortByPriority
	}
	if !schedule.ValidSortKey(key) {
		respondError(c, http.StatusBadRequest, "sort must be priority, due_date or customer")
		return
	}

	jobs := h.deps.Snapshot.Jobs()
	if req.Status != "" {
		status := domain.Status(req.Status)
		if !domain.IsValidStatus(status) {
			respondError(c, http.StatusBadRequest, "unknown status filter")
			return
		}
		jobs = schedule.FilterByStatus(jobs, status)
	}

	now := h.deps.now()
	sorted := schedule.SortJobs(jobs, key, now)
	c.JSON(http.StatusOK, gin.H{"jobs": toJobResponses(sorted, now)})
}

// GetCalendar handles GET /api/v1/schedule/calendar: per-day capacity plus
// the jobs due that day, ordered by due time.
func (h *ScheduleHandler) GetCalendar(c *gin.Context) {
	var req dto.ScheduleRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	from, to, err := h.parseRange(req.From, req.To)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	now := h.deps.now()
	loc := h.deps.location()
	jobs := h.deps.Snapshot.Jobs()

	byDay := make(map[time.Time][]domain.Job)
	for _, job := range jobs {
		day := schedule.DayStart(job.DueDate, loc)
		byDay[day] = append(byDay[day], job)
	}

	buckets := schedule.BucketByDay(jobs, from, to, loc, h.deps.capacity())
	days := make([]dto.CalendarDay, len(buckets))
	for i, bucket := range buckets {
		dayJobs := schedule.SortJobs(byDay[bucket.Date], schedule.SortByDueDate, now)
		days[i] = dto.CalendarDay{
			CapacityData: bucket,
			Jobs:         toJobResponses(dayJobs, now),
		}
	}

	c.JSON(http.StatusOK, gin.H{"days": days})
}

// parseRange resolves the from/to query dates in the shop timezone. Missing
// values default to a week starting today.
func (h *ScheduleHandler) parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	loc := h.deps.location()

	from := schedule.DayStart(h.deps.now(), loc)
	if fromStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", fromStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from must be YYYY-MM-DD")
		}
		from = parsed
	}

	to := from.AddDate(0, 0, defaultRangeDays-1)
	if toStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", toStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to must be YYYY-MM-DD")
		}
		to = parsed
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to must not be before from")
	}
	return from, to, nil
}
