package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printshop-os/opsboard/internal/api/dto"
	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/events"
	"github.com/printshop-os/opsboard/internal/outbox"
	"github.com/printshop-os/opsboard/internal/schedule"
)

// JobHandler handles job-related HTTP requests.
type JobHandler struct {
	deps *Dependencies
}

// NewJobHandler creates a new JobHandler instance.
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{deps: deps}
}

// ListJobs handles GET /api/v1/jobs with optional status and priority
// filters.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	jobs := h.deps.Snapshot.Jobs()
	now := h.deps.now()

	if req.Status != "" {
		status := domain.Status(req.Status)
		if !domain.IsValidStatus(status) {
			respondError(c, http.StatusBadRequest, "unknown status filter")
			return
		}
		jobs = schedule.FilterByStatus(jobs, status)
	}

	if req.Priority != "" {
		priority := domain.Priority(req.Priority)
		switch priority {
		case domain.PriorityUrgent, domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow:
			jobs = schedule.FilterByPriority(jobs, priority, now)
		default:
			respondError(c, http.StatusBadRequest, "unknown priority filter")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"jobs": toJobResponses(jobs, now)})
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.deps.Snapshot.JobByID(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job, h.deps.now()))
}

// UpdateStatus handles PUT /api/v1/jobs/:id/status.
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	jobID := c.Param("id")

	h.deps.Logger.Info("UpdateJobStatus called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	var req dto.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	job, ok := h.deps.Snapshot.JobByID(jobID)
	if !ok {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}

	target := domain.Status(req.Status)
	if !domain.IsValidStatus(target) {
		respondError(c, http.StatusBadRequest, "unknown status")
		return
	}
	if !domain.CanTransition(job.Status, target) {
		respondError(c, http.StatusConflict, "cancelled jobs cannot change status")
		return
	}

	h.applyStatus(c, job, target)
}

// Advance handles POST /api/v1/jobs/:id/advance, moving the job one stage
// forward in the workflow.
func (h *JobHandler) Advance(c *gin.Context) {
	jobID := c.Param("id")

	h.deps.Logger.Info("AdvanceJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	job, ok := h.deps.Snapshot.JobByID(jobID)
	if !ok {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}

	target, ok := domain.NextStatus(job.Status)
	if !ok {
		respondError(c, http.StatusConflict, "job has no next stage")
		return
	}

	h.applyStatus(c, job, target)
}

// Regress handles POST /api/v1/jobs/:id/regress, moving the job one stage
// backward in the workflow.
func (h *JobHandler) Regress(c *gin.Context) {
	jobID := c.Param("id")

	h.deps.Logger.Info("RegressJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	job, ok := h.deps.Snapshot.JobByID(jobID)
	if !ok {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}

	target, ok := domain.PrevStatus(job.Status)
	if !ok {
		respondError(c, http.StatusConflict, "job has no previous stage")
		return
	}

	h.applyStatus(c, job, target)
}

// applyStatus pushes the status change to the CMS (or the outbox) and keeps
// the snapshot in step. The snapshot is updated on the queued path too: the
// dashboard shows the change immediately and the next successful poll
// reconciles.
func (h *JobHandler) applyStatus(c *gin.Context, job domain.Job, target domain.Status) {
	ctx := c.Request.Context()
	now := h.deps.now()

	mutation, err := h.deps.applyOrQueue(ctx, func(ctx context.Context) error {
		return h.deps.CMS.UpdateJobStatus(ctx, job.ID, target)
	}, outbox.KindJobStatus, job.ID, outbox.JobStatusPayload{Status: string(target)})
	if err != nil {
		respondWriteError(c, err)
		return
	}

	h.deps.Snapshot.UpdateJob(job.ID, func(j domain.Job) domain.Job {
		j.Status = target
		j.UpdatedAt = now
		return j
	})

	if mutation != nil {
		respondQueued(c, mutation)
		return
	}

	h.deps.publish(ctx, events.TypeJobStatusChanged, map[string]any{
		"job_id": job.ID,
		"status": string(target),
	})

	updated, _ := h.deps.Snapshot.JobByID(job.ID)
	c.JSON(http.StatusOK, toJobResponse(updated, now))
}
