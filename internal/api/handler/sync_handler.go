package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/printshop-os/opsboard/internal/api/dto"
)

// SyncHandler reports snapshot freshness and the outbox backlog: the numbers
// behind the dashboard's offline indicator.
type SyncHandler struct {
	deps *Dependencies
}

// NewSyncHandler creates a new SyncHandler instance.
func NewSyncHandler(deps *Dependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// Status handles GET /api/v1/sync/status.
func (h *SyncHandler) Status(c *gin.Context) {
	status := h.deps.Snapshot.Status()

	stats, err := h.deps.Outbox.Stats(c.Request.Context())
	if err != nil {
		h.deps.Logger.Error("Failed to read outbox stats",
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "failed to read outbox")
		return
	}

	resp := dto.SyncStatusResponse{
		Snapshot: dto.SnapshotStatusResponse{
			Source:              status.Source,
			Seq:                 status.Seq,
			JobCount:            status.JobCount,
			ConsecutiveFailures: status.ConsecutiveFailures,
			LastError:           status.LastError,
		},
		Outbox: dto.OutboxStatusResponse{
			Pending: stats.Pending,
			Syncing: stats.Syncing,
			Synced:  stats.Synced,
			Failed:  stats.Failed,
			Backlog: stats.Backlog(),
		},
	}
	if !status.FetchedAt.IsZero() {
		resp.Snapshot.FetchedAt = status.FetchedAt.Format(time.RFC3339)
	}
	if status.LastErrorAt != nil {
		resp.Snapshot.LastErrorAt = status.LastErrorAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
