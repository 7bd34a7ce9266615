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
)

// SOPHandler handles standard-operating-procedure HTTP requests.
type SOPHandler struct {
	deps *Dependencies
}

// NewSOPHandler creates a new SOPHandler instance.
func NewSOPHandler(deps *Dependencies) *SOPHandler {
	return &SOPHandler{deps: deps}
}

// ListSOPs handles GET /api/v1/sops with an optional category filter.
func (h *SOPHandler) ListSOPs(c *gin.Context) {
	sops := h.deps.Snapshot.SOPs()

	if category := c.Query("category"); category != "" {
		filtered := make([]domain.SOP, 0, len(sops))
		for _, sop := range sops {
			if sop.Category == category {
				filtered = append(filtered, sop)
			}
		}
		sops = filtered
	}

	out := make([]dto.SOPResponse, len(sops))
	for i, sop := range sops {
		out[i] = toSOPResponse(sop)
	}
	c.JSON(http.StatusOK, gin.H{"sops": out})
}

// GetSOP handles GET /api/v1/sops/:id.
func (h *SOPHandler) GetSOP(c *gin.Context) {
	sop, ok := h.deps.Snapshot.SOPByID(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "sop not found")
		return
	}
	c.JSON(http.StatusOK, toSOPResponse(sop))
}

// Save handles PUT /api/v1/sops/:id, replacing the procedure content.
func (h *SOPHandler) Save(c *gin.Context) {
	sopID := c.Param("id")

	h.deps.Logger.Info("SaveSOP called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("sop_id", sopID),
	)

	var req dto.SaveSOPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, ok := h.deps.Snapshot.SOPByID(sopID); !ok {
		respondError(c, http.StatusNotFound, "sop not found")
		return
	}

	ctx := c.Request.Context()
	now := h.deps.now()

	mutation, err := h.deps.applyOrQueue(ctx, func(ctx context.Context) error {
		return h.deps.CMS.SaveSOP(ctx, sopID, req.Content)
	}, outbox.KindSOPContent, sopID, outbox.SOPContentPayload{Content: req.Content})
	if err != nil {
		respondWriteError(c, err)
		return
	}

	h.deps.Snapshot.UpdateSOP(sopID, func(s domain.SOP) domain.SOP {
		s.Content = req.Content
		s.Version++
		s.UpdatedAt = now
		return s
	})

	if mutation != nil {
		respondQueued(c, mutation)
		return
	}

	h.deps.publish(ctx, events.TypeSOPUpdated, map[string]any{
		"sop_id": sopID,
	})

	updated, _ := h.deps.Snapshot.SOPByID(sopID)
	c.JSON(http.StatusOK, toSOPResponse(updated))
}
