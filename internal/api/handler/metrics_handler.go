package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printshop-os/opsboard/internal/api/dto"
	"github.com/printshop-os/opsboard/internal/metrics"
)

// MetricsHandler serves the dashboard aggregates.
type MetricsHandler struct {
	deps *Dependencies
}

// NewMetricsHandler creates a new MetricsHandler instance.
func NewMetricsHandler(deps *Dependencies) *MetricsHandler {
	return &MetricsHandler{deps: deps}
}

// Production handles GET /api/v1/metrics/production.
func (h *MetricsHandler) Production(c *gin.Context) {
	summary := metrics.Production(h.deps.Snapshot.Jobs(), h.deps.now(), h.deps.location())
	c.JSON(http.StatusOK, summary)
}

// Revenue handles GET /api/v1/metrics/revenue.
func (h *MetricsHandler) Revenue(c *gin.Context) {
	var req dto.RevenueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "months must be a number")
		return
	}
	if req.Months < 0 {
		respondError(c, http.StatusBadRequest, "months must not be negative")
		return
	}

	months := metrics.RevenueByMonth(h.deps.Snapshot.Invoices(), req.Months)
	if months == nil {
		months = []metrics.MonthRevenue{}
	}
	c.JSON(http.StatusOK, gin.H{"months": months})
}

// TopCustomers handles GET /api/v1/metrics/customers/top.
func (h *MetricsHandler) TopCustomers(c *gin.Context) {
	var req dto.TopCustomersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "limit must be a number")
		return
	}
	if req.Limit < 0 {
		respondError(c, http.StatusBadRequest, "limit must not be negative")
		return
	}

	top := metrics.TopCustomers(h.deps.Snapshot.Jobs(), h.deps.Snapshot.Invoices(), req.Limit)
	if top == nil {
		top = []metrics.CustomerStat{}
	}
	c.JSON(http.StatusOK, gin.H{"customers": top})
}
