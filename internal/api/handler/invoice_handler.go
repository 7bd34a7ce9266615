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

// InvoiceHandler handles invoice-related HTTP requests.
type InvoiceHandler struct {
	deps *Dependencies
}

// NewInvoiceHandler creates a new InvoiceHandler instance.
func NewInvoiceHandler(deps *Dependencies) *InvoiceHandler {
	return &InvoiceHandler{deps: deps}
}

// ListInvoices handles GET /api/v1/invoices with an optional status filter.
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	invoices := h.deps.Snapshot.Invoices()

	if status := c.Query("status"); status != "" {
		switch domain.InvoiceStatus(status) {
		case domain.InvoicePending, domain.InvoicePaid, domain.InvoiceOverdue:
		default:
			respondError(c, http.StatusBadRequest, "unknown status filter")
			return
		}
		filtered := make([]domain.Invoice, 0, len(invoices))
		for _, invoice := range invoices {
			if invoice.Status == domain.InvoiceStatus(status) {
				filtered = append(filtered, invoice)
			}
		}
		invoices = filtered
	}

	out := make([]dto.InvoiceResponse, len(invoices))
	for i, invoice := range invoices {
		out[i] = toInvoiceResponse(invoice)
	}
	c.JSON(http.StatusOK, gin.H{"invoices": out})
}

// Pay handles POST /api/v1/invoices/:id/pay, marking the invoice paid in
// full.
func (h *InvoiceHandler) Pay(c *gin.Context) {
	invoiceID := c.Param("id")

	h.deps.Logger.Info("PayInvoice called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("invoice_id", invoiceID),
	)

	invoice, ok := h.deps.Snapshot.InvoiceByID(invoiceID)
	if !ok {
		respondError(c, http.StatusNotFound, "invoice not found")
		return
	}
	if invoice.Status == domain.InvoicePaid {
		respondError(c, http.StatusConflict, "invoice already paid")
		return
	}

	ctx := c.Request.Context()
	now := h.deps.now()

	mutation, err := h.deps.applyOrQueue(ctx, func(ctx context.Context) error {
		return h.deps.CMS.MarkInvoicePaid(ctx, invoiceID)
	}, outbox.KindInvoicePaid, invoiceID, nil)
	if err != nil {
		respondWriteError(c, err)
		return
	}

	h.deps.Snapshot.UpdateInvoice(invoiceID, func(i domain.Invoice) domain.Invoice {
		i.Status = domain.InvoicePaid
		i.AmountPaid = i.TotalAmount
		paidAt := now
		i.PaidAt = &paidAt
		i.UpdatedAt = now
		return i
	})

	if mutation != nil {
		respondQueued(c, mutation)
		return
	}

	h.deps.publish(ctx, events.TypeInvoicePaid, map[string]any{
		"invoice_id":   invoiceID,
		"total_amount": invoice.TotalAmount,
	})

	updated, _ := h.deps.Snapshot.InvoiceByID(invoiceID)
	c.JSON(http.StatusOK, toInvoiceResponse(updated))
}
