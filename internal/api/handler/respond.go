package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/printshop-os/opsboard/internal/api/dto"
	"github.com/printshop-os/opsboard/internal/cms"
	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/outbox"
	"github.com/printshop-os/opsboard/internal/schedule"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondQueued is the 202 for a write that went to the outbox instead of
// the CMS.
func respondQueued(c *gin.Context, mutation *outbox.Mutation) {
	c.JSON(http.StatusAccepted, dto.QueuedMutationResponse{
		MutationID: mutation.ID,
		Kind:       string(mutation.Kind),
		TargetID:   mutation.TargetID,
		Status:     string(mutation.Status),
	})
}

// respondWriteError maps a failed direct CMS write that could not be queued.
// Retryable failures get 503 with a Retry-After hint; a CMS 404 passes
// through; everything else the CMS rejected becomes 502.
func respondWriteError(c *gin.Context, err error) {
	if domain.IsRetryable(err) {
		c.Header("Retry-After", "30")
		respondError(c, http.StatusServiceUnavailable, "CMS unavailable and mutation could not be queued")
		return
	}
	if errors.Is(err, cms.ErrNotFound) {
		respondError(c, http.StatusNotFound, "record not found in CMS")
		return
	}
	respondError(c, http.StatusBadGateway, "CMS rejected the update")
}

func toJobResponse(job domain.Job, now time.Time) dto.JobResponse {
	return dto.JobResponse{
		ID:               job.ID,
		Customer:         job.Customer,
		AssignedTo:       job.AssignedTo,
		Status:           string(job.Status),
		Priority:         string(schedule.ClassifyPriority(job, now)),
		Quantity:         job.Quantity,
		EstimatedMinutes: job.EstimatedMinutes,
		DueDate:          job.DueDate.Format(time.RFC3339),
		CreatedAt:        job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        job.UpdatedAt.Format(time.RFC3339),
	}
}

func toJobResponses(jobs []domain.Job, now time.Time) []dto.JobResponse {
	out := make([]dto.JobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = toJobResponse(job, now)
	}
	return out
}

func toInvoiceResponse(invoice domain.Invoice) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:          invoice.ID,
		Number:      invoice.Number,
		Customer:    invoice.Customer,
		TotalAmount: invoice.TotalAmount,
		AmountPaid:  invoice.AmountPaid,
		Outstanding: invoice.Outstanding(),
		Status:      string(invoice.Status),
		IssuedAt:    invoice.IssuedAt.Format(time.RFC3339),
		DueDate:     invoice.DueDate.Format(time.RFC3339),
		CreatedAt:   invoice.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   invoice.UpdatedAt.Format(time.RFC3339),
	}
	if invoice.PaidAt != nil {
		resp.PaidAt = invoice.PaidAt.Format(time.RFC3339)
	}
	return resp
}

func toSOPResponse(sop domain.SOP) dto.SOPResponse {
	return dto.SOPResponse{
		ID:        sop.ID,
		Title:     sop.Title,
		Category:  sop.Category,
		Content:   sop.Content,
		Version:   sop.Version,
		CreatedAt: sop.CreatedAt.Format(time.RFC3339),
		UpdatedAt: sop.UpdatedAt.Format(time.RFC3339),
	}
}

func toProductResponse(product domain.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:        product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		Brand:     product.Brand,
		Category:  product.Category,
		Supplier:  product.Supplier,
		UnitPrice: product.UnitPrice,
	}
}
