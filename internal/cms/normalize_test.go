package cms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/printshop-os/opsboard/internal/domain"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected domain.Status
	}{
		{name: "canonical passes through", raw: "printing", expected: domain.StatusPrinting},
		{name: "uppercase", raw: "PRINTING", expected: domain.StatusPrinting},
		{name: "surrounding whitespace", raw: "  quote ", expected: domain.StatusQuote},
		{name: "underscores", raw: "IN_PRODUCTION", expected: domain.StatusPrinting},
		{name: "hyphens", raw: "Ready-for-Pickup", expected: domain.StatusDelivery},
		{name: "doubled spaces", raw: "quote  approved", expected: domain.StatusDesign},
		{name: "american spelling of cancelled", raw: "Canceled", expected: domain.StatusCancelled},
		{name: "shipped maps to delivery", raw: "Shipped", expected: domain.StatusDelivery},
		{name: "delivered maps to completed", raw: "Delivered", expected: domain.StatusCompleted},
		{name: "unknown falls back to quote", raw: "somewhere in the building", expected: domain.StatusQuote},
		{name: "empty falls back to quote", raw: "", expected: domain.StatusQuote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeStatus(tt.raw))
		})
	}
}

func TestNormalizeStatus_Idempotent(t *testing.T) {
	raws := []string{
		"printing", "IN_PRODUCTION", "Quote Sent", "Delivered", "nonsense", "",
	}
	for _, raw := range raws {
		once := NormalizeStatus(raw)
		assert.Equal(t, once, NormalizeStatus(string(once)), "normalize(normalize(%q)) must equal normalize(%q)", raw, raw)
	}
}

func TestNormalizeJob(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	entry := map[string]any{
		"id":               "ord-17",
		"customer":         "Lakeview Little League",
		"assignedTo":       "dana",
		"status":           "QUOTE_APPROVED",
		"quantity":         float64(60),
		"estimatedMinutes": float64(45),
		"dueDate":          "2025-06-12T09:00:00Z",
		"createdAt":        "2025-06-01T08:00:00Z",
		"updatedAt":        "2025-06-09T16:30:00Z",
	}

	job := NormalizeJob(entry, now)

	assert.Equal(t, "ord-17", job.ID)
	assert.Equal(t, "Lakeview Little League", job.Customer)
	assert.Equal(t, "dana", job.AssignedTo)
	assert.Equal(t, domain.StatusDesign, job.Status)
	assert.Equal(t, 60, job.Quantity)
	assert.Equal(t, 45, job.EstimatedMinutes)
	assert.Equal(t, time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC), job.DueDate)
}

func TestNormalizeJob_IsTotal(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry map[string]any
		check func(t *testing.T, job domain.Job)
	}{
		{
			name:  "empty record never rejects",
			entry: map[string]any{"id": "x"},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, UnknownCustomer, job.Customer)
				assert.Equal(t, domain.StatusQuote, job.Status)
				assert.Equal(t, now, job.DueDate, "missing due date falls back to now")
			},
		},
		{
			name:  "unparseable due date falls back to now",
			entry: map[string]any{"id": "x", "dueDate": "next tuesday"},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, now, job.DueDate)
			},
		},
		{
			name:  "plain date due date",
			entry: map[string]any{"id": "x", "dueDate": "2025-06-14"},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), job.DueDate)
			},
		},
		{
			name: "v4 relation customer",
			entry: map[string]any{
				"id":       "x",
				"customer": map[string]any{"data": map[string]any{"attributes": map[string]any{"name": "Summit HVAC"}}},
			},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, "Summit HVAC", job.Customer)
			},
		},
		{
			name: "flat relation customer",
			entry: map[string]any{
				"id":       "x",
				"customer": map[string]any{"name": "Summit HVAC"},
			},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, "Summit HVAC", job.Customer)
			},
		},
		{
			name:  "customerName fallback field",
			entry: map[string]any{"id": "x", "customerName": "Pine Street Bakery"},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, "Pine Street Bakery", job.Customer)
			},
		},
		{
			name:  "whitespace-only customer is unknown",
			entry: map[string]any{"id": "x", "customer": "   "},
			check: func(t *testing.T, job domain.Job) {
				assert.Equal(t, UnknownCustomer, job.Customer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, NormalizeJob(tt.entry, now))
		})
	}
}

func TestNormalizeInvoice(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	entry := map[string]any{
		"id":          "inv-9",
		"number":      "INV-0509",
		"customer":    "Riverside Brewing Co",
		"totalAmount": "1286.00",
		"status":      "PAYMENT_RECEIVED",
		"issuedAt":    "2025-06-01T00:00:00Z",
		"paidAt":      "2025-06-08T10:00:00Z",
	}

	inv := NormalizeInvoice(entry, now)

	assert.Equal(t, "INV-0509", inv.Number)
	assert.Equal(t, 1286.00, inv.TotalAmount, "string decimals parse")
	assert.Equal(t, domain.InvoicePaid, inv.Status)
	if assert.NotNil(t, inv.PaidAt) {
		assert.Equal(t, time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC), *inv.PaidAt)
	}
	assert.Equal(t, 1286.00, inv.AmountPaid, "paid invoices backfill amountPaid")
}

func TestNormalizeInvoice_Statuses(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		raw      string
		expected domain.InvoiceStatus
	}{
		{raw: "paid", expected: domain.InvoicePaid},
		{raw: "PAYMENT_RECEIVED", expected: domain.InvoicePaid},
		{raw: "Past-Due", expected: domain.InvoiceOverdue},
		{raw: "pending", expected: domain.InvoicePending},
		{raw: "", expected: domain.InvoicePending},
		{raw: "something else", expected: domain.InvoicePending},
	}

	for _, tt := range tests {
		t.Run("status "+tt.raw, func(t *testing.T) {
			inv := NormalizeInvoice(map[string]any{"id": "x", "status": tt.raw}, now)
			assert.Equal(t, tt.expected, inv.Status)
		})
	}
}

func TestNormalizeSOPAndProduct(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	sop := NormalizeSOP(map[string]any{
		"id":       "sop-3",
		"title":    "Screen Reclaim Process",
		"category": "production",
		"content":  "Strip emulsion, pressure wash, degrease.",
		"version":  float64(4),
	}, now)
	assert.Equal(t, "Screen Reclaim Process", sop.Title)
	assert.Equal(t, 4, sop.Version)

	product := NormalizeProduct(map[string]any{
		"id":       "prod-1",
		"sku":      "PC54",
		"name":     "Core Cotton Tee",
		"brand":    "Port & Company",
		"supplier": "sanmar",
		"price":    3.42,
	}, now)
	assert.Equal(t, "PC54", product.SKU)
	assert.Equal(t, 3.42, product.UnitPrice)
}
