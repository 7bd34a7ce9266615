package cms

import (
	"strconv"
	"strings"
	"time"

	"github.com/printshop-os/opsboard/internal/domain"
)

// UnknownCustomer is the placeholder for records with no resolvable customer
// name. Normalization never rejects a record over a missing field.
const UnknownCustomer = "Unknown Customer"

// statusLookup maps upstream status spellings to canonical workflow stages.
// Keys are pre-normalized (lowercase, single spaces). Canonical values map to
// themselves so normalizing an already-normalized status is a no-op.
var statusLookup = map[string]domain.Status{
	"quote":     domain.StatusQuote,
	"design":    domain.StatusDesign,
	"prepress":  domain.StatusPrepress,
	"printing":  domain.StatusPrinting,
	"finishing": domain.StatusFinishing,
	"delivery":  domain.StatusDelivery,
	"completed": domain.StatusCompleted,
	"cancelled": domain.StatusCancelled,

	"pending":            domain.StatusQuote,
	"quote sent":         domain.StatusQuote,
	"new":                domain.StatusQuote,
	"draft":              domain.StatusQuote,
	"quote approved":     domain.StatusDesign,
	"approved":           domain.StatusDesign,
	"artwork":            domain.StatusDesign,
	"art approval":       domain.StatusDesign,
	"pre press":          domain.StatusPrepress,
	"pre production":     domain.StatusPrepress,
	"proofing":           domain.StatusPrepress,
	"in production":      domain.StatusPrinting,
	"production":         domain.StatusPrinting,
	"in progress":        domain.StatusPrinting,
	"press":              domain.StatusPrinting,
	"quality check":      domain.StatusFinishing,
	"finish":             domain.StatusFinishing,
	"ready for pickup":   domain.StatusDelivery,
	"waiting for pickup": domain.StatusDelivery,
	"shipped":            domain.StatusDelivery,
	"out for delivery":   domain.StatusDelivery,
	"complete":           domain.StatusCompleted,
	"delivered":          domain.StatusCompleted,
	"done":               domain.StatusCompleted,
	"canceled":           domain.StatusCancelled,
	"cancel":             domain.StatusCancelled,
	"void":               domain.StatusCancelled,
}

// normalizeKey lowers, trims, and collapses separator styles (underscores,
// hyphens, repeated spaces) to single spaces.
func normalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.ReplaceAll(key, "-", " ")
	return strings.Join(strings.Fields(key), " ")
}

// NormalizeStatus maps a raw CMS status string to a canonical workflow stage.
// Case, surrounding whitespace, and separator style are ignored. Unknown
// values land in the earliest stage rather than failing the record.
func NormalizeStatus(raw string) domain.Status {
	if status, ok := statusLookup[normalizeKey(raw)]; ok {
		return status
	}
	return domain.StatusQuote
}

// NormalizeJob converts a flattened CMS entry into a Job. Normalization is
// total: a missing due date falls back to now, a missing customer to the
// placeholder name, and an unknown status to the earliest stage.
func NormalizeJob(entry map[string]any, now time.Time) domain.Job {
	job := domain.Job{
		ID:               stringField(entry, "id"),
		Customer:         customerName(entry),
		AssignedTo:       stringField(entry, "assignedTo", "assigned_to"),
		Status:           NormalizeStatus(stringField(entry, "status", "orderStatus")),
		Quantity:         intField(entry, "quantity", "totalQuantity"),
		EstimatedMinutes: intField(entry, "estimatedMinutes", "estimated_minutes"),
		DueDate:          timeField(entry, now, "dueDate", "due_date", "productionDueDate"),
		CreatedAt:        timeField(entry, now, "createdAt", "created_at"),
		UpdatedAt:        timeField(entry, now, "updatedAt", "updated_at"),
	}
	if job.Customer == "" {
		job.Customer = UnknownCustomer
	}
	return job
}

// NormalizeInvoice converts a flattened CMS entry into an Invoice.
func NormalizeInvoice(entry map[string]any, now time.Time) domain.Invoice {
	inv := domain.Invoice{
		ID:          stringField(entry, "id"),
		Number:      stringField(entry, "number", "invoiceNumber"),
		Customer:    customerName(entry),
		TotalAmount: floatField(entry, "totalAmount", "total", "amount"),
		AmountPaid:  floatField(entry, "amountPaid", "amount_paid"),
		IssuedAt:    timeField(entry, now, "issuedAt", "invoiceDate", "createdAt"),
		DueDate:     timeField(entry, now, "dueDate", "paymentDueDate"),
		CreatedAt:   timeField(entry, now, "createdAt", "created_at"),
		UpdatedAt:   timeField(entry, now, "updatedAt", "updated_at"),
	}
	if inv.Customer == "" {
		inv.Customer = UnknownCustomer
	}

	switch normalizeKey(stringField(entry, "status", "invoiceStatus")) {
	case "paid", "invoice paid", "payment received":
		inv.Status = domain.InvoicePaid
	case "overdue", "past due":
		inv.Status = domain.InvoiceOverdue
	default:
		inv.Status = domain.InvoicePending
	}

	if inv.Status == domain.InvoicePaid {
		paidAt := timeField(entry, now, "paidAt", "paid_at")
		inv.PaidAt = &paidAt
		if inv.AmountPaid == 0 {
			inv.AmountPaid = inv.TotalAmount
		}
	}
	return inv
}

// NormalizeSOP converts a flattened CMS entry into a SOP.
func NormalizeSOP(entry map[string]any, now time.Time) domain.SOP {
	return domain.SOP{
		ID:        stringField(entry, "id"),
		Title:     stringField(entry, "title", "name"),
		Category:  stringField(entry, "category"),
		Content:   stringField(entry, "content", "body"),
		Version:   intField(entry, "version"),
		CreatedAt: timeField(entry, now, "createdAt", "created_at"),
		UpdatedAt: timeField(entry, now, "updatedAt", "updated_at"),
	}
}

// NormalizeProduct converts a flattened CMS entry into a Product.
func NormalizeProduct(entry map[string]any, now time.Time) domain.Product {
	return domain.Product{
		ID:        stringField(entry, "id"),
		SKU:       stringField(entry, "sku"),
		Name:      stringField(entry, "name", "title"),
		Brand:     stringField(entry, "brand"),
		Category:  stringField(entry, "category"),
		Supplier:  stringField(entry, "supplier"),
		UnitPrice: floatField(entry, "unitPrice", "price", "unit_price"),
		CreatedAt: timeField(entry, now, "createdAt", "created_at"),
		UpdatedAt: timeField(entry, now, "updatedAt", "updated_at"),
	}
}

// customerName resolves the customer field across shapes: a plain string, a
// Strapi relation ({"data": {"attributes": {"name": ...}}} in v4, a flat
// object in v5), or a dedicated customerName field.
func customerName(entry map[string]any) string {
	switch v := entry["customer"].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		rel := v
		if data, ok := rel["data"].(map[string]any); ok {
			rel = data
		}
		if attrs, ok := rel["attributes"].(map[string]any); ok {
			rel = attrs
		}
		if name, ok := rel["name"].(string); ok {
			return strings.TrimSpace(name)
		}
		if name, ok := rel["companyName"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return strings.TrimSpace(stringField(entry, "customerName", "customer_name"))
}

// stringField returns the first present non-empty string among keys.
func stringField(entry map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := entry[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// intField returns the first present numeric value among keys, truncated.
func intField(entry map[string]any, keys ...string) int {
	for _, k := range keys {
		switch n := entry[k].(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

// floatField returns the first present numeric value among keys. String
// numbers (Strapi decimals come back as strings) are parsed too.
func floatField(entry map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch n := entry[k].(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// timeField returns the first parseable timestamp among keys, falling back
// to the provided instant. Accepts RFC3339 and plain dates.
func timeField(entry map[string]any, fallback time.Time, keys ...string) time.Time {
	for _, k := range keys {
		s, ok := entry[k].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return fallback
}
