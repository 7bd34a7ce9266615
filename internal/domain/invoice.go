package domain

import "time"

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// Invoice represents a customer invoice as stored in the CMS. Amounts are
// dollar values; the CMS stores them as decimals.
type Invoice struct {
	ID          string        `json:"id"`
	Number      string        `json:"number"`
	Customer    string        `json:"customer"`
	TotalAmount float64       `json:"total_amount"`
	AmountPaid  float64       `json:"amount_paid"`
	Status      InvoiceStatus `json:"status"`
	IssuedAt    time.Time     `json:"issued_at"`
	DueDate     time.Time     `json:"due_date"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Outstanding returns the unpaid balance, never negative.
func (i Invoice) Outstanding() float64 {
	if out := i.TotalAmount - i.AmountPaid; out > 0 {
		return out
	}
	return 0
}
