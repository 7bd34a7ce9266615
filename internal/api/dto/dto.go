// Package dto defines the request and response shapes of the HTTP API.
package dto

import "github.com/printshop-os/opsboard/internal/schedule"

type JobResponse struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	AssignedTo       string `json:"assigned_to,omitempty"`
	Status           string `json:"status"`
	Priority         string `json:"priority"`
	Quantity         int    `json:"quantity"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	DueDate          string `json:"due_date"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
}

type UpdateJobStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type QueuedMutationResponse struct {
	MutationID string `json:"mutation_id"`
	Kind       string `json:"kind"`
	TargetID   string `json:"target_id"`
	Status     string `json:"status"`
}

type ScheduleRangeRequest struct {
	From        string `form:"from"`
	To          string `form:"to"`
	Granularity string `form:"granularity"`
}

type QueueRequest struct {
	Sort   string `form:"sort"`
	Status string `form:"status"`
}

type BoardColumn struct {
	Status string        `json:"status"`
	Jobs   []JobResponse `json:"jobs"`
}

type CalendarDay struct {
	schedule.CapacityData
	Jobs []JobResponse `json:"jobs"`
}

type InvoiceResponse struct {
	ID          string  `json:"id"`
	Number      string  `json:"number"`
	Customer    string  `json:"customer"`
	TotalAmount float64 `json:"total_amount"`
	AmountPaid  float64 `json:"amount_paid"`
	Outstanding float64 `json:"outstanding"`
	Status      string  `json:"status"`
	IssuedAt    string  `json:"issued_at"`
	DueDate     string  `json:"due_date"`
	PaidAt      string  `json:"paid_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type SOPResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Content   string `json:"content"`
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type SaveSOPRequest struct {
	Content string `json:"content" binding:"required"`
}

type ProductResponse struct {
	ID        string  `json:"id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand,omitempty"`
	Category  string  `json:"category,omitempty"`
	Supplier  string  `json:"supplier,omitempty"`
	UnitPrice float64 `json:"unit_price"`
}

type RevenueRequest struct {
	Months int `form:"months"`
}

type TopCustomersRequest struct {
	Limit int `form:"limit"`
}

type SnapshotStatusResponse struct {
	Source              string `json:"source"`
	Seq                 uint64 `json:"seq"`
	FetchedAt           string `json:"fetched_at,omitempty"`
	JobCount            int    `json:"job_count"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
	LastErrorAt         string `json:"last_error_at,omitempty"`
}

type OutboxStatusResponse struct {
	Pending int `json:"pending"`
	Syncing int `json:"syncing"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Backlog int `json:"backlog"`
}

type SyncStatusResponse struct {
	Snapshot SnapshotStatusResponse `json:"snapshot"`
	Outbox   OutboxStatusResponse   `json:"outbox"`
}
