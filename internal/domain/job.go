package domain

import "time"

// Status is a workflow stage in the print-shop production pipeline.
type Status string

const (
	StatusQuote     Status = "quote"
	StatusDesign    Status = "design"
	StatusPrepress  Status = "prepress"
	StatusPrinting  Status = "printing"
	StatusFinishing Status = "finishing"
	StatusDelivery  Status = "delivery"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// WorkflowOrder is the fixed column order of the production board. Cancelled is
// not part of the walk; it is a terminal state reachable from any stage.
var WorkflowOrder = []Status{
	StatusQuote,
	StatusDesign,
	StatusPrepress,
	StatusPrinting,
	StatusFinishing,
	StatusDelivery,
	StatusCompleted,
}

// Priority is derived from time-to-due-date at read time and is never stored.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of a priority; lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	default:
		return 3
	}
}

// Job is a unit of print-shop work tracked through the workflow stages.
// Records are owned by the CMS; this service only reads them and derives
// transient views.
type Job struct {
	ID               string    `json:"id"`
	Customer         string    `json:"customer"`
	AssignedTo       string    `json:"assigned_to,omitempty"`
	Status           Status    `json:"status"`
	Quantity         int       `json:"quantity"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	DueDate          time.Time `json:"due_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsValidStatus reports whether s is one of the canonical workflow statuses.
func IsValidStatus(s Status) bool {
	if s == StatusCancelled {
		return true
	}
	return workflowIndex(s) >= 0
}

// IsTerminal reports whether no further transitions are allowed out of s.
// Only cancelled is terminal: a completed job can still be reopened by a
// direct status set, matching how the board's dropdown behaves.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled
}

// NextStatus returns the adjacent forward stage. The walk stops at completed
// and never moves a cancelled job.
func NextStatus(s Status) (Status, bool) {
	i := workflowIndex(s)
	if i < 0 || i == len(WorkflowOrder)-1 {
		return s, false
	}
	return WorkflowOrder[i+1], true
}

// PrevStatus returns the adjacent backward stage. The walk stops at quote and
// never moves a cancelled job.
func PrevStatus(s Status) (Status, bool) {
	i := workflowIndex(s)
	if i <= 0 {
		return s, false
	}
	return WorkflowOrder[i-1], true
}

// CanTransition reports whether a direct status set from one stage to another
// is legal. The rule chosen for this service: cancelled is terminal, every
// other jump (adjacent or not) is allowed, including jumping to cancelled.
func CanTransition(from, to Status) bool {
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	return true
}

func workflowIndex(s Status) int {
	for i, w := range WorkflowOrder {
		if w == s {
			return i
		}
	}
	return -1
}
