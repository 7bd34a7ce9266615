package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		expected Status
		ok       bool
	}{
		{name: "quote advances to design", from: StatusQuote, expected: StatusDesign, ok: true},
		{name: "printing advances to finishing", from: StatusPrinting, expected: StatusFinishing, ok: true},
		{name: "delivery advances to completed", from: StatusDelivery, expected: StatusCompleted, ok: true},
		{name: "completed has no next stage", from: StatusCompleted, ok: false},
		{name: "cancelled has no next stage", from: StatusCancelled, ok: false},
		{name: "unknown status has no next stage", from: Status("mystery"), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := NextStatus(tt.from)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, next)
			}
		})
	}
}

func TestPrevStatus(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		expected Status
		ok       bool
	}{
		{name: "design steps back to quote", from: StatusDesign, expected: StatusQuote, ok: true},
		{name: "completed steps back to delivery", from: StatusCompleted, expected: StatusDelivery, ok: true},
		{name: "quote has no previous stage", from: StatusQuote, ok: false},
		{name: "cancelled has no previous stage", from: StatusCancelled, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, ok := PrevStatus(tt.from)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, prev)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{name: "adjacent forward", from: StatusQuote, to: StatusDesign, allowed: true},
		{name: "skip ahead", from: StatusQuote, to: StatusPrinting, allowed: true},
		{name: "step back", from: StatusFinishing, to: StatusPrepress, allowed: true},
		{name: "cancel from any stage", from: StatusDesign, to: StatusCancelled, allowed: true},
		{name: "completed can reopen", from: StatusCompleted, to: StatusDelivery, allowed: true},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusQuote, allowed: false},
		{name: "unknown target", from: StatusQuote, to: Status("mystery"), allowed: false},
		{name: "unknown source", from: Status("mystery"), to: StatusQuote, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusQuote.IsTerminal())
}

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 0, PriorityUrgent.Rank())
	assert.Equal(t, 1, PriorityHigh.Rank())
	assert.Equal(t, 2, PriorityNormal.Rank())
	assert.Equal(t, 3, PriorityLow.Rank())
}
