package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceSnapshot is an immutable priced copy of a catalog service taken
// when the client selected it. Quotes never reference live catalog rows, so
// later price changes cannot rewrite history. JSON tags match the stored
// JSONB shape.
type ServiceSnapshot struct {
	ServiceID    uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	PriceMin     *float64  `json:"price_min"`
	PriceMax     *float64  `json:"price_max"`
	PriceDisplay string    `json:"price_display"`
	Features     []string  `json:"features,omitempty"`
}

// HasPricing reports whether the snapshot carries at least one price bound.
// Snapshots without pricing are treated as unenriched references.
func (s ServiceSnapshot) HasPricing() bool {
	return s.PriceMin != nil || s.PriceMax != nil
}

// Quote is a client's quote request, the central entity of the scheduling
// engine.
type Quote struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	// Client fields
	ClientName  string
	ClientEmail string
	ClientPhone string
	Company     *string

	// Requested slot. Both present or both absent; conflict and capacity
	// logic is skipped when either is missing.
	EventType     string
	EventDate     *time.Time
	EventTime     *TimeOfDay
	EventLocation *string

	// Intake details
	BudgetRange        *string
	ProjectDescription *string
	ReferralSource     *string

	SelectedServices []ServiceSnapshot

	// HasConflict is a cache of the last conflict computation. Reads always
	// recompute; the stored value is only a hint.
	HasConflict bool

	Status Status

	// Operator-managed fields
	QuotedAmount       *float64
	QuoteDetails       *string
	AssignedTo         *uuid.UUID
	CancellationReason *string

	// Transition timestamps
	QuoteSentAt *time.Time
	CancelledAt *time.Time
	ValidUntil  *time.Time
}

// HasSlot reports whether the quote occupies a calendar slot.
func (q *Quote) HasSlot() bool {
	return q.EventDate != nil && q.EventTime != nil
}

// IsActive reports whether the quote counts toward conflicts and capacity.
func (q *Quote) IsActive() bool {
	return q.Status.IsActive()
}
