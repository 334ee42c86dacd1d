// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"studiodesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteSubmitted is published when a client submits a new quote request
// through the public booking form.
type QuoteSubmitted struct {
	BaseEvent
	QuoteID      uuid.UUID `json:"quoteId"`
	ClientName   string    `json:"clientName"`
	ClientEmail  string    `json:"clientEmail"`
	ClientPhone  string    `json:"clientPhone"`
	EventType    string    `json:"eventType"`
	EventDate    time.Time `json:"eventDate"`
	EventTime    string    `json:"eventTime"`
	Services     []string  `json:"services"`
	PriceRange   string    `json:"priceRange"`
	HasConflict  bool      `json:"hasConflict"`
	Rescheduled  bool      `json:"rescheduled"`
	OriginalDate time.Time `json:"originalDate"`
}

func (e QuoteSubmitted) EventName() string { return "quotes.quote.submitted" }

// QuoteStatusChanged is published when an operator moves a quote request
// to a new lifecycle status.
type QuoteStatusChanged struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
	ActorID     uuid.UUID `json:"actorId"`
}

func (e QuoteStatusChanged) EventName() string { return "quotes.quote.status_changed" }

// QuoteRescheduled is published when an operator moves a quote request to a
// different event date or time.
type QuoteRescheduled struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	OldDate     time.Time `json:"oldDate"`
	OldTime     string    `json:"oldTime"`
	NewDate     time.Time `json:"newDate"`
	NewTime     string    `json:"newTime"`
	ActorID     uuid.UUID `json:"actorId"`
}

func (e QuoteRescheduled) EventName() string { return "quotes.quote.rescheduled" }
