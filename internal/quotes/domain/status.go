// Package domain holds the quote request entity, its status state machine,
// and the small value types the scheduling engine is built on.
package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a quote request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every valid status, in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusSent,
	StatusAccepted,
	StatusRejected,
	StatusCancelled,
}

// ActiveStatuses are the statuses that occupy a calendar slot. Only these
// count toward conflicts and the daily capacity ceiling.
var ActiveStatuses = []Status{StatusPending, StatusSent, StatusAccepted}

// transitions is the closed transition table. A status absent from the map
// (or mapped to an empty set) is terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusSent, StatusAccepted, StatusRejected, StatusCancelled},
	StatusSent:     {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusCancelled},
}

// ParseStatus normalizes a raw status string. Parsing is case-insensitive
// to tolerate clients sending "PENDING" or "Pending".
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// IsActive reports whether the status occupies a calendar slot.
func (s Status) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether moving from s to next is allowed by the
// state machine. A no-op transition (same status) is not a transition and
// returns false.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s.
func (s Status) AllowedTransitions() []Status {
	allowed := transitions[s]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}
