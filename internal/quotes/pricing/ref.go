// Package pricing resolves raw service references into priced snapshots and
// computes aggregate price estimates for a quote.
package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/domain"
)

// ServiceRef is one entry of a quote's selected_services input. Clients send
// them in several shapes: a bare id string, an object carrying "id" or
// "service_id", or a full snapshot from a previous response. Unmarshalling
// normalizes all of them; exactly one of ID/Snapshot is set.
type ServiceRef struct {
	ID       uuid.UUID
	Snapshot *domain.ServiceSnapshot
}

// IsEnriched reports whether the reference is already a priced snapshot.
func (r ServiceRef) IsEnriched() bool {
	return r.Snapshot != nil
}

type refObject struct {
	ID           *uuid.UUID `json:"id"`
	ServiceID    *uuid.UUID `json:"service_id"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	PriceMin     *float64   `json:"price_min"`
	PriceMax     *float64   `json:"price_max"`
	PriceDisplay string     `json:"price_display"`
	Features     []string   `json:"features"`
}

// UnmarshalJSON normalizes the accepted reference shapes.
func (r *ServiceRef) UnmarshalJSON(data []byte) error {
	// Bare id string
	var rawID string
	if err := json.Unmarshal(data, &rawID); err == nil {
		id, err := uuid.Parse(rawID)
		if err != nil {
			return fmt.Errorf("invalid service id %q", rawID)
		}
		*r = ServiceRef{ID: id}
		return nil
	}

	var obj refObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid service reference: %w", err)
	}

	id := obj.ServiceID
	if id == nil {
		id = obj.ID
	}
	if id == nil {
		return fmt.Errorf("service reference must contain 'id' or 'service_id'")
	}

	// An object carrying price bounds is an already-enriched snapshot and
	// passes through unchanged.
	if obj.PriceMin != nil || obj.PriceMax != nil {
		*r = ServiceRef{Snapshot: &domain.ServiceSnapshot{
			ServiceID:    *id,
			Title:        obj.Title,
			Category:     obj.Category,
			PriceMin:     obj.PriceMin,
			PriceMax:     obj.PriceMax,
			PriceDisplay: obj.PriceDisplay,
			Features:     obj.Features,
		}}
		return nil
	}

	*r = ServiceRef{ID: *id}
	return nil
}
