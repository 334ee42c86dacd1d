package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/domain"
)

// SlotReader is the persistence port the scheduling rules need. Only quotes
// with an active status count toward conflicts and capacity.
type SlotReader interface {
	// ActiveQuotesAt returns the active quotes occupying the exact slot,
	// excluding excludeID when it is non-nil.
	ActiveQuotesAt(ctx context.Context, date time.Time, t domain.TimeOfDay, excludeID uuid.UUID) ([]domain.Quote, error)

	// CountActiveOn returns the number of active quotes on the date.
	CountActiveOn(ctx context.Context, date time.Time) (int, error)
}

// ConflictReport is the outcome of one conflict check. Conflicting quotes are
// ordered by creation time, earliest first.
type ConflictReport struct {
	HasConflict bool
	Conflicting []domain.Quote
}

// ConflictDetector finds active quotes competing for the same slot. Conflicts
// never block persistence; they are recorded and surfaced for manual
// resolution under first-come-first-serve ordering.
type ConflictDetector struct {
	slots SlotReader
}

func NewConflictDetector(slots SlotReader) *ConflictDetector {
	return &ConflictDetector{slots: slots}
}

// Detect checks whether the slot is contested by any active quote other than
// excludeID. Pass uuid.Nil at creation time, when the quote has no ID yet.
func (d *ConflictDetector) Detect(ctx context.Context, date time.Time, t domain.TimeOfDay, excludeID uuid.UUID) (ConflictReport, error) {
	conflicting, err := d.slots.ActiveQuotesAt(ctx, date, t, excludeID)
	if err != nil {
		return ConflictReport{}, err
	}
	return ConflictReport{
		HasConflict: len(conflicting) > 0,
		Conflicting: conflicting,
	}, nil
}

// HoldsPriority reports whether q wins the slot under first-come-first-serve
// ordering. The earliest created quote holds priority; the loser is the one
// operators are prompted to reschedule.
func HoldsPriority(q *domain.Quote, conflicting []domain.Quote) bool {
	for i := range conflicting {
		if conflicting[i].CreatedAt.Before(q.CreatedAt) {
			return false
		}
	}
	return true
}
