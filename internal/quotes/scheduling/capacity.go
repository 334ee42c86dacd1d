package scheduling

import (
	"context"
	"time"
)

// capacitySearchWindowDays bounds the forward scan for a replacement date.
const capacitySearchWindowDays = 30

// CapacityEnforcer applies the daily quote ceiling.
type CapacityEnforcer struct {
	slots   SlotReader
	hours   WeeklyHours
	ceiling int
}

func NewCapacityEnforcer(slots SlotReader, hours WeeklyHours, ceiling int) *CapacityEnforcer {
	return &CapacityEnforcer{slots: slots, hours: hours, ceiling: ceiling}
}

// Ceiling returns the configured daily maximum of active quotes.
func (e *CapacityEnforcer) Ceiling() int {
	return e.ceiling
}

// Check counts active quotes on the date against the ceiling. Under the
// ceiling it returns the date unchanged. At or over, it scans day by day for
// up to capacitySearchWindowDays looking for the first open weekday under the
// ceiling and returns a CapacityExceededError carrying that suggestion. The
// caller decides whether to apply it. When no day in the window qualifies it
// returns ErrNoCapacity and the request must be rejected outright.
func (e *CapacityEnforcer) Check(ctx context.Context, date time.Time) (time.Time, error) {
	count, err := e.slots.CountActiveOn(ctx, date)
	if err != nil {
		return time.Time{}, err
	}
	if count < e.ceiling {
		return date, nil
	}

	for i := 1; i <= capacitySearchWindowDays; i++ {
		candidate := date.AddDate(0, 0, i)
		if !e.hours.IsOpenDay(candidate.Weekday()) {
			continue
		}
		n, err := e.slots.CountActiveOn(ctx, candidate)
		if err != nil {
			return time.Time{}, err
		}
		if n < e.ceiling {
			return time.Time{}, &CapacityExceededError{
				Date:          date,
				SuggestedDate: candidate,
				CurrentCount:  count,
				Ceiling:       e.ceiling,
			}
		}
	}

	return time.Time{}, ErrNoCapacity
}
