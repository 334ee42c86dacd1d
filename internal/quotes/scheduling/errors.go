// Package scheduling implements the slot-level rules of the quote engine:
// the weekly operating-hours table, time conflict detection, the per-day
// capacity ceiling, and the alternative time search.
package scheduling

import (
	"errors"
	"fmt"
	"time"

	"studiodesk_backend/internal/quotes/domain"
)

// ErrNoCapacity is returned when the requested date is full and no open day
// under the ceiling exists within the forward search window.
var ErrNoCapacity = errors.New("no capacity available within the search window")

// ClosedDayError reports a requested date on a weekday with no studio hours.
type ClosedDayError struct {
	Day time.Weekday
}

func (e *ClosedDayError) Error() string {
	return fmt.Sprintf("studio is closed on %s", e.Day)
}

// OutsideHoursError reports a requested time outside that weekday's window.
// Open and Close are carried so callers can suggest the valid range.
type OutsideHoursError struct {
	Day   time.Weekday
	Open  domain.TimeOfDay
	Close domain.TimeOfDay
}

func (e *OutsideHoursError) Error() string {
	return fmt.Sprintf("studio is closed at this time on %s, hours are %s-%s", e.Day, e.Open, e.Close)
}

// CapacityExceededError reports a date at or over the daily ceiling. It
// carries the nearest open date under the ceiling; the caller decides whether
// to apply the suggestion or reject the request.
type CapacityExceededError struct {
	Date          time.Time
	SuggestedDate time.Time
	CurrentCount  int
	Ceiling       int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("maximum %d quotes reached for %s, nearest open date is %s",
		e.Ceiling, e.Date.Format("2006-01-02"), e.SuggestedDate.Format("2006-01-02"))
}
