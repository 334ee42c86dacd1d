package scheduling

import (
	"fmt"
	"time"

	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/platform/config"
)

// Window is one weekday's opening window. Both bounds are inclusive, so a
// booking exactly at opening or closing time is accepted.
type Window struct {
	Open  domain.TimeOfDay
	Close domain.TimeOfDay
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t domain.TimeOfDay) bool {
	return !t.Before(w.Open) && !t.After(w.Close)
}

// WeeklyHours is the studio's operating-hours table. A weekday absent from
// the map is a closed day.
type WeeklyHours map[time.Weekday]Window

// NewWeeklyHours parses the raw "HH:MM" pairs from configuration into a
// validated table. An open bound at or after the close bound is rejected.
func NewWeeklyHours(raw map[time.Weekday]config.HoursRange) (WeeklyHours, error) {
	hours := make(WeeklyHours, len(raw))
	for day, rng := range raw {
		open, err := domain.ParseTimeOfDay(rng.Open)
		if err != nil {
			return nil, fmt.Errorf("invalid opening time for %s: %w", day, err)
		}
		close, err := domain.ParseTimeOfDay(rng.Close)
		if err != nil {
			return nil, fmt.Errorf("invalid closing time for %s: %w", day, err)
		}
		if !open.Before(close) {
			return nil, fmt.Errorf("opening time %s is not before closing time %s for %s", open, close, day)
		}
		hours[day] = Window{Open: open, Close: close}
	}
	return hours, nil
}

// Window returns the opening window for a weekday.
func (h WeeklyHours) Window(day time.Weekday) (Window, bool) {
	w, ok := h[day]
	return w, ok
}

// IsOpenDay reports whether the studio operates on the given weekday.
func (h WeeklyHours) IsOpenDay(day time.Weekday) bool {
	_, ok := h[day]
	return ok
}

// Validate checks a slot against the table. A closed weekday yields a
// ClosedDayError and a time outside the window an OutsideHoursError. The
// same check gates creation (hard rejection) and reads (advisory alert).
func (h WeeklyHours) Validate(date time.Time, t domain.TimeOfDay) error {
	day := date.Weekday()
	w, ok := h[day]
	if !ok {
		return &ClosedDayError{Day: day}
	}
	if !w.Contains(t) {
		return &OutsideHoursError{Day: day, Open: w.Open, Close: w.Close}
	}
	return nil
}
