package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/platform/config"
)

type fakeSlots struct {
	quotes []domain.Quote
}

func (f *fakeSlots) ActiveQuotesAt(_ context.Context, date time.Time, t domain.TimeOfDay, excludeID uuid.UUID) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range f.quotes {
		if q.ID == excludeID || !q.IsActive() || !q.HasSlot() {
			continue
		}
		if q.EventDate.Equal(date) && *q.EventTime == t {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeSlots) CountActiveOn(_ context.Context, date time.Time) (int, error) {
	count := 0
	for _, q := range f.quotes {
		if q.IsActive() && q.EventDate != nil && q.EventDate.Equal(date) {
			count++
		}
	}
	return count, nil
}

func mustTime(t *testing.T, raw string) domain.TimeOfDay {
	t.Helper()
	tod, err := domain.ParseTimeOfDay(raw)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", raw, err)
	}
	return tod
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func activeQuote(t *testing.T, eventDate time.Time, eventTime string, createdAt time.Time) domain.Quote {
	t.Helper()
	tod := mustTime(t, eventTime)
	return domain.Quote{
		ID:        uuid.New(),
		CreatedAt: createdAt,
		EventDate: &eventDate,
		EventTime: &tod,
		Status:    domain.StatusPending,
	}
}

func weekdayHours(t *testing.T) WeeklyHours {
	t.Helper()
	hours, err := NewWeeklyHours(map[time.Weekday]config.HoursRange{
		time.Monday:    {Open: "09:00", Close: "17:00"},
		time.Tuesday:   {Open: "09:00", Close: "17:00"},
		time.Wednesday: {Open: "09:00", Close: "17:00"},
		time.Thursday:  {Open: "09:00", Close: "17:00"},
		time.Friday:    {Open: "09:00", Close: "18:00"},
	})
	if err != nil {
		t.Fatalf("NewWeeklyHours: %v", err)
	}
	return hours
}

func TestNewWeeklyHoursRejectsInvertedWindow(t *testing.T) {
	_, err := NewWeeklyHours(map[time.Weekday]config.HoursRange{
		time.Monday: {Open: "17:00", Close: "09:00"},
	})
	if err == nil {
		t.Fatal("expected error for open after close")
	}

	_, err = NewWeeklyHours(map[time.Weekday]config.HoursRange{
		time.Monday: {Open: "nine", Close: "17:00"},
	})
	if err == nil {
		t.Fatal("expected error for unparseable time")
	}
}

func TestValidateOutsideHours(t *testing.T) {
	hours := weekdayHours(t)
	monday := date(2025, time.June, 2) // a Monday, 09:00-17:00

	err := hours.Validate(monday, mustTime(t, "18:00"))
	var outside *OutsideHoursError
	if !errors.As(err, &outside) {
		t.Fatalf("expected OutsideHoursError, got %v", err)
	}
	if outside.Open.String() != "09:00" || outside.Close.String() != "17:00" {
		t.Fatalf("expected suggested range 09:00-17:00, got %s-%s", outside.Open, outside.Close)
	}

	if err := hours.Validate(monday, mustTime(t, "08:59")); err == nil {
		t.Fatal("expected rejection before opening")
	}
}

func TestValidateClosedDay(t *testing.T) {
	hours := weekdayHours(t)
	sunday := date(2025, time.June, 1)

	err := hours.Validate(sunday, mustTime(t, "12:00"))
	var closed *ClosedDayError
	if !errors.As(err, &closed) {
		t.Fatalf("expected ClosedDayError, got %v", err)
	}
	if closed.Day != time.Sunday {
		t.Fatalf("expected Sunday, got %s", closed.Day)
	}
}

func TestValidateBoundariesInclusive(t *testing.T) {
	hours := weekdayHours(t)
	monday := date(2025, time.June, 2)

	for _, raw := range []string{"09:00", "17:00", "12:30"} {
		if err := hours.Validate(monday, mustTime(t, raw)); err != nil {
			t.Fatalf("expected %s to be accepted: %v", raw, err)
		}
	}
}

func TestConflictDetector(t *testing.T) {
	ctx := context.Background()
	day := date(2025, time.July, 4)

	q1 := activeQuote(t, day, "14:00", time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC))
	q2 := activeQuote(t, day, "14:00", time.Date(2025, time.June, 20, 10, 5, 0, 0, time.UTC))
	cancelled := activeQuote(t, day, "14:00", time.Now())
	cancelled.Status = domain.StatusCancelled

	detector := NewConflictDetector(&fakeSlots{quotes: []domain.Quote{q1, q2, cancelled}})

	report, err := detector.Detect(ctx, day, mustTime(t, "14:00"), q2.ID)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !report.HasConflict || len(report.Conflicting) != 1 {
		t.Fatalf("expected exactly one conflicting quote, got %+v", report)
	}
	if report.Conflicting[0].ID != q1.ID {
		t.Fatal("cancelled quotes must not count as conflicts")
	}

	if !HoldsPriority(&q1, []domain.Quote{q2}) {
		t.Fatal("earliest created quote must hold priority")
	}
	if HoldsPriority(&q2, []domain.Quote{q1}) {
		t.Fatal("later quote must not hold priority")
	}

	report, err = detector.Detect(ctx, day, mustTime(t, "15:00"), uuid.Nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if report.HasConflict {
		t.Fatal("expected free slot to report no conflict")
	}
}

func TestCapacityUnderCeiling(t *testing.T) {
	day := date(2025, time.June, 2)
	slots := &fakeSlots{quotes: []domain.Quote{
		activeQuote(t, day, "10:00", time.Now()),
	}}
	enforcer := NewCapacityEnforcer(slots, weekdayHours(t), 2)

	got, err := enforcer.Check(context.Background(), day)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !got.Equal(day) {
		t.Fatalf("expected date unchanged, got %s", got.Format("2006-01-02"))
	}
}

func TestCapacitySuggestsNextOpenDay(t *testing.T) {
	// 2025-06-01 is a Sunday (closed); the table only matters for the
	// suggestion scan, not for the requested date itself.
	full := date(2025, time.June, 1)
	slots := &fakeSlots{quotes: []domain.Quote{
		activeQuote(t, full, "10:00", time.Now()),
		activeQuote(t, full, "11:00", time.Now()),
	}}
	enforcer := NewCapacityEnforcer(slots, weekdayHours(t), 2)

	_, err := enforcer.Check(context.Background(), full)
	var exceeded *CapacityExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	want := date(2025, time.June, 2) // Monday, first open day under the ceiling
	if !exceeded.SuggestedDate.Equal(want) {
		t.Fatalf("expected suggestion %s, got %s", want.Format("2006-01-02"), exceeded.SuggestedDate.Format("2006-01-02"))
	}
	if exceeded.CurrentCount != 2 || exceeded.Ceiling != 2 {
		t.Fatalf("unexpected counts in error: %+v", exceeded)
	}
}

func TestCapacitySkipsFullAndClosedDays(t *testing.T) {
	full := date(2025, time.June, 2) // Monday
	next := date(2025, time.June, 3) // Tuesday, also full
	slots := &fakeSlots{quotes: []domain.Quote{
		activeQuote(t, full, "10:00", time.Now()),
		activeQuote(t, next, "10:00", time.Now()),
	}}
	enforcer := NewCapacityEnforcer(slots, weekdayHours(t), 1)

	_, err := enforcer.Check(context.Background(), full)
	var exceeded *CapacityExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	want := date(2025, time.June, 4) // Wednesday
	if !exceeded.SuggestedDate.Equal(want) {
		t.Fatalf("expected suggestion %s, got %s", want.Format("2006-01-02"), exceeded.SuggestedDate.Format("2006-01-02"))
	}
}

func TestCapacityExhaustedWindow(t *testing.T) {
	start := date(2025, time.June, 2)
	var quotes []domain.Quote
	// Fill the requested date and every open day across the scan window.
	for i := 0; i <= capacitySearchWindowDays; i++ {
		quotes = append(quotes, activeQuote(t, start.AddDate(0, 0, i), "10:00", time.Now()))
	}
	enforcer := NewCapacityEnforcer(&fakeSlots{quotes: quotes}, weekdayHours(t), 1)

	_, err := enforcer.Check(context.Background(), start)
	if !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}
}

func TestSearchReturnsVerifiedAlternatives(t *testing.T) {
	ctx := context.Background()
	day := date(2025, time.July, 4) // Friday, 09:00-18:00

	subject := activeQuote(t, day, "14:00", time.Date(2025, time.June, 20, 10, 5, 0, 0, time.UTC))
	occupant15 := activeQuote(t, day, "15:00", time.Now())
	occupant14 := activeQuote(t, day, "14:00", time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC))

	hours := weekdayHours(t)
	slots := &fakeSlots{quotes: []domain.Quote{subject, occupant14, occupant15}}
	searcher := NewAlternativeSearcher(hours, NewConflictDetector(slots))

	result, err := searcher.Search(ctx, &subject, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if len(result.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(result.Suggestions))
	}

	// Offset +1 (15:00) is occupied, so -1 (13:00) and +2 (16:00) come back.
	if result.Suggestions[0].Time.String() != "13:00" || result.Suggestions[0].OffsetHours != -1 {
		t.Fatalf("unexpected first suggestion %+v", result.Suggestions[0])
	}
	if result.Suggestions[1].Time.String() != "16:00" || result.Suggestions[1].OffsetHours != 2 {
		t.Fatalf("unexpected second suggestion %+v", result.Suggestions[1])
	}
	if result.Suggestions[0].Display != "1:00 PM" {
		t.Fatalf("unexpected display %q", result.Suggestions[0].Display)
	}

	// Every suggestion must survive a re-run of both checks.
	for _, s := range result.Suggestions {
		if err := hours.Validate(day, s.Time); err != nil {
			t.Fatalf("suggestion %s outside hours: %v", s.Time, err)
		}
		report, err := NewConflictDetector(slots).Detect(ctx, day, s.Time, subject.ID)
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if report.HasConflict {
			t.Fatalf("suggestion %s collides with an active quote", s.Time)
		}
	}

	d := result.Diagnostics
	if d.SlotsChecked != 3 || d.SlotsWithinHours != 3 || d.SlotsConflictFree != 2 {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
	if d.RejectedCount != 1 || len(d.RejectedSample) != 1 || d.RejectedSample[0].Reason != "time slot occupied" {
		t.Fatalf("unexpected rejection sample %+v", d.RejectedSample)
	}
}

func TestSearchRespectsStudioHours(t *testing.T) {
	ctx := context.Background()
	day := date(2025, time.June, 2) // Monday, 09:00-17:00

	// 16:00 original: +1 is 17:00 (closing, allowed), +2 onward are outside.
	subject := activeQuote(t, day, "16:00", time.Now())
	searcher := NewAlternativeSearcher(weekdayHours(t), NewConflictDetector(&fakeSlots{}))

	result, err := searcher.Search(ctx, &subject, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, s := range result.Suggestions {
		tod := s.Time
		if tod.Before(mustTime(t, "09:00")) || tod.After(mustTime(t, "17:00")) {
			t.Fatalf("suggestion %s outside studio hours", tod)
		}
	}
	if result.Diagnostics.RejectedCount == 0 {
		t.Fatal("expected some probes outside hours to be rejected")
	}
	if len(result.Diagnostics.RejectedSample) > rejectedSampleSize {
		t.Fatalf("rejection sample too large: %d", len(result.Diagnostics.RejectedSample))
	}
}

func TestSearchClosedDayAndMissingSlot(t *testing.T) {
	ctx := context.Background()
	searcher := NewAlternativeSearcher(weekdayHours(t), NewConflictDetector(&fakeSlots{}))

	sundayQuote := activeQuote(t, date(2025, time.June, 1), "12:00", time.Now())
	result, err := searcher.Search(ctx, &sundayQuote, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Success || result.Error == "" {
		t.Fatalf("expected failure on closed day, got %+v", result)
	}

	noSlot := domain.Quote{ID: uuid.New(), Status: domain.StatusPending}
	result, err = searcher.Search(ctx, &noSlot, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for quote without a slot")
	}
}

func TestSearchCapsSuggestionCount(t *testing.T) {
	ctx := context.Background()
	day := date(2025, time.June, 4) // Wednesday
	subject := activeQuote(t, day, "12:00", time.Now())
	searcher := NewAlternativeSearcher(weekdayHours(t), NewConflictDetector(&fakeSlots{}))

	result, err := searcher.Search(ctx, &subject, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Suggestions) != DefaultMaxSuggestions {
		t.Fatalf("expected default of %d suggestions, got %d", DefaultMaxSuggestions, len(result.Suggestions))
	}

	result, err = searcher.Search(ctx, &subject, 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Suggestions) > maxSuggestionsCap {
		t.Fatalf("suggestion count %d exceeds cap", len(result.Suggestions))
	}
}
