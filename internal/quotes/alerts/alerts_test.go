package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/scheduling"
	"studiodesk_backend/platform/config"
)

type fakeStore struct {
	quotes []domain.Quote
}

func (f *fakeStore) BusyDays(_ context.Context, ceiling int) ([]BusyDay, error) {
	counts := make(map[time.Time]int)
	for _, q := range f.quotes {
		if q.IsActive() && q.EventDate != nil {
			counts[*q.EventDate]++
		}
	}
	var out []BusyDay
	for date, n := range counts {
		if n > ceiling {
			out = append(out, BusyDay{Date: date, Count: n})
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveQuotesOn(_ context.Context, date time.Time) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range f.quotes {
		if q.IsActive() && q.EventDate != nil && q.EventDate.Equal(date) {
			out = append(out, q)
		}
	}
	// Earliest created first, matching the store contract.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (f *fakeStore) StaleQuotes(_ context.Context, cutoff time.Time) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range f.quotes {
		if (q.Status == domain.StatusPending || q.Status == domain.StatusRejected) && q.CreatedAt.Before(cutoff) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeStore) StatusCounts(_ context.Context) (map[domain.Status]int, error) {
	counts := make(map[domain.Status]int)
	for _, q := range f.quotes {
		counts[q.Status]++
	}
	return counts, nil
}

func (f *fakeStore) ActiveQuotesAt(_ context.Context, date time.Time, t domain.TimeOfDay, excludeID uuid.UUID) ([]domain.Quote, error) {
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

func (f *fakeStore) CountActiveOn(_ context.Context, date time.Time) (int, error) {
	n := 0
	for _, q := range f.quotes {
		if q.IsActive() && q.EventDate != nil && q.EventDate.Equal(date) {
			n++
		}
	}
	return n, nil
}

func testQuote(t *testing.T, day time.Time, eventTime string, status domain.Status, createdAt time.Time) domain.Quote {
	t.Helper()
	tod, err := domain.ParseTimeOfDay(eventTime)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", eventTime, err)
	}
	return domain.Quote{
		ID:          uuid.New(),
		CreatedAt:   createdAt,
		ClientName:  "Achieng Otieno",
		ClientEmail: "achieng@example.com",
		EventDate:   &day,
		EventTime:   &tod,
		Status:      status,
	}
}

func newAggregator(t *testing.T, store *fakeStore, ceiling int) *Aggregator {
	t.Helper()
	hours, err := scheduling.NewWeeklyHours(map[time.Weekday]config.HoursRange{
		time.Monday:  {Open: "09:00", Close: "17:00"},
		time.Tuesday: {Open: "09:00", Close: "17:00"},
	})
	if err != nil {
		t.Fatalf("NewWeeklyHours: %v", err)
	}
	searcher := scheduling.NewAlternativeSearcher(hours, scheduling.NewConflictDetector(store))
	return NewAggregator(store, searcher, ceiling, 30*24*time.Hour)
}

func TestOvercrowdedDays(t *testing.T) {
	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	base := time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC)

	store := &fakeStore{quotes: []domain.Quote{
		testQuote(t, day, "09:00", domain.StatusPending, base),
		testQuote(t, day, "10:00", domain.StatusSent, base.Add(time.Hour)),
		testQuote(t, day, "11:00", domain.StatusPending, base.Add(2*time.Hour)),
	}}
	agg := newAggregator(t, store, 2)

	got, err := agg.OvercrowdedDays(context.Background())
	if err != nil {
		t.Fatalf("OvercrowdedDays: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(got))
	}

	a := got[0]
	if a.Type != TypeOvercrowdedDay || a.Severity != SeverityMedium {
		t.Fatalf("unexpected alert %+v", a)
	}
	if a.QuoteCount != 3 || a.ExcessCount != 1 {
		t.Fatalf("expected 3 quotes with 1 excess, got %+v", a)
	}
	// The excess quote is the latest created, never one of the first two.
	if len(a.ExcessQuotes) != 1 || !a.ExcessQuotes[0].CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("excess must hold quotes beyond the first %d by creation order, got %+v", 2, a.ExcessQuotes)
	}
}

func TestOvercrowdedDaysUnderCeiling(t *testing.T) {
	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{quotes: []domain.Quote{
		testQuote(t, day, "09:00", domain.StatusPending, time.Now()),
	}}
	agg := newAggregator(t, store, 2)

	got, err := agg.OvercrowdedDays(context.Background())
	if err != nil {
		t.Fatalf("OvercrowdedDays: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no alerts, got %d", len(got))
	}
}

func TestStaleQuotes(t *testing.T) {
	now := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)
	day := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	old := testQuote(t, day, "09:00", domain.StatusPending, now.AddDate(0, 0, -45))
	oldRejected := testQuote(t, day, "10:00", domain.StatusRejected, now.AddDate(0, 0, -31))
	fresh := testQuote(t, day, "11:00", domain.StatusPending, now.AddDate(0, 0, -5))
	oldAccepted := testQuote(t, day, "12:00", domain.StatusAccepted, now.AddDate(0, 0, -60))

	store := &fakeStore{quotes: []domain.Quote{old, oldRejected, fresh, oldAccepted}}
	agg := newAggregator(t, store, 5)

	got, err := agg.StaleQuotes(context.Background(), now)
	if err != nil {
		t.Fatalf("StaleQuotes: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected a single stale alert, got %d", len(got))
	}

	a := got[0]
	if a.Severity != SeverityLow || a.ActionRequired {
		t.Fatalf("stale alert must be low severity and advisory, got %+v", a)
	}
	if a.QuoteCount != 2 || len(a.StaleQuoteIDs) != 2 {
		t.Fatalf("expected 2 stale quotes, got %+v", a)
	}
	if a.StaleSample[0].AgeDays != 45 {
		t.Fatalf("expected age 45 days, got %d", a.StaleSample[0].AgeDays)
	}
}

func TestStaleQuotesNone(t *testing.T) {
	agg := newAggregator(t, &fakeStore{}, 5)
	got, err := agg.StaleQuotes(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("StaleQuotes: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestConflictAlert(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC) // Monday
	base := time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC)

	first := testQuote(t, day, "14:00", domain.StatusPending, base)
	second := testQuote(t, day, "14:00", domain.StatusPending, base.Add(5*time.Minute))

	store := &fakeStore{quotes: []domain.Quote{first, second}}
	agg := newAggregator(t, store, 5)

	report := scheduling.ConflictReport{HasConflict: true, Conflicting: []domain.Quote{first}}
	alert, err := agg.ConflictAlert(ctx, &second, report)
	if err != nil {
		t.Fatalf("ConflictAlert: %v", err)
	}
	if alert == nil {
		t.Fatal("expected an alert for the non-priority quote")
	}
	if alert.Severity != SeverityHigh || alert.Type != TypeTimeConflict {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if *alert.PriorityQuoteID != first.ID {
		t.Fatal("alert must point at the priority quote")
	}
	if alert.Alternatives == nil || !alert.Alternatives.Success {
		t.Fatalf("expected embedded verified alternatives, got %+v", alert.Alternatives)
	}

	// The priority holder gets no alert.
	report = scheduling.ConflictReport{HasConflict: true, Conflicting: []domain.Quote{second}}
	alert, err = agg.ConflictAlert(ctx, &first, report)
	if err != nil {
		t.Fatalf("ConflictAlert: %v", err)
	}
	if alert != nil {
		t.Fatalf("priority quote must not be flagged, got %+v", alert)
	}

	// Non-pending quotes are skipped even when losing the slot.
	second.Status = domain.StatusSent
	report = scheduling.ConflictReport{HasConflict: true, Conflicting: []domain.Quote{first}}
	alert, err = agg.ConflictAlert(ctx, &second, report)
	if err != nil {
		t.Fatalf("ConflictAlert: %v", err)
	}
	if alert != nil {
		t.Fatalf("sent quote must not be flagged, got %+v", alert)
	}
}

func TestSortBySeverityAndSummaries(t *testing.T) {
	list := []Alert{
		{Type: TypeStaleQuotes, Severity: SeverityLow, QuoteCount: 4},
		{Type: TypeTimeConflict, Severity: SeverityHigh, ActionRequired: true},
		{Type: TypeOvercrowdedDay, Severity: SeverityMedium, ActionRequired: true},
		{Type: TypeTimeConflict, Severity: SeverityHigh, ActionRequired: true},
	}

	SortBySeverity(list)
	want := []Severity{SeverityHigh, SeverityHigh, SeverityMedium, SeverityLow}
	for i, a := range list {
		if a.Severity != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], a.Severity)
		}
	}

	s := Summarize(list)
	if s.Total != 4 || s.High != 2 || s.Medium != 1 || s.Low != 1 {
		t.Fatalf("unexpected alerts summary %+v", s)
	}

	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{quotes: []domain.Quote{
		testQuote(t, day, "09:00", domain.StatusPending, time.Now()),
		testQuote(t, day, "10:00", domain.StatusAccepted, time.Now()),
		testQuote(t, day, "11:00", domain.StatusCancelled, time.Now()),
	}}
	agg := newAggregator(t, store, 5)

	summary, err := agg.Summarize(context.Background(), list)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.TotalQuotes != 3 || summary.PendingCount != 1 || summary.AcceptedCount != 1 || summary.CancelledCount != 1 {
		t.Fatalf("unexpected status counts %+v", summary)
	}
	if summary.TimeConflictsCount != 2 || summary.OvercrowdedDays != 1 || summary.StaleQuotesCount != 4 {
		t.Fatalf("unexpected alert counts %+v", summary)
	}
	if summary.ActionRequiredCount != 3 {
		t.Fatalf("expected 3 action-required alerts, got %d", summary.ActionRequiredCount)
	}
}
