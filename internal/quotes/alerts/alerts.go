// Package alerts turns the scheduling engine's findings into operator-facing
// alerts: calendar days over the ceiling, stale quotes eligible for cleanup,
// and per-quote slot conflicts with verified alternatives attached.
package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/scheduling"
)

// Severity orders alerts for the operator dashboard.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// rank maps severities to sort order, most urgent first.
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// Alert types.
const (
	TypeTimeConflict   = "TIME_CONFLICT"
	TypeOvercrowdedDay = "OVERCROWDED_DAY"
	TypeStaleQuotes    = "STALE_QUOTES"
)

// Suggested operator actions carried on alerts.
const (
	ActionUpdateTime   = "UPDATE_TIME"
	ActionDeleteExcess = "DELETE_EXCESS"
	ActionDeleteStale  = "DELETE_STALE"
)

// QuoteRef is a compact reference to a quote inside an alert payload.
type QuoteRef struct {
	ID          uuid.UUID `json:"id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	CreatedAt   time.Time `json:"created_at"`
	AgeDays     int       `json:"age_days,omitempty"`
}

// Alert is one actionable finding. Only the fields relevant to the alert's
// type are populated.
type Alert struct {
	Type            string   `json:"type"`
	Severity        Severity `json:"severity"`
	Message         string   `json:"message"`
	SuggestedAction string   `json:"suggested_action"`
	ActionRequired  bool     `json:"action_required"`

	// TIME_CONFLICT fields
	QuoteID         *uuid.UUID                     `json:"quote_id,omitempty"`
	ClientName      string                         `json:"client_name,omitempty"`
	ClientEmail     string                         `json:"client_email,omitempty"`
	EventDate       string                         `json:"event_date,omitempty"`
	EventTime       string                         `json:"event_time,omitempty"`
	PriorityQuoteID *uuid.UUID                     `json:"priority_quote_id,omitempty"`
	Alternatives    *scheduling.AlternativesResult `json:"alternatives,omitempty"`

	// OVERCROWDED_DAY fields
	Date         string     `json:"date,omitempty"`
	QuoteCount   int        `json:"quote_count,omitempty"`
	ExcessCount  int        `json:"excess_count,omitempty"`
	ExcessQuotes []QuoteRef `json:"excess_quotes,omitempty"`

	// STALE_QUOTES fields
	StaleQuoteIDs []uuid.UUID `json:"stale_quote_ids,omitempty"`
	StaleSample   []QuoteRef  `json:"stale_sample,omitempty"`
}

// staleSampleSize caps the quote detail list on a stale-quotes alert.
const staleSampleSize = 10

// BusyDay is one calendar date whose active quote count exceeds the ceiling.
type BusyDay struct {
	Date  time.Time
	Count int
}

// Store is the persistence port for alert generation.
type Store interface {
	// BusyDays returns dates whose active quote count exceeds the ceiling.
	BusyDays(ctx context.Context, ceiling int) ([]BusyDay, error)

	// ActiveQuotesOn returns active quotes on the date, earliest created first.
	ActiveQuotesOn(ctx context.Context, date time.Time) ([]domain.Quote, error)

	// StaleQuotes returns pending or rejected quotes created before cutoff.
	StaleQuotes(ctx context.Context, cutoff time.Time) ([]domain.Quote, error)

	// StatusCounts returns the number of quotes per status across the store.
	StatusCounts(ctx context.Context) (map[domain.Status]int, error)
}

// Aggregator builds the alert feed attached to quote list responses.
type Aggregator struct {
	store    Store
	searcher *scheduling.AlternativeSearcher
	ceiling  int
	staleAge time.Duration
}

func NewAggregator(store Store, searcher *scheduling.AlternativeSearcher, ceiling int, staleAge time.Duration) *Aggregator {
	return &Aggregator{store: store, searcher: searcher, ceiling: ceiling, staleAge: staleAge}
}

// OvercrowdedDays flags every date over the ceiling. The excess list holds
// the quotes beyond the first ceiling by creation order, the candidates a
// cleanup would remove.
func (a *Aggregator) OvercrowdedDays(ctx context.Context) ([]Alert, error) {
	busy, err := a.store.BusyDays(ctx, a.ceiling)
	if err != nil {
		return nil, err
	}

	var out []Alert
	for _, day := range busy {
		quotes, err := a.store.ActiveQuotesOn(ctx, day.Date)
		if err != nil {
			return nil, err
		}

		var excess []QuoteRef
		if len(quotes) > a.ceiling {
			for _, q := range quotes[a.ceiling:] {
				excess = append(excess, QuoteRef{
					ID:          q.ID,
					ClientName:  q.ClientName,
					ClientEmail: q.ClientEmail,
					CreatedAt:   q.CreatedAt,
				})
			}
		}

		dateStr := day.Date.Format("2006-01-02")
		out = append(out, Alert{
			Type:            TypeOvercrowdedDay,
			Severity:        SeverityMedium,
			Message:         fmt.Sprintf("%s has %d quotes (%d excess)", dateStr, day.Count, len(excess)),
			SuggestedAction: ActionDeleteExcess,
			ActionRequired:  true,
			Date:            dateStr,
			QuoteCount:      day.Count,
			ExcessCount:     len(excess),
			ExcessQuotes:    excess,
		})
	}
	return out, nil
}

// StaleQuotes flags pending and rejected quotes older than the configured
// age as cleanup candidates. At most one alert is emitted.
func (a *Aggregator) StaleQuotes(ctx context.Context, now time.Time) ([]Alert, error) {
	cutoff := now.Add(-a.staleAge)
	stale, err := a.store.StaleQuotes(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(stale))
	for _, q := range stale {
		ids = append(ids, q.ID)
	}

	sample := stale
	if len(sample) > staleSampleSize {
		sample = sample[:staleSampleSize]
	}
	refs := make([]QuoteRef, 0, len(sample))
	for _, q := range sample {
		refs = append(refs, QuoteRef{
			ID:          q.ID,
			ClientName:  q.ClientName,
			ClientEmail: q.ClientEmail,
			CreatedAt:   q.CreatedAt,
			AgeDays:     int(now.Sub(q.CreatedAt).Hours() / 24),
		})
	}

	ageDays := int(a.staleAge.Hours() / 24)
	return []Alert{{
		Type:            TypeStaleQuotes,
		Severity:        SeverityLow,
		Message:         fmt.Sprintf("%d quotes are %d+ days old and pending or rejected", len(stale), ageDays),
		SuggestedAction: ActionDeleteStale,
		ActionRequired:  false,
		QuoteCount:      len(stale),
		StaleQuoteIDs:   ids,
		StaleSample:     refs,
	}}, nil
}

// ConflictAlert builds a conflict alert for one quote, or nil when the quote
// holds priority for its slot, is not pending, or has no live conflict. The
// alert embeds verified alternatives so an operator can resolve it in one
// step.
func (a *Aggregator) ConflictAlert(ctx context.Context, q *domain.Quote, report scheduling.ConflictReport) (*Alert, error) {
	if !report.HasConflict || q.Status != domain.StatusPending {
		return nil, nil
	}
	if scheduling.HoldsPriority(q, report.Conflicting) {
		return nil, nil
	}

	alternatives, err := a.searcher.Search(ctx, q, scheduling.DefaultMaxSuggestions)
	if err != nil {
		return nil, err
	}

	priority := report.Conflicting[0]
	for _, other := range report.Conflicting[1:] {
		if other.CreatedAt.Before(priority.CreatedAt) {
			priority = other
		}
	}

	quoteID := q.ID
	priorityID := priority.ID
	alert := &Alert{
		Type:            TypeTimeConflict,
		Severity:        SeverityHigh,
		Message:         fmt.Sprintf("quote for %s conflicts with an earlier quote on the same slot", q.ClientName),
		SuggestedAction: ActionUpdateTime,
		ActionRequired:  true,
		QuoteID:         &quoteID,
		ClientName:      q.ClientName,
		ClientEmail:     q.ClientEmail,
		PriorityQuoteID: &priorityID,
		Alternatives:    &alternatives,
	}
	if q.EventDate != nil {
		alert.EventDate = q.EventDate.Format("2006-01-02")
	}
	if q.EventTime != nil {
		alert.EventTime = q.EventTime.String()
	}
	return alert, nil
}

// SortBySeverity orders alerts HIGH, MEDIUM, LOW. The sort is stable so
// alerts of equal severity keep their generation order.
func SortBySeverity(list []Alert) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Severity.rank() < list[j].Severity.rank()
	})
}

// AlertsSummary is the severity tally attached next to a sorted alert list.
type AlertsSummary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summarize tallies a list of alerts by severity.
func Summarize(list []Alert) AlertsSummary {
	s := AlertsSummary{Total: len(list)}
	for _, a := range list {
		switch a.Severity {
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// Summary is the statistics block attached to quote list responses.
type Summary struct {
	TotalQuotes         int `json:"total_quotes"`
	PendingCount        int `json:"pending_count"`
	SentCount           int `json:"sent_count"`
	AcceptedCount       int `json:"accepted_count"`
	RejectedCount       int `json:"rejected_count"`
	CancelledCount      int `json:"cancelled_count"`
	TimeConflictsCount  int `json:"time_conflicts_count"`
	OvercrowdedDays     int `json:"overcrowded_days_count"`
	StaleQuotesCount    int `json:"stale_quotes_count"`
	ActionRequiredCount int `json:"action_required_count"`
}

// Summarize builds the statistics block from store-wide status counts and an
// already generated alert list.
func (a *Aggregator) Summarize(ctx context.Context, list []Alert) (Summary, error) {
	counts, err := a.store.StatusCounts(ctx)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		PendingCount:   counts[domain.StatusPending],
		SentCount:      counts[domain.StatusSent],
		AcceptedCount:  counts[domain.StatusAccepted],
		RejectedCount:  counts[domain.StatusRejected],
		CancelledCount: counts[domain.StatusCancelled],
	}
	for _, n := range counts {
		s.TotalQuotes += n
	}
	for _, al := range list {
		switch al.Type {
		case TypeTimeConflict:
			s.TimeConflictsCount++
		case TypeOvercrowdedDay:
			s.OvercrowdedDays++
		case TypeStaleQuotes:
			s.StaleQuotesCount += al.QuoteCount
		}
		if al.ActionRequired {
			s.ActionRequiredCount++
		}
	}
	return s, nil
}
