// Package service orchestrates the quote lifecycle: creation gating,
// conflict recomputation on reads, operator updates with exactly-once
// notifications, and the alert feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/email"
	"studiodesk_backend/internal/events"
	"studiodesk_backend/internal/quotes/alerts"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/pricing"
	"studiodesk_backend/internal/quotes/repository"
	"studiodesk_backend/internal/quotes/scheduling"
	"studiodesk_backend/internal/quotes/transport"
	"studiodesk_backend/platform/apperr"
	"studiodesk_backend/platform/logger"
	"studiodesk_backend/platform/phone"
)

const dateLayout = "2006-01-02"

// Service wires the scheduling rules, pricing enrichment, persistence and
// notifications behind the quote endpoints.
type Service struct {
	repo       repository.Repository
	enricher   *pricing.Enricher
	hours      scheduling.WeeklyHours
	detector   *scheduling.ConflictDetector
	enforcer   *scheduling.CapacityEnforcer
	searcher   *scheduling.AlternativeSearcher
	aggregator *alerts.Aggregator
	sender     email.Sender
	bus        events.Bus
	ceiling    int
	staleAge   time.Duration
	log        *logger.Logger
}

// New creates a new quote service. The scheduling components are built here
// so every caller shares one rule set.
func New(
	repo repository.Repository,
	catalog pricing.CatalogReader,
	hours scheduling.WeeklyHours,
	ceiling int,
	staleAge time.Duration,
	sender email.Sender,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	detector := scheduling.NewConflictDetector(repo)
	searcher := scheduling.NewAlternativeSearcher(hours, detector)
	return &Service{
		repo:       repo,
		enricher:   pricing.NewEnricher(catalog),
		hours:      hours,
		detector:   detector,
		enforcer:   scheduling.NewCapacityEnforcer(repo, hours, ceiling),
		searcher:   searcher,
		aggregator: alerts.NewAggregator(repo, searcher, ceiling, staleAge),
		sender:     sender,
		bus:        bus,
		ceiling:    ceiling,
		staleAge:   staleAge,
		log:        log,
	}
}

func parseEventDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid event_date format, use YYYY-MM-DD")
	}
	return d, nil
}

func parseEventTime(raw string) (domain.TimeOfDay, error) {
	t, err := domain.ParseTimeOfDay(raw)
	if err != nil {
		return domain.TimeOfDay{}, apperr.Validation("invalid event_time format, use HH:MM")
	}
	return t, nil
}

// hoursValidationError converts a strict hours failure into a client error
// carrying the valid range.
func hoursValidationError(err error) error {
	var closed *scheduling.ClosedDayError
	if errors.As(err, &closed) {
		return apperr.Validation(fmt.Sprintf("studio is closed on %s", closed.Day)).
			WithDetails(map[string]any{"day": closed.Day.String()})
	}
	var outside *scheduling.OutsideHoursError
	if errors.As(err, &outside) {
		return apperr.Validation(fmt.Sprintf(
			"studio is closed during this time, please select a time between %s and %s",
			outside.Open, outside.Close)).
			WithDetails(map[string]any{
				"day":             outside.Day.String(),
				"suggested_start": outside.Open.String(),
				"suggested_end":   outside.Close.String(),
			})
	}
	return err
}

// Create handles a public quote submission. The slot is gated strictly by
// studio hours and the daily ceiling; conflicts are recorded, never block.
// The confirmation email is sent inline and its failure only shows up in
// the processing info.
func (s *Service) Create(ctx context.Context, req transport.CreateQuoteRequest) (transport.CreateQuoteResponse, error) {
	snapshots, err := s.enricher.Enrich(ctx, req.SelectedServices)
	if err != nil {
		return transport.CreateQuoteResponse{}, err
	}
	if len(snapshots) == 0 {
		return transport.CreateQuoteResponse{}, apperr.Validation("no valid services found")
	}
	estimate := pricing.Estimate(snapshots)

	eventDate, err := parseEventDate(req.EventDate)
	if err != nil {
		return transport.CreateQuoteResponse{}, err
	}
	if eventDate.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
		return transport.CreateQuoteResponse{}, apperr.Validation("event date cannot be in the past")
	}
	eventTime, err := parseEventTime(req.EventTime)
	if err != nil {
		return transport.CreateQuoteResponse{}, err
	}
	if err := s.hours.Validate(eventDate, eventTime); err != nil {
		return transport.CreateQuoteResponse{}, hoursValidationError(err)
	}

	originalDate := eventDate
	rescheduled := false

	if _, err := s.enforcer.Check(ctx, eventDate); err != nil {
		var exceeded *scheduling.CapacityExceededError
		switch {
		case errors.As(err, &exceeded):
			if !req.AutoReschedule {
				return transport.CreateQuoteResponse{}, apperr.Conflict(exceeded.Error()).
					WithDetails(map[string]any{
						"suggested_date":        exceeded.SuggestedDate.Format(dateLayout),
						"current_quote_count":   exceeded.CurrentCount,
						"max_quotes":            exceeded.Ceiling,
						"rescheduling_required": true,
					})
			}
			eventDate = exceeded.SuggestedDate
			rescheduled = true
			// The replacement day may open later than the requested time.
			if w, ok := s.hours.Window(eventDate.Weekday()); ok && eventTime.Before(w.Open) {
				eventTime = w.Open
			}
		case errors.Is(err, scheduling.ErrNoCapacity):
			return transport.CreateQuoteResponse{}, apperr.Conflict(
				"no available days within the next 30 days, please try a later date")
		default:
			return transport.CreateQuoteResponse{}, err
		}
	}

	quote := &domain.Quote{
		ClientName:         strings.TrimSpace(req.ClientName),
		ClientEmail:        strings.TrimSpace(req.ClientEmail),
		ClientPhone:        phone.NormalizeE164(req.ClientPhone),
		Company:            req.CompanyName,
		EventType:          strings.TrimSpace(req.EventType),
		EventDate:          &eventDate,
		EventTime:          &eventTime,
		EventLocation:      req.EventLocation,
		BudgetRange:        req.BudgetRange,
		ProjectDescription: req.ProjectDescription,
		ReferralSource:     req.ReferralSource,
		SelectedServices:   snapshots,
		Status:             domain.StatusPending,
	}

	created, conflicting, err := s.repo.CreateLocked(ctx, quote)
	if err != nil {
		return transport.CreateQuoteResponse{}, err
	}
	s.log.Info("quote request created",
		"quote_id", created.ID, "client", created.ClientName,
		"event_date", eventDate.Format(dateLayout), "has_conflict", created.HasConflict)

	details := s.bookingDetails(&created, estimate)
	clientEmailSent := true
	if err := s.sender.SendQuoteSubmittedEmail(ctx, created.ClientEmail, details, rescheduled, originalDate.Format(dateLayout)); err != nil {
		clientEmailSent = false
		s.log.EmailEvent("quote_submitted", created.ClientEmail, false, err)
	}

	s.bus.Publish(ctx, events.QuoteSubmitted{
		BaseEvent:    events.NewBaseEvent(),
		QuoteID:      created.ID,
		ClientName:   created.ClientName,
		ClientEmail:  created.ClientEmail,
		ClientPhone:  created.ClientPhone,
		EventType:    created.EventType,
		EventDate:    eventDate,
		EventTime:    eventTime.String(),
		Services:     details.Services,
		PriceRange:   details.PriceRange,
		HasConflict:  created.HasConflict,
		Rescheduled:  rescheduled,
		OriginalDate: originalDate,
	})

	resp := transport.CreateQuoteResponse{
		Message: "Quote request submitted successfully",
		Quote:   s.toResponse(&created, &estimate),
		ProcessingInfo: transport.CreateProcessingInfo{
			ClientEmailSent:     clientEmailSent,
			OperatorAlertQueued: true,
			Rescheduled:         rescheduled,
			PriceEstimate:       &estimate,
		},
	}
	if rescheduled {
		resp.ProcessingInfo.OriginalDate = originalDate.Format(dateLayout)
	}
	if len(conflicting) > 0 {
		resp.Warning = &transport.ConflictWarning{
			Message:           "This time slot is already occupied by another quote request. Please choose a different time or date.",
			ConflictingQuotes: len(conflicting),
		}
	}
	return resp, nil
}

// GetByID returns one quote with its conflict standing freshly recomputed
// and advisory alerts attached. The stored conflict flag is self-healed
// best-effort when it disagrees with the recomputation.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	s.refreshSnapshots(ctx, &quote)
	report := s.refreshConflict(ctx, &quote)

	estimate := pricing.Estimate(quote.SelectedServices)
	resp := s.toResponse(&quote, &estimate)

	if report.HasConflict {
		info, err := s.conflictInfo(ctx, &quote, report)
		if err != nil {
			return transport.QuoteResponse{}, err
		}
		resp.TimeConflict = info
		resp.Alerts = append(resp.Alerts, transport.AdvisoryAlert{
			Type:            "TIME_CONFLICT",
			Message:         fmt.Sprintf("quote conflicts with %d other quote(s) on the same date and time", len(report.Conflicting)),
			SuggestedAction: alerts.ActionUpdateTime,
			Alternatives:    info.VerifiedAlternatives,
		})
	}

	resp.Alerts = append(resp.Alerts, s.advisoryAlerts(ctx, &quote)...)
	return resp, nil
}

// List returns the filtered page of quotes, each with recomputed conflict
// standing, plus the combined alert feed and summary statistics.
func (s *Service) List(ctx context.Context, req transport.ListQuotesRequest) (transport.QuoteListResponse, error) {
	params, page, pageSize, err := listParams(req)
	if err != nil {
		return transport.QuoteListResponse{}, err
	}

	quotes, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.QuoteListResponse{}, err
	}

	items := make([]transport.QuoteResponse, 0, len(quotes))
	var feed []alerts.Alert

	for i := range quotes {
		q := &quotes[i]
		s.refreshSnapshots(ctx, q)
		report := s.refreshConflict(ctx, q)

		if req.HasConflicts != nil && *req.HasConflicts != report.HasConflict {
			continue
		}

		estimate := pricing.Estimate(q.SelectedServices)
		resp := s.toResponse(q, &estimate)

		if report.HasConflict && (q.Status == domain.StatusPending || q.Status == domain.StatusSent) {
			info, err := s.conflictInfo(ctx, q, report)
			if err != nil {
				return transport.QuoteListResponse{}, err
			}
			resp.TimeConflict = info

			alert, err := s.aggregator.ConflictAlert(ctx, q, report)
			if err != nil {
				return transport.QuoteListResponse{}, err
			}
			if alert != nil {
				feed = append(feed, *alert)
			}
		}
		items = append(items, resp)
	}

	overcrowded, err := s.aggregator.OvercrowdedDays(ctx)
	if err != nil {
		return transport.QuoteListResponse{}, err
	}
	stale, err := s.aggregator.StaleQuotes(ctx, time.Now().UTC())
	if err != nil {
		return transport.QuoteListResponse{}, err
	}
	feed = append(feed, overcrowded...)
	feed = append(feed, stale...)
	alerts.SortBySeverity(feed)

	summary, err := s.aggregator.Summarize(ctx, feed)
	if err != nil {
		return transport.QuoteListResponse{}, err
	}

	resp := transport.QuoteListResponse{
		Quotes:     items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		Summary:    summary,
	}
	if len(feed) > 0 {
		resp.Alerts = feed
		as := alerts.Summarize(feed)
		resp.AlertsSummary = &as
	}
	return resp, nil
}

func listParams(req transport.ListQuotesRequest) (repository.ListQuotesParams, int, int, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := repository.ListQuotesParams{
		Search: strings.TrimSpace(req.Search),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	if req.Status != "" {
		for _, part := range strings.Split(req.Status, ",") {
			status, err := domain.ParseStatus(part)
			if err != nil {
				return repository.ListQuotesParams{}, 0, 0, apperr.Validation(err.Error())
			}
			params.Statuses = append(params.Statuses, status)
		}
	}
	if req.DateFrom != "" {
		from, err := parseEventDate(req.DateFrom)
		if err != nil {
			return repository.ListQuotesParams{}, 0, 0, apperr.Validation("invalid date_from format, use YYYY-MM-DD")
		}
		params.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := parseEventDate(req.DateTo)
		if err != nil {
			return repository.ListQuotesParams{}, 0, 0, apperr.Validation("invalid date_to format, use YYYY-MM-DD")
		}
		params.DateTo = &to
	}
	if req.AssignedTo != "" {
		id, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return repository.ListQuotesParams{}, 0, 0, apperr.Validation("invalid assigned_to id")
		}
		params.AssignedTo = &id
	}
	return params, page, pageSize, nil
}

// refreshSnapshots re-enriches legacy unpriced snapshots from the live
// catalog. Persistence of the refreshed copy is best-effort.
func (s *Service) refreshSnapshots(ctx context.Context, q *domain.Quote) {
	snapshots, changed, err := s.enricher.ReEnrichIfStale(ctx, q.SelectedServices)
	if err != nil {
		s.log.Warn("snapshot re-enrichment failed", "quote_id", q.ID, "error", err)
		return
	}
	if !changed {
		return
	}
	q.SelectedServices = snapshots
	if err := s.repo.UpdateSnapshots(ctx, q.ID, snapshots); err != nil {
		s.log.Warn("persisting re-enriched snapshots failed", "quote_id", q.ID, "error", err)
	}
}

// refreshConflict recomputes the quote's conflict standing and self-heals
// the cached flag when it drifted. The write never fails the read.
func (s *Service) refreshConflict(ctx context.Context, q *domain.Quote) scheduling.ConflictReport {
	if !q.HasSlot() {
		if q.HasConflict {
			q.HasConflict = false
			if err := s.repo.UpdateConflictFlag(ctx, q.ID, false); err != nil {
				s.log.Warn("conflict flag self-heal failed", "quote_id", q.ID, "error", err)
			}
		}
		return scheduling.ConflictReport{}
	}

	report, err := s.detector.Detect(ctx, *q.EventDate, *q.EventTime, q.ID)
	if err != nil {
		s.log.Warn("conflict recomputation failed, using cached flag", "quote_id", q.ID, "error", err)
		return scheduling.ConflictReport{HasConflict: q.HasConflict}
	}
	if report.HasConflict != q.HasConflict {
		q.HasConflict = report.HasConflict
		if err := s.repo.UpdateConflictFlag(ctx, q.ID, report.HasConflict); err != nil {
			s.log.Warn("conflict flag self-heal failed", "quote_id", q.ID, "error", err)
		}
	}
	return report
}

// conflictInfo builds the per-quote conflict block. Alternatives are only
// attached for the quote losing the first-come-first-serve tie-break.
func (s *Service) conflictInfo(ctx context.Context, q *domain.Quote, report scheduling.ConflictReport) (*transport.TimeConflictInfo, error) {
	isPriority := scheduling.HoldsPriority(q, report.Conflicting)
	ids := make([]uuid.UUID, 0, len(report.Conflicting))
	for _, other := range report.Conflicting {
		ids = append(ids, other.ID)
	}

	info := &transport.TimeConflictInfo{
		HasConflict:         true,
		IsPriority:          isPriority,
		ConflictingCount:    len(report.Conflicting),
		ConflictingQuoteIDs: ids,
	}
	if isPriority {
		info.Message = "First come, first serve - this quote has priority"
		return info, nil
	}

	info.Message = "This time slot is occupied. Suggest alternative time to client."
	alternatives, err := s.searcher.Search(ctx, q, scheduling.DefaultMaxSuggestions)
	if err != nil {
		return nil, err
	}
	info.VerifiedAlternatives = &alternatives
	return info, nil
}

// advisoryAlerts flags slot problems that do not block anything at read
// time: a time outside the current hours table or a day at the ceiling.
func (s *Service) advisoryAlerts(ctx context.Context, q *domain.Quote) []transport.AdvisoryAlert {
	if !q.HasSlot() {
		return nil
	}

	var out []transport.AdvisoryAlert
	if err := s.hours.Validate(*q.EventDate, *q.EventTime); err != nil {
		alert := transport.AdvisoryAlert{
			Type:            "OUTSIDE_STUDIO_HOURS",
			Message:         err.Error(),
			SuggestedAction: alerts.ActionUpdateTime,
		}
		var outside *scheduling.OutsideHoursError
		if errors.As(err, &outside) {
			alert.SuggestedStart = outside.Open.String()
			alert.SuggestedEnd = outside.Close.String()
		}
		out = append(out, alert)
	}

	count, err := s.repo.CountActiveOn(ctx, *q.EventDate)
	if err != nil {
		s.log.Warn("capacity advisory check failed", "quote_id", q.ID, "error", err)
		return out
	}
	if count >= s.ceiling {
		out = append(out, transport.AdvisoryAlert{
			Type:            "QUOTE_LIMIT_REACHED",
			Message:         fmt.Sprintf("maximum %d quotes reached for %s", s.ceiling, q.EventDate.Format(dateLayout)),
			SuggestedAction: "RESCHEDULE",
			SuggestedDate:   q.EventDate.AddDate(0, 0, 1).Format(dateLayout),
			CurrentCount:    count,
			MaxQuotes:       s.ceiling,
		})
	}
	return out
}

// AlternativeTimes runs the searcher for one quote on demand.
func (s *Service) AlternativeTimes(ctx context.Context, id uuid.UUID, maxSuggestions int) (transport.AlternativeTimesResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.AlternativeTimesResponse{}, err
	}
	if !quote.HasSlot() {
		return transport.AlternativeTimesResponse{}, apperr.Validation(
			"quote must have both event_date and event_time to generate alternatives")
	}

	result, err := s.searcher.Search(ctx, &quote, maxSuggestions)
	if err != nil {
		return transport.AlternativeTimesResponse{}, err
	}
	return transport.AlternativeTimesResponse{
		QuoteID:            quote.ID,
		ClientName:         quote.ClientName,
		CurrentDate:        quote.EventDate.Format(dateLayout),
		CurrentTime:        quote.EventTime.String(),
		AlternativesResult: result,
	}, nil
}
