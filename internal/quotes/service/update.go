package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/events"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/pricing"
	"studiodesk_backend/internal/quotes/scheduling"
	"studiodesk_backend/internal/quotes/transport"
	"studiodesk_backend/platform/apperr"
	"studiodesk_backend/platform/phone"
)

// Update applies an operator edit: fields, slot, services, status. Status
// changes go through the transition table and trigger their client email
// exactly once. A reschedule email and a status email are mutually
// exclusive within one update; the reschedule wins when both apply.
func (s *Service) Update(ctx context.Context, id, actorID uuid.UUID, req transport.UpdateQuoteRequest) (transport.UpdateQuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.UpdateQuoteResponse{}, err
	}

	oldStatus := quote.Status
	oldDate := quote.EventDate
	oldTime := quote.EventTime

	if req.SelectedServices != nil {
		snapshots, err := s.enricher.Enrich(ctx, req.SelectedServices)
		if err != nil {
			return transport.UpdateQuoteResponse{}, err
		}
		if len(snapshots) == 0 {
			return transport.UpdateQuoteResponse{}, apperr.Validation("no valid services found")
		}
		quote.SelectedServices = snapshots
	}

	if err := applyClientFields(&quote, req); err != nil {
		return transport.UpdateQuoteResponse{}, err
	}
	if err := applySlotFields(&quote, req); err != nil {
		return transport.UpdateQuoteResponse{}, err
	}
	if quote.HasSlot() {
		if err := s.hours.Validate(*quote.EventDate, *quote.EventTime); err != nil {
			return transport.UpdateQuoteResponse{}, hoursValidationError(err)
		}
	}

	statusChanged := false
	if req.Status != nil {
		newStatus, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return transport.UpdateQuoteResponse{}, apperr.Validation(err.Error())
		}
		if newStatus != oldStatus {
			if !oldStatus.CanTransition(newStatus) {
				return transport.UpdateQuoteResponse{}, apperr.Validation(
					fmt.Sprintf("invalid status transition from %s to %s", oldStatus, newStatus)).
					WithDetails(map[string]any{"allowed_transitions": oldStatus.AllowedTransitions()})
			}
			if err := s.applyTransition(&quote, newStatus, req); err != nil {
				return transport.UpdateQuoteResponse{}, err
			}
			statusChanged = true
		}
	}

	slotChanged := !slotEqual(oldDate, oldTime, quote.EventDate, quote.EventTime)
	if slotChanged {
		report := s.recomputeConflict(ctx, &quote)
		quote.HasConflict = report.HasConflict
	}

	updated, err := s.repo.Update(ctx, &quote)
	if err != nil {
		return transport.UpdateQuoteResponse{}, err
	}
	s.log.Info("quote request updated",
		"quote_id", updated.ID, "actor_id", actorID,
		"status_changed", statusChanged, "slot_changed", slotChanged)

	var conflictInfo *transport.ConflictInfo
	if updated.HasSlot() && updated.HasConflict {
		report := s.recomputeConflict(ctx, &updated)
		if report.HasConflict {
			ids := make([]uuid.UUID, 0, len(report.Conflicting))
			names := make([]string, 0, len(report.Conflicting))
			for _, other := range report.Conflicting {
				ids = append(ids, other.ID)
				names = append(names, other.ClientName)
			}
			conflictInfo = &transport.ConflictInfo{
				Warning:             "updated time slot still conflicts with existing quotes",
				ConflictingQuoteIDs: ids,
				ConflictingClients:  names,
				Suggestion:          "consider suggesting alternative times to the client or updating the conflicting quotes",
			}
		}
	}

	info := s.notifyUpdate(ctx, &updated, oldStatus, oldDate, oldTime, statusChanged, slotChanged, actorID, req)

	estimate := pricing.Estimate(updated.SelectedServices)
	return transport.UpdateQuoteResponse{
		Message:        "Quote request updated successfully",
		Quote:          s.toResponse(&updated, &estimate),
		ProcessingInfo: info,
		ConflictInfo:   conflictInfo,
	}, nil
}

func applyClientFields(q *domain.Quote, req transport.UpdateQuoteRequest) error {
	if req.ClientName != nil {
		q.ClientName = strings.TrimSpace(*req.ClientName)
	}
	if req.ClientEmail != nil {
		q.ClientEmail = strings.TrimSpace(*req.ClientEmail)
	}
	if req.ClientPhone != nil {
		q.ClientPhone = phone.NormalizeE164(*req.ClientPhone)
	}
	if req.CompanyName != nil {
		q.Company = req.CompanyName
	}
	if req.EventType != nil {
		q.EventType = strings.TrimSpace(*req.EventType)
	}
	if req.EventLocation != nil {
		q.EventLocation = req.EventLocation
	}
	if req.BudgetRange != nil {
		q.BudgetRange = req.BudgetRange
	}
	if req.ProjectDescription != nil {
		q.ProjectDescription = req.ProjectDescription
	}
	if req.ReferralSource != nil {
		q.ReferralSource = req.ReferralSource
	}
	if req.QuotedAmount != nil {
		q.QuotedAmount = req.QuotedAmount
	}
	if req.QuoteDetails != nil {
		q.QuoteDetails = req.QuoteDetails
	}
	if req.AssignedTo != nil {
		q.AssignedTo = req.AssignedTo
	}
	if req.ValidUntil != nil {
		if *req.ValidUntil == "" {
			q.ValidUntil = nil
		} else {
			until, err := parseEventDate(*req.ValidUntil)
			if err != nil {
				return apperr.Validation("invalid valid_until format, use YYYY-MM-DD")
			}
			q.ValidUntil = &until
		}
	}
	return nil
}

func applySlotFields(q *domain.Quote, req transport.UpdateQuoteRequest) error {
	if req.EventDate != nil {
		if *req.EventDate == "" {
			q.EventDate = nil
		} else {
			d, err := parseEventDate(*req.EventDate)
			if err != nil {
				return err
			}
			if d.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
				return apperr.Validation("event date cannot be in the past")
			}
			q.EventDate = &d
		}
	}
	if req.EventTime != nil {
		if *req.EventTime == "" {
			q.EventTime = nil
		} else {
			t, err := parseEventTime(*req.EventTime)
			if err != nil {
				return err
			}
			q.EventTime = &t
		}
	}
	return nil
}

// applyTransition stamps the timestamps a transition owns and enforces its
// required inputs. The caller has already checked the transition table.
func (s *Service) applyTransition(q *domain.Quote, newStatus domain.Status, req transport.UpdateQuoteRequest) error {
	now := time.Now().UTC()
	switch newStatus {
	case domain.StatusSent:
		q.QuoteSentAt = &now
	case domain.StatusCancelled:
		reason := req.CancellationReason
		if reason == nil {
			reason = req.AdminNote
		}
		if reason == nil || strings.TrimSpace(*reason) == "" {
			return apperr.Validation("cancellation_reason is required when cancelling a quote")
		}
		q.CancellationReason = reason
		q.CancelledAt = &now
	}
	q.Status = newStatus
	return nil
}

func slotEqual(oldDate *time.Time, oldTime *domain.TimeOfDay, newDate *time.Time, newTime *domain.TimeOfDay) bool {
	dateEqual := (oldDate == nil && newDate == nil) ||
		(oldDate != nil && newDate != nil && oldDate.Equal(*newDate))
	timeEqual := (oldTime == nil && newTime == nil) ||
		(oldTime != nil && newTime != nil && *oldTime == *newTime)
	return dateEqual && timeEqual
}

// recomputeConflict is the pure variant of refreshConflict used inside the
// update transaction flow, before the row is persisted.
func (s *Service) recomputeConflict(ctx context.Context, q *domain.Quote) scheduling.ConflictReport {
	if !q.HasSlot() {
		return scheduling.ConflictReport{}
	}
	report, err := s.detector.Detect(ctx, *q.EventDate, *q.EventTime, q.ID)
	if err != nil {
		s.log.Warn("conflict recomputation failed", "quote_id", q.ID, "error", err)
		return scheduling.ConflictReport{HasConflict: q.HasConflict}
	}
	return report
}

// notifyUpdate sends at most one client email per update and publishes the
// matching domain event. Delivery failures are logged and reported in the
// processing info; they never fail the update.
func (s *Service) notifyUpdate(
	ctx context.Context,
	q *domain.Quote,
	oldStatus domain.Status,
	oldDate *time.Time,
	oldTime *domain.TimeOfDay,
	statusChanged, slotChanged bool,
	actorID uuid.UUID,
	req transport.UpdateQuoteRequest,
) transport.UpdateProcessingInfo {
	info := transport.UpdateProcessingInfo{StatusChanged: statusChanged}
	if statusChanged {
		info.OldStatus = string(oldStatus)
		info.NewStatus = string(q.Status)
	}

	details := s.bookingDetails(q, pricing.Estimate(q.SelectedServices))

	var sendErr error
	switch {
	case req.IsReschedule:
		info.EmailType = "reschedule"
		oldDateStr, oldTimeStr := "", ""
		if oldDate != nil {
			oldDateStr = oldDate.Format("Monday, 2 January 2006")
		}
		if oldTime != nil {
			oldTimeStr = oldTime.Display12h()
		}
		sendErr = s.sender.SendQuoteRescheduledEmail(ctx, q.ClientEmail, details, oldDateStr, oldTimeStr)

	case statusChanged:
		switch q.Status {
		case domain.StatusSent:
			info.EmailType = "quote_sent"
			sendErr = s.sender.SendQuoteSentEmail(ctx, q.ClientEmail, details)
		case domain.StatusAccepted:
			info.EmailType = "quote_accepted"
			sendErr = s.sender.SendQuoteAcceptedEmail(ctx, q.ClientEmail, details)
		case domain.StatusRejected:
			info.EmailType = "quote_rejected"
			// Optional; the template falls back to a default wording.
			reason := req.RejectionReason
			if reason == nil {
				reason = req.AdminNote
			}
			reasonText := ""
			if reason != nil {
				reasonText = strings.TrimSpace(*reason)
			}
			sendErr = s.sender.SendQuoteRejectedEmail(ctx, q.ClientEmail, details, reasonText)
		case domain.StatusCancelled:
			info.EmailType = "cancellation"
			reason := ""
			if q.CancellationReason != nil {
				reason = *q.CancellationReason
			}
			sendErr = s.sender.SendQuoteCancelledEmail(ctx, q.ClientEmail, details, reason)
		}
	}

	if info.EmailType != "" {
		info.EmailSent = sendErr == nil
		if sendErr == nil {
			info.Recipient = q.ClientEmail
		}
		s.log.EmailEvent(info.EmailType, q.ClientEmail, sendErr == nil, sendErr)
	}

	if statusChanged {
		s.bus.Publish(ctx, events.QuoteStatusChanged{
			BaseEvent:   events.NewBaseEvent(),
			QuoteID:     q.ID,
			ClientName:  q.ClientName,
			ClientEmail: q.ClientEmail,
			OldStatus:   string(oldStatus),
			NewStatus:   string(q.Status),
			ActorID:     actorID,
		})
	}
	if slotChanged && q.HasSlot() {
		ev := events.QuoteRescheduled{
			BaseEvent:   events.NewBaseEvent(),
			QuoteID:     q.ID,
			ClientName:  q.ClientName,
			ClientEmail: q.ClientEmail,
			NewDate:     *q.EventDate,
			NewTime:     q.EventTime.String(),
			ActorID:     actorID,
		}
		if oldDate != nil {
			ev.OldDate = *oldDate
		}
		if oldTime != nil {
			ev.OldTime = oldTime.String()
		}
		s.bus.Publish(ctx, ev)
	}
	return info
}

// Delete removes a quote permanently.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("quote request deleted", "quote_id", id, "actor_id", actorID)
	return nil
}

// BulkAction deletes or restatuses a set of quotes. Status changes run each
// quote through the transition table; invalid ones are reported as skipped,
// not silently applied.
func (s *Service) BulkAction(ctx context.Context, actorID uuid.UUID, req transport.BulkActionRequest) (transport.BulkActionResponse, error) {
	quotes, err := s.repo.GetByIDs(ctx, req.QuoteIDs)
	if err != nil {
		return transport.BulkActionResponse{}, err
	}
	if len(quotes) == 0 {
		return transport.BulkActionResponse{}, apperr.NotFound("no quotes found with the provided ids")
	}

	switch req.Action {
	case "DELETE":
		ids := make([]uuid.UUID, 0, len(quotes))
		for _, q := range quotes {
			ids = append(ids, q.ID)
		}
		deleted, err := s.repo.BulkDelete(ctx, ids)
		if err != nil {
			return transport.BulkActionResponse{}, err
		}
		s.log.Info("bulk delete", "count", deleted, "actor_id", actorID)
		return transport.BulkActionResponse{
			Message:      fmt.Sprintf("Successfully deleted %d quotes", deleted),
			DeletedCount: int(deleted),
		}, nil

	case "UPDATE_STATUS":
		if req.Status == "" {
			return transport.BulkActionResponse{}, apperr.Validation("status is required for UPDATE_STATUS")
		}
		target, err := domain.ParseStatus(req.Status)
		if err != nil {
			return transport.BulkActionResponse{}, apperr.Validation(err.Error())
		}

		var valid []uuid.UUID
		var skipped []transport.SkippedQuote
		for _, q := range quotes {
			switch {
			case q.Status == target:
				skipped = append(skipped, transport.SkippedQuote{ID: q.ID, Reason: fmt.Sprintf("already %s", target)})
			case !q.Status.CanTransition(target):
				skipped = append(skipped, transport.SkippedQuote{
					ID:     q.ID,
					Reason: fmt.Sprintf("invalid status transition from %s to %s", q.Status, target),
				})
			default:
				valid = append(valid, q.ID)
			}
		}

		var updated int64
		if len(valid) > 0 {
			updated, err = s.repo.BulkUpdateStatus(ctx, valid, target)
			if err != nil {
				return transport.BulkActionResponse{}, err
			}
		}
		s.log.Info("bulk status update", "status", target, "updated", updated, "skipped", len(skipped), "actor_id", actorID)
		return transport.BulkActionResponse{
			Message:      fmt.Sprintf("Successfully updated %d quotes to %s", updated, target),
			UpdatedCount: int(updated),
			Skipped:      skipped,
		}, nil

	default:
		return transport.BulkActionResponse{}, apperr.Validation(fmt.Sprintf("invalid action: %s", req.Action))
	}
}

// Cleanup kinds accepted by the cleanup endpoint.
const (
	CleanupOldQuotes      = "old_quotes"
	CleanupOvercrowdedDay = "overcrowded_day"
)

// Cleanup deletes stale quotes or the excess quotes of one overcrowded day.
func (s *Service) Cleanup(ctx context.Context, actorID uuid.UUID, kind, dateStr string) (transport.CleanupResponse, error) {
	switch kind {
	case CleanupOldQuotes:
		cutoff := time.Now().UTC().Add(-s.staleAge)
		deleted, err := s.repo.DeleteStale(ctx, cutoff)
		if err != nil {
			return transport.CleanupResponse{}, err
		}
		s.log.Info("stale quote cleanup", "deleted", deleted, "actor_id", actorID)
		return transport.CleanupResponse{
			Message:      fmt.Sprintf("Successfully deleted %d old quotes", deleted),
			DeletedCount: int(deleted),
		}, nil

	case CleanupOvercrowdedDay:
		if dateStr == "" {
			return transport.CleanupResponse{}, apperr.Validation("date is required for overcrowded_day cleanup")
		}
		date, err := parseEventDate(dateStr)
		if err != nil {
			return transport.CleanupResponse{}, err
		}
		deleted, err := s.repo.DeleteExcessOn(ctx, date, s.ceiling)
		if err != nil {
			return transport.CleanupResponse{}, err
		}
		if deleted == 0 {
			return transport.CleanupResponse{
				Message: fmt.Sprintf("%s is not overcrowded, nothing to delete", dateStr),
			}, nil
		}
		s.log.Info("overcrowded day cleanup", "date", dateStr, "deleted", deleted, "actor_id", actorID)
		return transport.CleanupResponse{
			Message:      fmt.Sprintf("Successfully deleted %d excess quotes for %s", deleted, dateStr),
			DeletedCount: int(deleted),
			KeptCount:    s.ceiling,
		}, nil

	default:
		return transport.CleanupResponse{}, apperr.Validation("invalid cleanup type, use old_quotes or overcrowded_day")
	}
}

// Statuses enumerates the lifecycle for clients building status filters.
func (s *Service) Statuses() transport.StatusListResponse {
	out := make([]transport.StatusInfo, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		transitions := make([]string, 0)
		for _, next := range status.AllowedTransitions() {
			transitions = append(transitions, string(next))
		}
		out = append(out, transport.StatusInfo{
			Value:       string(status),
			Terminal:    status.IsTerminal(),
			Active:      status.IsActive(),
			Transitions: transitions,
		})
	}
	return transport.StatusListResponse{Statuses: out}
}
