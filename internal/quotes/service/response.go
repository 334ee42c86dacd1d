package service

import (
	"time"

	"studiodesk_backend/internal/email"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/pricing"
	"studiodesk_backend/internal/quotes/transport"
)

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func (s *Service) toResponse(q *domain.Quote, estimate *pricing.PriceEstimate) transport.QuoteResponse {
	resp := transport.QuoteResponse{
		ID:                 q.ID,
		CreatedAt:          q.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          q.UpdatedAt.Format(time.RFC3339),
		ClientName:         q.ClientName,
		ClientEmail:        q.ClientEmail,
		ClientPhone:        q.ClientPhone,
		CompanyName:        q.Company,
		EventType:          q.EventType,
		EventLocation:      q.EventLocation,
		BudgetRange:        q.BudgetRange,
		ProjectDescription: q.ProjectDescription,
		ReferralSource:     q.ReferralSource,
		SelectedServices:   q.SelectedServices,
		Status:             string(q.Status),
		HasConflict:        q.HasConflict,
		QuotedAmount:       q.QuotedAmount,
		QuoteDetails:       q.QuoteDetails,
		AssignedTo:         q.AssignedTo,
		CancellationReason: q.CancellationReason,
		QuoteSentAt:        formatTimestamp(q.QuoteSentAt),
		CancelledAt:        formatTimestamp(q.CancelledAt),
		ValidUntil:         formatTimestamp(q.ValidUntil),
		PriceEstimate:      estimate,
	}
	if q.EventDate != nil {
		d := q.EventDate.Format(dateLayout)
		resp.EventDate = &d
	}
	if q.EventTime != nil {
		t := q.EventTime.String()
		display := q.EventTime.Display12h()
		resp.EventTime = &t
		resp.EventTimeDisplay = &display
	}
	if resp.SelectedServices == nil {
		resp.SelectedServices = []domain.ServiceSnapshot{}
	}
	return resp
}

// bookingDetails assembles the presentation-ready fields every client email
// renders.
func (s *Service) bookingDetails(q *domain.Quote, estimate pricing.PriceEstimate) email.BookingDetails {
	details := email.BookingDetails{
		ClientName: q.ClientName,
		EventType:  q.EventType,
		PriceRange: estimate.Formatted,
	}
	if q.EventDate != nil {
		details.EventDate = q.EventDate.Format("Monday, 2 January 2006")
	}
	if q.EventTime != nil {
		details.EventTime = q.EventTime.Display12h()
	}
	for _, snap := range q.SelectedServices {
		details.Services = append(details.Services, snap.Title)
	}
	return details
}
