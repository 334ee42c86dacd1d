// Package email delivers transactional mail for the quote lifecycle.
package email

import (
	"context"

	"studiodesk_backend/platform/config"
)

// BookingDetails carries the fields every quote email renders. Dates and
// times arrive pre-formatted so the sender stays presentation-only.
type BookingDetails struct {
	ClientName string
	EventType  string
	EventDate  string // e.g. "Saturday, 14 March 2026"
	EventTime  string // e.g. "2:00 PM"
	Services   []string
	PriceRange string
}

type Sender interface {
	// SendQuoteSubmittedEmail confirms receipt of a new quote request to the client.
	SendQuoteSubmittedEmail(ctx context.Context, toEmail string, details BookingDetails, rescheduled bool, originalDate string) error
	// SendNewQuoteAlertEmail notifies the studio operator of a new request.
	SendNewQuoteAlertEmail(ctx context.Context, toEmail string, details BookingDetails, clientEmail, clientPhone string, hasConflict bool) error
	// SendQuoteSentEmail tells the client their formal quote is on its way.
	SendQuoteSentEmail(ctx context.Context, toEmail string, details BookingDetails) error
	// SendQuoteAcceptedEmail confirms the booking to the client.
	SendQuoteAcceptedEmail(ctx context.Context, toEmail string, details BookingDetails) error
	// SendQuoteRejectedEmail tells the client the studio declined the request.
	// An empty reason falls back to the template's default wording.
	SendQuoteRejectedEmail(ctx context.Context, toEmail string, details BookingDetails, reason string) error
	// SendQuoteCancelledEmail confirms a cancellation to the client.
	SendQuoteCancelledEmail(ctx context.Context, toEmail string, details BookingDetails, reason string) error
	// SendQuoteRescheduledEmail tells the client their session moved.
	SendQuoteRescheduledEmail(ctx context.Context, toEmail string, details BookingDetails, oldDate, oldTime string) error
}

// NoopSender satisfies Sender without delivering anything. Used when email
// is disabled (local development, tests).
type NoopSender struct{}

func (NoopSender) SendQuoteSubmittedEmail(ctx context.Context, toEmail string, details BookingDetails, rescheduled bool, originalDate string) error {
	return nil
}

func (NoopSender) SendNewQuoteAlertEmail(ctx context.Context, toEmail string, details BookingDetails, clientEmail, clientPhone string, hasConflict bool) error {
	return nil
}

func (NoopSender) SendQuoteSentEmail(ctx context.Context, toEmail string, details BookingDetails) error {
	return nil
}

func (NoopSender) SendQuoteAcceptedEmail(ctx context.Context, toEmail string, details BookingDetails) error {
	return nil
}

func (NoopSender) SendQuoteRejectedEmail(ctx context.Context, toEmail string, details BookingDetails, reason string) error {
	return nil
}

func (NoopSender) SendQuoteCancelledEmail(ctx context.Context, toEmail string, details BookingDetails, reason string) error {
	return nil
}

func (NoopSender) SendQuoteRescheduledEmail(ctx context.Context, toEmail string, details BookingDetails, oldDate, oldTime string) error {
	return nil
}

// NewSender returns the configured Sender implementation.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
