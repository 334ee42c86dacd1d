// Package notification reacts to quote domain events: it keeps the shared
// operator feed, pushes SSE updates to connected dashboards, and queues the
// operator alert email through a persistent outbox so delivery survives
// restarts and transient SMTP failures.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studiodesk_backend/internal/email"
	"studiodesk_backend/internal/events"
	apphttp "studiodesk_backend/internal/http"
	notifhandler "studiodesk_backend/internal/notification/handler"
	"studiodesk_backend/internal/notification/inapp"
	"studiodesk_backend/internal/notification/outbox"
	"studiodesk_backend/internal/notification/sse"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/platform/config"
	"studiodesk_backend/platform/httpkit"
	"studiodesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	resourceTypeQuote = "quote"

	templateOperatorAlert = "new_quote_alert"

	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = time.Minute
	outboxRetryMaxDelay    = 60 * time.Minute

	displayDateLayout = "Monday, 2 January 2006"
)

// operatorAlertPayload is the outbox payload for the operator alert email.
// It carries everything the template renders so the dispatcher never has to
// load the quote back from the database.
type operatorAlertPayload struct {
	QuoteID     string   `json:"quoteId"`
	ClientName  string   `json:"clientName"`
	ClientEmail string   `json:"clientEmail"`
	ClientPhone string   `json:"clientPhone"`
	EventType   string   `json:"eventType"`
	EventDate   string   `json:"eventDate"`
	EventTime   string   `json:"eventTime"`
	Services    []string `json:"services"`
	PriceRange  string   `json:"priceRange"`
	HasConflict bool     `json:"hasConflict"`
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender       email.Sender
	cfg          config.EmailConfig
	log          *logger.Logger
	sse          *sse.Service
	outbox       *outbox.Repository
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
}

// New creates a new notification module.
func New(pool *pgxpool.Pool, sender email.Sender, cfg config.EmailConfig, log *logger.Logger) *Module {
	inAppRepo := inapp.NewRepository(pool)
	inAppSvc := inapp.NewService(inAppRepo, log)
	sseSvc := sse.New()
	inAppSvc.SetSSE(sseSvc)

	return &Module{
		sender:       sender,
		cfg:          cfg,
		log:          log,
		sse:          sseSvc,
		outbox:       outbox.New(pool),
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers the operator notification feed and SSE stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Admin.Group("/notifications")
	m.inAppHandler.RegisterRoutes(notifications)
	notifications.GET("/stream", m.sse.Handler(httpkit.UserID))
}

// Outbox exposes the outbox repository for the background dispatcher.
func (m *Module) Outbox() *outbox.Repository { return m.outbox }

// InAppService exposes the in-app notification service for integration points.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// Close shuts down live SSE connections.
func (m *Module) Close() { m.sse.Close() }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.QuoteSubmitted{}.EventName(), m)
	bus.Subscribe(events.QuoteStatusChanged{}.EventName(), m)
	bus.Subscribe(events.QuoteRescheduled{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.QuoteSubmitted:
		return m.handleQuoteSubmitted(ctx, e)
	case events.QuoteStatusChanged:
		return m.handleQuoteStatusChanged(ctx, e)
	case events.QuoteRescheduled:
		return m.handleQuoteRescheduled(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleQuoteSubmitted(ctx context.Context, e events.QuoteSubmitted) error {
	quoteID := e.QuoteID
	category := "info"
	content := fmt.Sprintf("%s requested a %s session on %s at %s.",
		e.ClientName, e.EventType, e.EventDate.Format(displayDateLayout), displayTime(e.EventTime))
	if e.HasConflict {
		category = "warning"
		content += " The requested slot is already occupied."
	}

	if err := m.inAppService.Send(ctx, inapp.SendParams{
		Title:        "New quote request",
		Content:      content,
		ResourceID:   &quoteID,
		ResourceType: resourceTypeQuote,
		Category:     category,
	}); err != nil {
		m.log.Error("failed to record quote submission notification", "quoteId", quoteID, "error", err)
	}

	m.sse.BroadcastQuoteEvent(sse.EventQuoteSubmitted, quoteID, content, e)

	return m.enqueueOperatorAlert(ctx, e)
}

func (m *Module) handleQuoteStatusChanged(ctx context.Context, e events.QuoteStatusChanged) error {
	quoteID := e.QuoteID
	category := "info"
	switch e.NewStatus {
	case string(domain.StatusAccepted):
		category = "success"
	case string(domain.StatusRejected), string(domain.StatusCancelled):
		category = "warning"
	}

	content := fmt.Sprintf("Quote for %s moved from %s to %s.", e.ClientName, e.OldStatus, e.NewStatus)
	if err := m.inAppService.Send(ctx, inapp.SendParams{
		Title:        "Quote status updated",
		Content:      content,
		ResourceID:   &quoteID,
		ResourceType: resourceTypeQuote,
		Category:     category,
	}); err != nil {
		m.log.Error("failed to record status change notification", "quoteId", quoteID, "error", err)
	}

	m.sse.BroadcastQuoteEvent(sse.EventQuoteStatusMoved, quoteID, content, e)
	return nil
}

func (m *Module) handleQuoteRescheduled(ctx context.Context, e events.QuoteRescheduled) error {
	quoteID := e.QuoteID
	content := fmt.Sprintf("Session for %s moved to %s at %s.",
		e.ClientName, e.NewDate.Format(displayDateLayout), displayTime(e.NewTime))

	if err := m.inAppService.Send(ctx, inapp.SendParams{
		Title:        "Quote rescheduled",
		Content:      content,
		ResourceID:   &quoteID,
		ResourceType: resourceTypeQuote,
		Category:     "info",
	}); err != nil {
		m.log.Error("failed to record reschedule notification", "quoteId", quoteID, "error", err)
	}

	m.sse.BroadcastQuoteEvent(sse.EventQuoteRescheduled, quoteID, content, e)
	return nil
}

// enqueueOperatorAlert persists the alert email in the outbox. The scheduler
// claims it and calls Deliver.
func (m *Module) enqueueOperatorAlert(ctx context.Context, e events.QuoteSubmitted) error {
	toEmail := m.cfg.GetOperatorAlertAddress()
	if toEmail == "" {
		m.log.Debug("operator alert address not configured; alert skipped", "quoteId", e.QuoteID)
		return nil
	}

	payload := operatorAlertPayload{
		QuoteID:     e.QuoteID.String(),
		ClientName:  e.ClientName,
		ClientEmail: e.ClientEmail,
		ClientPhone: e.ClientPhone,
		EventType:   e.EventType,
		EventDate:   e.EventDate.Format(displayDateLayout),
		EventTime:   displayTime(e.EventTime),
		Services:    e.Services,
		PriceRange:  e.PriceRange,
		HasConflict: e.HasConflict,
	}

	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Kind:     "email",
		Template: templateOperatorAlert,
		Payload:  payload,
	})
	if err != nil {
		m.log.Error("failed to enqueue operator alert", "quoteId", e.QuoteID, "error", err)
		return err
	}

	m.log.Info("operator alert enqueued", "outboxId", id, "quoteId", e.QuoteID, "to", toEmail)
	return nil
}

// Deliver sends one claimed outbox record. Failures are rescheduled with
// exponential backoff until maxOutboxRetryAttempts, then marked failed.
func (m *Module) Deliver(ctx context.Context, rec outbox.Record) error {
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	sendErr := m.deliverRecord(ctx, rec)
	if sendErr == nil {
		m.log.EmailEvent(rec.Template, m.cfg.GetOperatorAlertAddress(), true, nil)
		return m.outbox.MarkSucceeded(ctx, rec.ID)
	}

	m.log.EmailEvent(rec.Template, m.cfg.GetOperatorAlertAddress(), false, sendErr)

	attempts := rec.Attempts + 1
	if attempts >= maxOutboxRetryAttempts {
		return m.outbox.MarkFailed(ctx, rec.ID, sendErr.Error())
	}

	delay := outboxRetryBaseDelay << (attempts - 1)
	if delay > outboxRetryMaxDelay {
		delay = outboxRetryMaxDelay
	}
	reason := sendErr.Error()
	return m.outbox.MarkPending(ctx, rec.ID, time.Now().UTC().Add(delay), &reason)
}

func (m *Module) deliverRecord(ctx context.Context, rec outbox.Record) error {
	switch rec.Template {
	case templateOperatorAlert:
		var payload operatorAlertPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		details := email.BookingDetails{
			ClientName: payload.ClientName,
			EventType:  payload.EventType,
			EventDate:  payload.EventDate,
			EventTime:  payload.EventTime,
			Services:   payload.Services,
			PriceRange: payload.PriceRange,
		}
		return m.sender.SendNewQuoteAlertEmail(ctx, m.cfg.GetOperatorAlertAddress(), details,
			payload.ClientEmail, payload.ClientPhone, payload.HasConflict)
	default:
		return fmt.Errorf("unknown outbox template %q", rec.Template)
	}
}

// displayTime renders an "HH:MM" wire time in 12-hour form. Unparseable
// values pass through unchanged.
func displayTime(raw string) string {
	t, err := domain.ParseTimeOfDay(raw)
	if err != nil {
		return raw
	}
	return t.Display12h()
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
