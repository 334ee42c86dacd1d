// Package transport defines the request and response shapes of the quote
// engine's HTTP surface.
package transport

import (
	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/alerts"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/pricing"
	"studiodesk_backend/internal/quotes/scheduling"
)

// CreateQuoteRequest is the public booking form payload. Dates use
// YYYY-MM-DD and times HH:MM. AutoReschedule opts in to having a full day's
// request moved to the suggested alternative date instead of rejected.
type CreateQuoteRequest struct {
	ClientName         string               `json:"client_name" validate:"required,min=2,max=120"`
	ClientEmail        string               `json:"client_email" validate:"required,email"`
	ClientPhone        string               `json:"client_phone" validate:"required,min=7,max=20"`
	CompanyName        *string              `json:"company_name" validate:"omitempty,max=120"`
	EventType          string               `json:"event_type" validate:"required,max=120"`
	EventDate          string               `json:"event_date" validate:"required"`
	EventTime          string               `json:"event_time" validate:"required"`
	EventLocation      *string              `json:"event_location" validate:"omitempty,max=255"`
	BudgetRange        *string              `json:"budget_range" validate:"omitempty,max=60"`
	ProjectDescription *string              `json:"project_description" validate:"omitempty,max=2000"`
	ReferralSource     *string              `json:"referral_source" validate:"omitempty,max=120"`
	SelectedServices   []pricing.ServiceRef `json:"selected_services" validate:"required,min=1"`
	AutoReschedule     bool                 `json:"auto_reschedule"`
}

// UpdateQuoteRequest is the operator update payload. Nil pointers leave the
// field untouched; an empty string on the slot fields clears them.
type UpdateQuoteRequest struct {
	ClientName         *string              `json:"client_name" validate:"omitempty,min=2,max=120"`
	ClientEmail        *string              `json:"client_email" validate:"omitempty,email"`
	ClientPhone        *string              `json:"client_phone" validate:"omitempty,min=7,max=20"`
	CompanyName        *string              `json:"company_name" validate:"omitempty,max=120"`
	EventType          *string              `json:"event_type" validate:"omitempty,max=120"`
	EventDate          *string              `json:"event_date"`
	EventTime          *string              `json:"event_time"`
	EventLocation      *string              `json:"event_location" validate:"omitempty,max=255"`
	BudgetRange        *string              `json:"budget_range" validate:"omitempty,max=60"`
	ProjectDescription *string              `json:"project_description" validate:"omitempty,max=2000"`
	ReferralSource     *string              `json:"referral_source" validate:"omitempty,max=120"`
	SelectedServices   []pricing.ServiceRef `json:"selected_services"`
	Status             *string              `json:"status"`
	QuotedAmount       *float64             `json:"quoted_amount" validate:"omitempty,gte=0"`
	QuoteDetails       *string              `json:"quote_details" validate:"omitempty,max=5000"`
	AssignedTo         *uuid.UUID           `json:"assigned_to"`
	ValidUntil         *string              `json:"valid_until"`
	CancellationReason *string              `json:"cancellation_reason" validate:"omitempty,max=1000"`
	RejectionReason    *string              `json:"rejection_reason" validate:"omitempty,max=1000"`
	IsReschedule       bool                 `json:"is_reschedule"`
	AdminNote          *string              `json:"admin_note" validate:"omitempty,max=1000"`
}

// ListQuotesRequest carries the list filters as query parameters. Status
// accepts a comma-separated list.
type ListQuotesRequest struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	Status       string `form:"status"`
	DateFrom     string `form:"date_from"`
	DateTo       string `form:"date_to"`
	HasConflicts *bool  `form:"has_conflicts"`
	AssignedTo   string `form:"assigned_to"`
	Search       string `form:"search" validate:"omitempty,max=120"`
}

// BulkActionRequest applies one action to a set of quotes.
type BulkActionRequest struct {
	Action   string      `json:"action" validate:"required,oneof=DELETE UPDATE_STATUS"`
	QuoteIDs []uuid.UUID `json:"quote_ids" validate:"required,min=1"`
	Status   string      `json:"status"`
}

// TimeConflictInfo describes a quote's standing in its slot.
type TimeConflictInfo struct {
	HasConflict          bool                           `json:"has_conflict"`
	IsPriority           bool                           `json:"is_priority"`
	ConflictingCount     int                            `json:"conflicting_count"`
	ConflictingQuoteIDs  []uuid.UUID                    `json:"conflicting_quote_ids"`
	Message              string                         `json:"message"`
	VerifiedAlternatives *scheduling.AlternativesResult `json:"verified_alternatives,omitempty"`
}

// AdvisoryAlert is a non-fatal finding attached to a single quote read:
// a slot conflict, a time outside current studio hours, or a full day.
type AdvisoryAlert struct {
	Type            string                         `json:"type"`
	Message         string                         `json:"message"`
	SuggestedAction string                         `json:"suggested_action,omitempty"`
	SuggestedStart  string                         `json:"suggested_start,omitempty"`
	SuggestedEnd    string                         `json:"suggested_end,omitempty"`
	SuggestedDate   string                         `json:"suggested_date,omitempty"`
	CurrentCount    int                            `json:"current_quote_count,omitempty"`
	MaxQuotes       int                            `json:"max_quotes,omitempty"`
	Alternatives    *scheduling.AlternativesResult `json:"verified_alternatives,omitempty"`
}

// QuoteResponse is the full representation of a quote request. HasConflict
// is always the freshly recomputed value, never the stored hint.
type QuoteResponse struct {
	ID                 uuid.UUID                `json:"id"`
	CreatedAt          string                   `json:"created_at"`
	UpdatedAt          string                   `json:"updated_at"`
	ClientName         string                   `json:"client_name"`
	ClientEmail        string                   `json:"client_email"`
	ClientPhone        string                   `json:"client_phone"`
	CompanyName        *string                  `json:"company_name,omitempty"`
	EventType          string                   `json:"event_type"`
	EventDate          *string                  `json:"event_date"`
	EventTime          *string                  `json:"event_time"`
	EventTimeDisplay   *string                  `json:"event_time_display,omitempty"`
	EventLocation      *string                  `json:"event_location,omitempty"`
	BudgetRange        *string                  `json:"budget_range,omitempty"`
	ProjectDescription *string                  `json:"project_description,omitempty"`
	ReferralSource     *string                  `json:"referral_source,omitempty"`
	SelectedServices   []domain.ServiceSnapshot `json:"selected_services"`
	Status             string                   `json:"status"`
	HasConflict        bool                     `json:"has_conflict"`
	QuotedAmount       *float64                 `json:"quoted_amount,omitempty"`
	QuoteDetails       *string                  `json:"quote_details,omitempty"`
	AssignedTo         *uuid.UUID               `json:"assigned_to,omitempty"`
	CancellationReason *string                  `json:"cancellation_reason,omitempty"`
	QuoteSentAt        *string                  `json:"quote_sent_at,omitempty"`
	CancelledAt        *string                  `json:"cancelled_at,omitempty"`
	ValidUntil         *string                  `json:"valid_until,omitempty"`
	PriceEstimate      *pricing.PriceEstimate   `json:"price_estimate,omitempty"`
	TimeConflict       *TimeConflictInfo        `json:"time_conflict,omitempty"`
	Alerts             []AdvisoryAlert          `json:"alerts,omitempty"`
}

// ConflictWarning rides along on a creation that landed in an occupied slot.
type ConflictWarning struct {
	Message           string `json:"message"`
	ConflictingQuotes int    `json:"conflicting_quotes"`
}

// CreateProcessingInfo reports the notification outcome of a submission.
// Email failures never fail the submission itself.
type CreateProcessingInfo struct {
	ClientEmailSent     bool                   `json:"client_email_sent"`
	OperatorAlertQueued bool                   `json:"operator_alert_queued"`
	Rescheduled         bool                   `json:"rescheduled"`
	OriginalDate        string                 `json:"original_date,omitempty"`
	PriceEstimate       *pricing.PriceEstimate `json:"price_estimate,omitempty"`
}

// CreateQuoteResponse is the submission result.
type CreateQuoteResponse struct {
	Message        string               `json:"message"`
	Quote          QuoteResponse        `json:"quote_request"`
	ProcessingInfo CreateProcessingInfo `json:"processing_info"`
	Warning        *ConflictWarning     `json:"warning,omitempty"`
}

// UpdateProcessingInfo reports which notification an update triggered.
type UpdateProcessingInfo struct {
	EmailSent     bool   `json:"email_sent"`
	EmailType     string `json:"email_type,omitempty"`
	Recipient     string `json:"recipient,omitempty"`
	StatusChanged bool   `json:"status_changed"`
	OldStatus     string `json:"old_status,omitempty"`
	NewStatus     string `json:"new_status,omitempty"`
}

// ConflictInfo warns that an update landed the quote in a still-occupied
// slot. The move is accepted anyway; double-booking is the operator's call.
type ConflictInfo struct {
	Warning             string      `json:"warning"`
	ConflictingQuoteIDs []uuid.UUID `json:"conflicting_quote_ids"`
	ConflictingClients  []string    `json:"conflicting_clients"`
	Suggestion          string      `json:"suggestion"`
}

// UpdateQuoteResponse is the operator update result.
type UpdateQuoteResponse struct {
	Message        string               `json:"message"`
	Quote          QuoteResponse        `json:"quote_request"`
	ProcessingInfo UpdateProcessingInfo `json:"processing_info"`
	ConflictInfo   *ConflictInfo        `json:"conflict_info,omitempty"`
}

// QuoteListResponse is the paginated listing with the alert feed attached.
type QuoteListResponse struct {
	Quotes        []QuoteResponse       `json:"quotes"`
	Total         int                   `json:"total"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	TotalPages    int                   `json:"total_pages"`
	Summary       alerts.Summary        `json:"summary"`
	Alerts        []alerts.Alert        `json:"alerts,omitempty"`
	AlertsSummary *alerts.AlertsSummary `json:"alerts_summary,omitempty"`
}

// AlternativeTimesResponse wraps the searcher result with quote context.
type AlternativeTimesResponse struct {
	QuoteID     uuid.UUID `json:"quote_id"`
	ClientName  string    `json:"client_name"`
	CurrentDate string    `json:"current_date"`
	CurrentTime string    `json:"current_time"`
	scheduling.AlternativesResult
}

// SkippedQuote explains why a bulk action left one quote untouched.
type SkippedQuote struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// BulkActionResponse reports the per-quote outcome of a bulk action.
type BulkActionResponse struct {
	Message      string         `json:"message"`
	DeletedCount int            `json:"deleted_count,omitempty"`
	UpdatedCount int            `json:"updated_count,omitempty"`
	Skipped      []SkippedQuote `json:"skipped,omitempty"`
}

// CleanupResponse reports a cleanup run.
type CleanupResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
	KeptCount    int    `json:"kept_count,omitempty"`
}

// StatusInfo describes one lifecycle status for UI consumption.
type StatusInfo struct {
	Value       string   `json:"value"`
	Terminal    bool     `json:"terminal"`
	Active      bool     `json:"active"`
	Transitions []string `json:"transitions"`
}

// StatusListResponse enumerates the quote lifecycle for clients.
type StatusListResponse struct {
	Statuses []StatusInfo `json:"statuses"`
}
