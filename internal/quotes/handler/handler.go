package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/service"
	"studiodesk_backend/internal/quotes/transport"
	"studiodesk_backend/platform/httpkit"
	"studiodesk_backend/platform/validator"
)

// Handler handles HTTP requests for quote requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid quote id"
)

// New creates a new quote handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// CreateQuote accepts a public quote submission.
// POST /api/v1/quotes
func (h *Handler) CreateQuote(c *gin.Context) {
	var req transport.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	// A submission landing in an occupied slot is still persisted; the
	// warning rides along instead of an error status.
	if result.Warning != nil {
		httpkit.OK(c, result)
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListStatuses enumerates the quote lifecycle.
// GET /api/v1/quote-statuses
func (h *Handler) ListStatuses(c *gin.Context) {
	httpkit.OK(c, h.svc.Statuses())
}

// ListQuotes retrieves quotes with filters, alerts and summary statistics.
// GET /api/v1/admin/quotes
func (h *Handler) ListQuotes(c *gin.Context) {
	var req transport.ListQuotesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetQuote retrieves a quote with recomputed conflicts and advisory alerts.
// GET /api/v1/admin/quotes/:id
func (h *Handler) GetQuote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateQuote applies an operator edit.
// PUT /api/v1/admin/quotes/:id
func (h *Handler) UpdateQuote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	actorID, _ := httpkit.UserID(c)
	result, err := h.svc.Update(c.Request.Context(), id, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteQuote removes a quote.
// DELETE /api/v1/admin/quotes/:id
func (h *Handler) DeleteQuote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actorID, _ := httpkit.UserID(c)
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id, actorID)) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": true, "quote_id": id})
}

// GetAlternativeTimes returns verified alternative slots for a quote.
// GET /api/v1/admin/quotes/:id/alternative-times?max_suggestions=5
func (h *Handler) GetAlternativeTimes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	maxSuggestions := 0
	if raw := c.Query("max_suggestions"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpkit.Error(c, http.StatusBadRequest, "max_suggestions must be a positive integer", nil)
			return
		}
		maxSuggestions = n
	}

	result, err := h.svc.AlternativeTimes(c.Request.Context(), id, maxSuggestions)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// BulkAction applies DELETE or UPDATE_STATUS to a set of quotes.
// POST /api/v1/admin/quotes/bulk-action
func (h *Handler) BulkAction(c *gin.Context) {
	var req transport.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	actorID, _ := httpkit.UserID(c)
	result, err := h.svc.BulkAction(c.Request.Context(), actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Cleanup deletes stale quotes or an overcrowded day's excess.
// DELETE /api/v1/admin/quotes/cleanup?type=old_quotes|overcrowded_day&date=
func (h *Handler) Cleanup(c *gin.Context) {
	actorID, _ := httpkit.UserID(c)
	result, err := h.svc.Cleanup(c.Request.Context(), actorID, c.Query("type"), c.Query("date"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
