// Package quotes provides the quote scheduling bounded context module.
package quotes

import (
	"context"
	"fmt"

	catalogrepo "studiodesk_backend/internal/catalog/repository"
	"studiodesk_backend/internal/email"
	apphttp "studiodesk_backend/internal/http"
	"studiodesk_backend/internal/quotes/handler"
	"studiodesk_backend/internal/quotes/pricing"
	"studiodesk_backend/internal/quotes/repository"
	"studiodesk_backend/internal/quotes/scheduling"
	"studiodesk_backend/internal/quotes/service"
	"studiodesk_backend/platform/config"
	"studiodesk_backend/platform/events"
	"studiodesk_backend/platform/logger"
	"studiodesk_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotes bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
	hours   scheduling.WeeklyHours
}

// NewModule creates and initializes the quotes module. The catalog repository
// backs snapshot enrichment so quotes always price against live catalog data.
func NewModule(
	pool *pgxpool.Pool,
	catalog catalogrepo.Repository,
	cfg config.StudioConfig,
	sender email.Sender,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	hours, err := scheduling.NewWeeklyHours(cfg.GetStudioHours())
	if err != nil {
		return nil, fmt.Errorf("studio hours: %w", err)
	}

	repo := repository.New(pool)
	svc := service.New(
		repo,
		&catalogReader{catalog: catalog},
		hours,
		cfg.GetMaxQuotesPerDay(),
		cfg.GetStaleQuoteAge(),
		sender,
		bus,
		log,
	)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
		hours:   hours,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts quote routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public booking-page endpoints. Submission is rate limited per IP.
	ctx.V1.POST("/quotes", ctx.SubmissionRateLimiter.RateLimit(), m.handler.CreateQuote)
	ctx.V1.GET("/quote-statuses", m.handler.ListStatuses)

	// Operator endpoints
	adminGroup := ctx.Admin.Group("/quotes")
	adminGroup.GET("", m.handler.ListQuotes)
	adminGroup.POST("/bulk-action", m.handler.BulkAction)
	adminGroup.DELETE("/cleanup", m.handler.Cleanup)
	adminGroup.GET("/:id", m.handler.GetQuote)
	adminGroup.PUT("/:id", m.handler.UpdateQuote)
	adminGroup.DELETE("/:id", m.handler.DeleteQuote)
	adminGroup.GET("/:id/alternative-times", m.handler.GetAlternativeTimes)
}

// catalogReader adapts the catalog repository to the enricher's port,
// filtering out inactive services.
type catalogReader struct {
	catalog catalogrepo.Repository
}

func (r *catalogReader) ActiveServices(ctx context.Context, ids []uuid.UUID) ([]pricing.CatalogService, error) {
	services, err := r.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	active := make([]pricing.CatalogService, 0, len(services))
	for _, svc := range services {
		if !svc.IsActive {
			continue
		}

		display := ""
		if svc.PriceDisplay != nil {
			display = *svc.PriceDisplay
		}
		active = append(active, pricing.CatalogService{
			ID:           svc.ID,
			Title:        svc.Title,
			Category:     svc.Category,
			PriceMin:     svc.PriceMin,
			PriceMax:     svc.PriceMax,
			PriceDisplay: display,
			Features:     svc.Features,
		})
	}
	return active, nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
var _ pricing.CatalogReader = (*catalogReader)(nil)
