// Package catalog provides the service catalog bounded context module.
package catalog

import (
	"studiodesk_backend/internal/catalog/handler"
	"studiodesk_backend/internal/catalog/repository"
	"studiodesk_backend/internal/catalog/service"
	apphttp "studiodesk_backend/internal/http"
	"studiodesk_backend/internal/storage"
	"studiodesk_backend/platform/logger"
	"studiodesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, storageSvc storage.StorageService, bucket string, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, storageSvc, bucket, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public read-only endpoint for the booking page
	ctx.V1.GET("/services", m.handler.ListPublicServices)

	// Admin CRUD endpoints
	adminGroup := ctx.Admin.Group("/services")
	adminGroup.GET("", m.handler.ListServices)
	adminGroup.GET("/:id", m.handler.GetService)
	adminGroup.POST("", m.handler.CreateService)
	adminGroup.PUT("/:id", m.handler.UpdateService)
	adminGroup.DELETE("/:id", m.handler.DeleteService)
	adminGroup.POST("/:id/toggle-active", m.handler.ToggleServiceActive)
	adminGroup.POST("/:id/image/presign", m.handler.PresignServiceImage)
	adminGroup.POST("/:id/image", m.handler.AttachServiceImage)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
