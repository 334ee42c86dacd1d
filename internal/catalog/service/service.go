package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"studiodesk_backend/internal/catalog/repository"
	"studiodesk_backend/internal/catalog/transport"
	"studiodesk_backend/internal/shared/money"
	"studiodesk_backend/internal/storage"
	"studiodesk_backend/platform/apperr"
	"studiodesk_backend/platform/logger"
)

// Service provides business logic for the studio service catalog.
type Service struct {
	repo       repository.Repository
	storageSvc storage.StorageService
	bucket     string
	log        *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, storageSvc storage.StorageService, bucket string, log *logger.Logger) *Service {
	return &Service{repo: repo, storageSvc: storageSvc, bucket: bucket, log: log}
}

// ListPublic retrieves active services for the public booking page.
func (s *Service) ListPublic(ctx context.Context, req transport.ListServicesRequest) (transport.ServiceListResponse, error) {
	return s.list(ctx, req, true)
}

// ListAdmin retrieves all services, including inactive ones.
func (s *Service) ListAdmin(ctx context.Context, req transport.ListServicesRequest) (transport.ServiceListResponse, error) {
	return s.list(ctx, req, false)
}

func (s *Service) list(ctx context.Context, req transport.ListServicesRequest, activeOnly bool) (transport.ServiceListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 100 {
		pageSize = 100
	}

	items, total, err := s.repo.List(ctx, repository.ListServicesParams{
		Category:   req.Category,
		ActiveOnly: activeOnly,
		Search:     strings.TrimSpace(req.Search),
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	})
	if err != nil {
		return transport.ServiceListResponse{}, err
	}

	responses := make([]transport.ServiceResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, s.toResponse(ctx, item))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.ServiceListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetByID retrieves a service by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ServiceResponse, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	return s.toResponse(ctx, svc), nil
}

// Create creates a new service.
func (s *Service) Create(ctx context.Context, req transport.CreateServiceRequest) (transport.ServiceResponse, error) {
	if err := validatePriceBounds(req.PriceMin, req.PriceMax); err != nil {
		return transport.ServiceResponse{}, err
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(req.Title)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	svc, err := s.repo.Create(ctx, repository.CreateServiceParams{
		Category:     req.Category,
		Title:        strings.TrimSpace(req.Title),
		Slug:         slug,
		Description:  req.Description,
		PriceMin:     req.PriceMin,
		PriceMax:     req.PriceMax,
		PriceDisplay: req.PriceDisplay,
		Features:     req.Features,
		IsActive:     isActive,
		IsFeatured:   req.IsFeatured,
		DisplayOrder: req.DisplayOrder,
		IconName:     req.IconName,
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}

	s.log.Info("service created", "id", svc.ID, "slug", svc.Slug)
	return s.toResponse(ctx, svc), nil
}

// Update updates a service.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateServiceRequest) (transport.ServiceResponse, error) {
	if err := validatePriceBounds(req.PriceMin, req.PriceMax); err != nil {
		return transport.ServiceResponse{}, err
	}

	svc, err := s.repo.Update(ctx, repository.UpdateServiceParams{
		ID:           id,
		Category:     req.Category,
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		PriceMin:     req.PriceMin,
		PriceMax:     req.PriceMax,
		PriceDisplay: req.PriceDisplay,
		Features:     req.Features,
		IsFeatured:   req.IsFeatured,
		DisplayOrder: req.DisplayOrder,
		IconName:     req.IconName,
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}

	s.log.Info("service updated", "id", svc.ID)
	return s.toResponse(ctx, svc), nil
}

// Delete removes a service from the catalog. Quotes keep their own price
// snapshots, so deleting a service never touches existing quotes.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if svc.ImageKey != nil {
		if err := s.storageSvc.DeleteObject(ctx, s.bucket, *svc.ImageKey); err != nil {
			s.log.Warn("failed to delete service image", "id", id, "error", err)
		}
	}

	s.log.Info("service deleted", "id", id)
	return nil
}

// ToggleActive flips the published state of a service.
func (s *Service) ToggleActive(ctx context.Context, id uuid.UUID) (transport.ServiceResponse, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ServiceResponse{}, err
	}

	updated, err := s.repo.SetActive(ctx, id, !svc.IsActive)
	if err != nil {
		return transport.ServiceResponse{}, err
	}

	s.log.Info("service active toggled", "id", id, "active", updated.IsActive)
	return s.toResponse(ctx, updated), nil
}

// PresignImageUpload generates a presigned PUT URL for a service showcase image.
func (s *Service) PresignImageUpload(ctx context.Context, id uuid.UUID, req transport.PresignServiceImageRequest) (transport.PresignedUploadResponse, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PresignedUploadResponse{}, err
	}

	presigned, err := s.storageSvc.GenerateUploadURL(ctx, s.bucket, "services/"+svc.Slug, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return transport.PresignedUploadResponse{}, apperr.BadRequest(err.Error())
	}

	return transport.PresignedUploadResponse{
		UploadURL: presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt.Unix(),
	}, nil
}

// AttachImage records an uploaded image key on the service, replacing any
// previous image.
func (s *Service) AttachImage(ctx context.Context, id uuid.UUID, req transport.AttachServiceImageRequest) (transport.ServiceResponse, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	oldKey := svc.ImageKey

	updated, err := s.repo.Update(ctx, repository.UpdateServiceParams{
		ID:       id,
		ImageKey: &req.FileKey,
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}

	if oldKey != nil && *oldKey != req.FileKey {
		if err := s.storageSvc.DeleteObject(ctx, s.bucket, *oldKey); err != nil {
			s.log.Warn("failed to delete replaced service image", "id", id, "error", err)
		}
	}

	return s.toResponse(ctx, updated), nil
}

func (s *Service) toResponse(ctx context.Context, svc repository.Service) transport.ServiceResponse {
	display := money.FormatKshRange(svc.PriceMin, svc.PriceMax)
	if svc.PriceDisplay != nil && *svc.PriceDisplay != "" {
		display = *svc.PriceDisplay
	}

	features := svc.Features
	if features == nil {
		features = []string{}
	}

	resp := transport.ServiceResponse{
		ID:           svc.ID,
		Category:     svc.Category,
		Title:        svc.Title,
		Slug:         svc.Slug,
		Description:  svc.Description,
		PriceMin:     svc.PriceMin,
		PriceMax:     svc.PriceMax,
		PriceDisplay: display,
		Features:     features,
		IsActive:     svc.IsActive,
		IsFeatured:   svc.IsFeatured,
		DisplayOrder: svc.DisplayOrder,
		IconName:     svc.IconName,
		ImageKey:     svc.ImageKey,
		CreatedAt:    svc.CreatedAt,
		UpdatedAt:    svc.UpdatedAt,
	}

	if svc.ImageKey != nil && s.storageSvc != nil {
		if presigned, err := s.storageSvc.GenerateDownloadURL(ctx, s.bucket, *svc.ImageKey); err == nil {
			resp.ImageURL = &presigned.URL
		}
	}

	return resp
}

func validatePriceBounds(min, max *float64) error {
	if min != nil && max != nil && *min > *max {
		return apperr.Validation("priceMin cannot exceed priceMax")
	}
	return nil
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title into a URL-safe slug.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
