package repository

import (
	"context"

	"github.com/google/uuid"
)

// Service represents a bookable studio service (a package clients can
// request on a quote).
type Service struct {
	ID           uuid.UUID `db:"id"`
	Category     string    `db:"category"`
	Title        string    `db:"title"`
	Slug         string    `db:"slug"`
	Description  *string   `db:"description"`
	PriceMin     *float64  `db:"price_min"`
	PriceMax     *float64  `db:"price_max"`
	PriceDisplay *string   `db:"price_display"`
	Features     []string  `db:"features"`
	IsActive     bool      `db:"is_active"`
	IsFeatured   bool      `db:"is_featured"`
	DisplayOrder int       `db:"display_order"`
	IconName     *string   `db:"icon_name"`
	ImageKey     *string   `db:"image_key"`
	CreatedAt    string    `db:"created_at"`
	UpdatedAt    string    `db:"updated_at"`
}

// CreateServiceParams contains data for creating a service.
type CreateServiceParams struct {
	Category     string
	Title        string
	Slug         string
	Description  *string
	PriceMin     *float64
	PriceMax     *float64
	PriceDisplay *string
	Features     []string
	IsActive     bool
	IsFeatured   bool
	DisplayOrder int
	IconName     *string
}

// UpdateServiceParams contains data for updating a service. Nil fields are
// left unchanged.
type UpdateServiceParams struct {
	ID           uuid.UUID
	Category     *string
	Title        *string
	Slug         *string
	Description  *string
	PriceMin     *float64
	PriceMax     *float64
	PriceDisplay *string
	Features     []string
	IsFeatured   *bool
	DisplayOrder *int
	IconName     *string
	ImageKey     *string
}

// ListServicesParams defines filters for listing services.
type ListServicesParams struct {
	Category   string
	ActiveOnly bool
	Search     string
	Offset     int
	Limit      int
}

// Repository defines catalog storage operations.
type Repository interface {
	Create(ctx context.Context, params CreateServiceParams) (Service, error)
	Update(ctx context.Context, params UpdateServiceParams) (Service, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (Service, error)
	GetBySlug(ctx context.Context, slug string) (Service, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Service, error)
	List(ctx context.Context, params ListServicesParams) ([]Service, int, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Service, error)
}
