package transport

import "github.com/google/uuid"

type CreateServiceRequest struct {
	Category     string   `json:"category" validate:"required,oneof=photography videography"`
	Title        string   `json:"title" validate:"required,min=1,max=200"`
	Slug         string   `json:"slug" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceMin     *float64 `json:"priceMin,omitempty" validate:"omitempty,min=0"`
	PriceMax     *float64 `json:"priceMax,omitempty" validate:"omitempty,min=0"`
	PriceDisplay *string  `json:"priceDisplay,omitempty" validate:"omitempty,max=100"`
	Features     []string `json:"features,omitempty" validate:"omitempty,max=20,dive,max=200"`
	IsActive     *bool    `json:"isActive,omitempty"`
	IsFeatured   bool     `json:"isFeatured,omitempty"`
	DisplayOrder int      `json:"displayOrder,omitempty" validate:"omitempty,min=0"`
	IconName     *string  `json:"iconName,omitempty" validate:"omitempty,max=100"`
}

type UpdateServiceRequest struct {
	Category     *string  `json:"category,omitempty" validate:"omitempty,oneof=photography videography"`
	Title        *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Slug         *string  `json:"slug,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	PriceMin     *float64 `json:"priceMin,omitempty" validate:"omitempty,min=0"`
	PriceMax     *float64 `json:"priceMax,omitempty" validate:"omitempty,min=0"`
	PriceDisplay *string  `json:"priceDisplay,omitempty" validate:"omitempty,max=100"`
	Features     []string `json:"features,omitempty" validate:"omitempty,max=20,dive,max=200"`
	IsFeatured   *bool    `json:"isFeatured,omitempty"`
	DisplayOrder *int     `json:"displayOrder,omitempty" validate:"omitempty,min=0"`
	IconName     *string  `json:"iconName,omitempty" validate:"omitempty,max=100"`
}

type ListServicesRequest struct {
	Category string `form:"category" validate:"omitempty,oneof=photography videography"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ServiceResponse struct {
	ID           uuid.UUID `json:"id"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	PriceMin     *float64  `json:"priceMin,omitempty"`
	PriceMax     *float64  `json:"priceMax,omitempty"`
	PriceDisplay string    `json:"priceDisplay"`
	Features     []string  `json:"features"`
	IsActive     bool      `json:"isActive"`
	IsFeatured   bool      `json:"isFeatured"`
	DisplayOrder int       `json:"displayOrder"`
	IconName     *string   `json:"iconName,omitempty"`
	ImageKey     *string   `json:"imageKey,omitempty"`
	ImageURL     *string   `json:"imageUrl,omitempty"`
	CreatedAt    string    `json:"createdAt"`
	UpdatedAt    string    `json:"updatedAt"`
}

type ServiceListResponse struct {
	Items      []ServiceResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// Image uploads

type PresignServiceImageRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required,min=1,max=255"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

type PresignedUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
	ExpiresAt int64  `json:"expiresAt"`
}

type AttachServiceImageRequest struct {
	FileKey string `json:"fileKey" validate:"required,min=1"`
}
