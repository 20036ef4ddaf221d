package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/internal/categories"
	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
)

// ProductDTO is the public representation of a catalog product.
type ProductDTO struct {
	ID             uuid.UUID               `json:"id"`
	Name           string                  `json:"name"`
	Slug           string                  `json:"slug"`
	SKU            string                  `json:"sku"`
	Description    string                  `json:"description"`
	CategoryID     uuid.UUID               `json:"category_id"`
	Category       *categories.CategoryDTO `json:"category,omitempty"`
	Brand          *string                 `json:"brand,omitempty"`
	Tags           []string                `json:"tags"`
	ListPrice      decimal.Decimal         `json:"list_price"`
	DiscountPrice  *decimal.Decimal        `json:"discount_price,omitempty"`
	EffectivePrice decimal.Decimal         `json:"effective_price"`
	Stock          int                     `json:"stock"`
	ImageURLs      []string                `json:"image_urls"`
	IsActive       bool                    `json:"is_active"`
	IsFeatured     bool                    `json:"is_featured"`
	RatingAvg      float64                 `json:"rating_avg"`
	RatingCount    int                     `json:"rating_count"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// ListQuery carries the catalog listing filters.
type ListQuery struct {
	Page  int
	Limit int
	// CategorySlug matches products in the named category or any of its
	// subcategories. SubCategorySlug narrows to one subcategory.
	CategorySlug    string
	SubCategorySlug string
	Search          string
	Tag             string
	Featured        *bool
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	Sort            string
	// IncludeInactive is only honored for admin listings.
	IncludeInactive bool
}

// ListResult pairs a page of products with its pagination metadata.
type ListResult struct {
	Items []ProductDTO    `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// CreateProductRequest is the admin payload for adding a product.
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,min=2,max=200"`
	SKU           string           `json:"sku" validate:"required,min=2,max=64"`
	Description   string           `json:"description" validate:"required"`
	CategoryID    uuid.UUID        `json:"category_id" validate:"required"`
	Brand         *string          `json:"brand,omitempty" validate:"omitempty,max=120"`
	Tags          []string         `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=60"`
	ListPrice     decimal.Decimal  `json:"list_price" validate:"required"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Stock         int              `json:"stock" validate:"gte=0"`
	IsActive      *bool            `json:"is_active,omitempty"`
	IsFeatured    bool             `json:"is_featured"`
}

// UpdateProductRequest carries partial product updates. Nil fields are
// left untouched.
type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	SKU           *string          `json:"sku,omitempty" validate:"omitempty,min=2,max=64"`
	Description   *string          `json:"description,omitempty"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	Brand         *string          `json:"brand,omitempty" validate:"omitempty,max=120"`
	Tags          []string         `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=60"`
	ListPrice     *decimal.Decimal `json:"list_price,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	ClearDiscount bool             `json:"clear_discount,omitempty"`
	Stock         *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	IsActive      *bool            `json:"is_active,omitempty"`
	IsFeatured    *bool            `json:"is_featured,omitempty"`
}

// FromModel maps a stored product onto its DTO.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		SKU:            p.SKU,
		Description:    p.Description,
		CategoryID:     p.CategoryID,
		Category:       categories.FromModel(p.Category),
		Brand:          p.Brand,
		Tags:           p.Tags,
		ListPrice:      p.ListPrice,
		DiscountPrice:  p.DiscountPrice,
		EffectivePrice: p.EffectivePrice(),
		Stock:          p.Stock,
		ImageURLs:      p.ImageURLs,
		IsActive:       p.IsActive,
		IsFeatured:     p.IsFeatured,
		RatingAvg:      p.RatingAvg,
		RatingCount:    p.RatingCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	if dto.ImageURLs == nil {
		dto.ImageURLs = []string{}
	}
	return dto
}

// FromModels maps a slice of stored products onto DTOs.
func FromModels(list []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
