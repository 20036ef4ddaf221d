package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
)

// CategoryDTO is the public representation of a catalog category.
type CategoryDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Description *string    `json:"description,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateCategoryRequest is the admin payload for adding a category.
type CreateCategoryRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=120"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	ImageURL    *string    `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateCategoryRequest carries partial category updates. Nil fields are
// left untouched.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	ImageURL    *string    `json:"image_url,omitempty" validate:"omitempty,url"`
}

// FromModel maps a stored category onto its DTO.
func FromModel(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		ParentID:    c.ParentID,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// FromModels maps a slice of stored categories onto DTOs.
func FromModels(list []models.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
