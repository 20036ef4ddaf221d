package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products for the storefront taxonomy.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null;uniqueIndex:idx_categories_name"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex:idx_categories_slug"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	Parent      *Category  `gorm:"foreignKey:ParentID"`
	Description *string    `gorm:"column:description"`
	ImageURL    *string    `gorm:"column:image_url"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
