package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is one user's rating of a product. A user reviews a product at
// most once; the aggregate lives on the product row.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	User      *User     `gorm:"foreignKey:UserID"`

	Rating  int     `gorm:"column:rating;not null"`
	Comment *string `gorm:"column:comment"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
