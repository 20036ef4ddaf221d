package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a storefront listing. Prices are stored as exact
// decimals; DiscountPrice overrides ListPrice when set above zero.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex:idx_products_slug"`
	SKU           string           `gorm:"column:sku;not null;uniqueIndex:idx_products_sku"`
	Description   string           `gorm:"column:description;not null;default:''"`
	CategoryID    uuid.UUID        `gorm:"column:category_id;type:uuid;not null;index"`
	Category      *Category        `gorm:"foreignKey:CategoryID"`
	Brand         *string          `gorm:"column:brand"`
	Tags          pq.StringArray   `gorm:"column:tags;type:text[]"`
	ListPrice     decimal.Decimal  `gorm:"column:list_price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	Stock         int              `gorm:"column:stock;not null;default:0"`
	ImageURLs     pq.StringArray   `gorm:"column:image_urls;type:text[]"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	IsFeatured    bool             `gorm:"column:is_featured;not null;default:false"`
	RatingAvg     float64          `gorm:"column:rating_avg;type:numeric(3,2);not null;default:0"`
	RatingCount   int              `gorm:"column:rating_count;not null;default:0"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the price a buyer pays for one unit.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() {
		return *p.DiscountPrice
	}
	return p.ListPrice
}

// InStock reports whether qty units can currently be sold.
func (p Product) InStock(qty int) bool {
	return qty > 0 && p.Stock >= qty
}
