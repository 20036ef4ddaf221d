package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/pkg/enums"
)

// Cart is the single active cart owned by a user. Coupon fields are
// embedded on the cart row; totals are recomputed on every mutation.
type Cart struct {
	ID     uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_carts_user"`
	Items  []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`

	CouponCode     *string           `gorm:"column:coupon_code"`
	CouponType     *enums.CouponType `gorm:"column:coupon_type;type:text"`
	CouponDiscount *decimal.Decimal  `gorm:"column:coupon_discount;type:numeric(12,2)"`

	Total         decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	DiscountTotal decimal.Decimal `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	CouponSavings decimal.Decimal `gorm:"column:coupon_savings;type:numeric(12,2);not null;default:0"`
	GrandTotal    decimal.Decimal `gorm:"column:grand_total;type:numeric(12,2);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem snapshots a product line inside a cart. Unit prices are
// copied from the product at the time the line is written.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	Product   *Product  `gorm:"foreignKey:ProductID"`

	Name          string          `gorm:"column:name;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitListPrice decimal.Decimal `gorm:"column:unit_list_price;type:numeric(12,2);not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
