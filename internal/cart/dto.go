package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
)

// CartItemDTO is one product line in the cart response.
type CartItemDTO struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitListPrice decimal.Decimal `json:"unit_list_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// CouponDTO describes the coupon currently applied to the cart.
type CouponDTO struct {
	Code     string          `json:"code"`
	Type     string          `json:"type"`
	Discount decimal.Decimal `json:"discount"`
}

// CartDTO is the full cart response including derived totals.
type CartDTO struct {
	ID            uuid.UUID       `json:"id"`
	Items         []CartItemDTO   `json:"items"`
	Coupon        *CouponDTO      `json:"coupon,omitempty"`
	Total         decimal.Decimal `json:"total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	CouponSavings decimal.Decimal `json:"coupon_savings"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AddItemRequest adds or merges a product line.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// UpdateItemRequest overwrites the quantity of an existing line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// ApplyCouponRequest attaches a coupon to the cart.
type ApplyCouponRequest struct {
	Code     string          `json:"code" validate:"required,min=2,max=40"`
	Type     string          `json:"type" validate:"required"`
	Discount decimal.Decimal `json:"discount" validate:"required"`
}

// FromModel maps a stored cart onto its DTO. A nil cart maps to the
// empty cart view.
func FromModel(c *models.Cart) *CartDTO {
	if c == nil {
		return &CartDTO{
			Items:         []CartItemDTO{},
			Total:         decimal.Zero,
			DiscountTotal: decimal.Zero,
			CouponSavings: decimal.Zero,
			GrandTotal:    decimal.Zero,
		}
	}

	dto := &CartDTO{
		ID:            c.ID,
		Items:         make([]CartItemDTO, 0, len(c.Items)),
		Total:         c.Total,
		DiscountTotal: c.DiscountTotal,
		CouponSavings: c.CouponSavings,
		GrandTotal:    c.GrandTotal,
		UpdatedAt:     c.UpdatedAt,
	}
	for i := range c.Items {
		item := &c.Items[i]
		dto.Items = append(dto.Items, CartItemDTO{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitListPrice: item.UnitListPrice,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal,
		})
	}
	if c.CouponCode != nil && c.CouponType != nil && c.CouponDiscount != nil {
		dto.Coupon = &CouponDTO{
			Code:     *c.CouponCode,
			Type:     c.CouponType.String(),
			Discount: *c.CouponDiscount,
		}
	}
	return dto
}
