package cart

import (
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
)

// Totals is the result of running the cart total engine over a set of
// lines. All amounts are exact decimals.
type Totals struct {
	Total         decimal.Decimal
	DiscountTotal decimal.Decimal
	CouponSavings decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Coupon is the discount applied to a cart, if any.
type Coupon struct {
	Code     string
	Type     enums.CouponType
	Discount decimal.Decimal
}

// ComputeTotals derives all cart amounts from the item lines and an
// optional coupon. Client-supplied totals are never trusted; this is the
// single place totals come from.
//
// Total sums the undiscounted list prices. DiscountTotal sums the
// effective per-unit prices. A percentage coupon takes its cut of
// DiscountTotal; a fixed coupon is capped at DiscountTotal so the grand
// total can never go negative.
func ComputeTotals(items []models.CartItem, coupon *Coupon) Totals {
	t := Totals{
		Total:         decimal.Zero,
		DiscountTotal: decimal.Zero,
		CouponSavings: decimal.Zero,
		GrandTotal:    decimal.Zero,
	}
	for i := range items {
		qty := decimal.NewFromInt(int64(items[i].Quantity))
		t.Total = t.Total.Add(items[i].UnitListPrice.Mul(qty))
		t.DiscountTotal = t.DiscountTotal.Add(items[i].UnitPrice.Mul(qty))
	}

	if coupon != nil {
		switch coupon.Type {
		case enums.CouponTypePercentage:
			t.CouponSavings = t.DiscountTotal.Mul(coupon.Discount).Div(decimal.NewFromInt(100))
		case enums.CouponTypeFixed:
			t.CouponSavings = decimal.Min(coupon.Discount, t.DiscountTotal)
		}
	}

	t.GrandTotal = t.DiscountTotal.Sub(t.CouponSavings)
	if t.GrandTotal.IsNegative() {
		t.GrandTotal = decimal.Zero
	}
	return t
}

// LineTotal computes the effective amount for one cart line.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}
