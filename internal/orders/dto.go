package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
	"github.com/rmarin-dev/shopline-backend/pkg/types"
)

// ItemInput is one requested product line at checkout. Prices are never
// taken from the client; only the product reference and quantity are.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// CouponInput optionally carries the cart's coupon into the order totals.
type CouponInput struct {
	Code     string          `json:"code" validate:"required,min=2,max=40"`
	Type     string          `json:"type" validate:"required"`
	Discount decimal.Decimal `json:"discount" validate:"required"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	Items           []ItemInput   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	PaymentMethod   string        `json:"payment_method" validate:"required"`
	Coupon          *CouponInput  `json:"coupon,omitempty"`
}

// ConfirmPaymentRequest reports a completed card payment back from the
// client. The webhook path reaches the same transition. UserID and Admin
// come from the authenticated request, never from the body.
type ConfirmPaymentRequest struct {
	PaymentIntentID string    `json:"payment_intent_id" validate:"required"`
	OrderID         uuid.UUID `json:"order_id" validate:"required"`
	UserID          uuid.UUID `json:"-"`
	Admin           bool      `json:"-"`
}

// UpdateStatusRequest is the admin payload for advancing an order.
type UpdateStatusRequest struct {
	Status            *string    `json:"status,omitempty"`
	PaymentStatus     *string    `json:"payment_status,omitempty"`
	Location          *string    `json:"location,omitempty" validate:"omitempty,max=200"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// OrderItemDTO is one snapshotted purchase line.
type OrderItemDTO struct {
	ProductID     *uuid.UUID      `json:"product_id,omitempty"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitListPrice decimal.Decimal `json:"unit_list_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// TrackingEventDTO is one entry of the order's audit trail.
type TrackingEventDTO struct {
	Status    string    `json:"status"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderDTO is the full order representation.
type OrderDTO struct {
	ID                uuid.UUID          `json:"id"`
	Reference         string             `json:"reference"`
	UserID            uuid.UUID          `json:"user_id"`
	Status            string             `json:"status"`
	PaymentStatus     string             `json:"payment_status"`
	PaymentMethod     string             `json:"payment_method"`
	ShippingAddress   types.Address      `json:"shipping_address"`
	Items             []OrderItemDTO     `json:"items"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	DiscountTotal     decimal.Decimal    `json:"discount_total"`
	CouponCode        *string            `json:"coupon_code,omitempty"`
	CouponSavings     decimal.Decimal    `json:"coupon_savings"`
	GrandTotal        decimal.Decimal    `json:"grand_total"`
	PaymentIntentID   *string            `json:"payment_intent_id,omitempty"`
	PayerEmail        *string            `json:"payer_email,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
	PaymentDueAt      *time.Time         `json:"payment_due_at,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
	DeliveredAt       *time.Time         `json:"delivered_at,omitempty"`
	EstimatedDelivery *time.Time         `json:"estimated_delivery,omitempty"`
	TrackingEvents    []TrackingEventDTO `json:"tracking_events"`
	CreatedAt         time.Time          `json:"created_at"`
}

// CheckoutResponse pairs the created order with the gateway secret the
// client needs to complete a card payment.
type CheckoutResponse struct {
	Order        *OrderDTO `json:"order"`
	ClientSecret string    `json:"client_secret,omitempty"`
}

// TrackingDTO is the public tracking view keyed by order reference.
type TrackingDTO struct {
	Reference         string             `json:"reference"`
	Status            string             `json:"status"`
	EstimatedDelivery *time.Time         `json:"estimated_delivery,omitempty"`
	TrackingEvents    []TrackingEventDTO `json:"tracking_events"`
}

// ListResult pairs a page of orders with its pagination metadata.
type ListResult struct {
	Items []OrderDTO      `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// FromModel maps a stored order onto its DTO.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                o.ID,
		Reference:         o.Reference,
		UserID:            o.UserID,
		Status:            o.Status.String(),
		PaymentStatus:     o.PaymentStatus.String(),
		PaymentMethod:     o.PaymentMethod.String(),
		ShippingAddress:   o.ShippingAddress,
		Items:             make([]OrderItemDTO, 0, len(o.Items)),
		Subtotal:          o.Subtotal,
		DiscountTotal:     o.DiscountTotal,
		CouponCode:        o.CouponCode,
		CouponSavings:     o.CouponSavings,
		GrandTotal:        o.GrandTotal,
		PaymentIntentID:   o.PaymentIntentID,
		PayerEmail:        o.PayerEmail,
		PaidAt:            o.PaidAt,
		PaymentDueAt:      o.PaymentDueAt,
		CancelledAt:       o.CancelledAt,
		DeliveredAt:       o.DeliveredAt,
		EstimatedDelivery: o.EstimatedDelivery,
		TrackingEvents:    trackingEvents(o.TrackingEvents),
		CreatedAt:         o.CreatedAt,
	}
	for i := range o.Items {
		item := &o.Items[i]
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitListPrice: item.UnitListPrice,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal,
		})
	}
	return dto
}

// FromModels maps a slice of stored orders onto DTOs.
func FromModels(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}

func trackingEvents(events []models.OrderTrackingEvent) []TrackingEventDTO {
	out := make([]TrackingEventDTO, 0, len(events))
	for i := range events {
		out = append(out, TrackingEventDTO{
			Status:    events[i].Status.String(),
			Location:  events[i].Location,
			CreatedAt: events[i].CreatedAt,
		})
	}
	return out
}
