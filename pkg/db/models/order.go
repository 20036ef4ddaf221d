package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	"github.com/rmarin-dev/shopline-backend/pkg/types"
)

// Order is the purchase record produced from a cart at checkout.
// Fulfillment status and payment status advance independently.
type Order struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Reference string    `gorm:"column:reference;not null;uniqueIndex:idx_orders_reference"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	User      *User     `gorm:"foreignKey:UserID"`

	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`

	ShippingAddress types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal decimal.Decimal `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	CouponCode    *string         `gorm:"column:coupon_code"`
	CouponSavings decimal.Decimal `gorm:"column:coupon_savings;type:numeric(12,2);not null;default:0"`
	GrandTotal    decimal.Decimal `gorm:"column:grand_total;type:numeric(12,2);not null"`

	PaymentIntentID   *string    `gorm:"column:payment_intent_id;uniqueIndex:idx_orders_payment_intent"`
	PayerEmail        *string    `gorm:"column:payer_email"`
	PaidAt            *time.Time `gorm:"column:paid_at"`
	PaymentDueAt      *time.Time `gorm:"column:payment_due_at"`
	CancelledAt       *time.Time `gorm:"column:cancelled_at"`
	DeliveredAt       *time.Time `gorm:"column:delivered_at"`
	EstimatedDelivery *time.Time `gorm:"column:estimated_delivery"`

	Items          []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TrackingEvents []OrderTrackingEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem captures the immutable snapshot of each purchased line.
type OrderItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid"`

	Name          string          `gorm:"column:name;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitListPrice decimal.Decimal `gorm:"column:unit_list_price;type:numeric(12,2);not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderTrackingEvent is one row of the order's status history timeline.
type OrderTrackingEvent struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`

	Status   enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Location *string           `gorm:"column:location"`
	ActorID  *uuid.UUID        `gorm:"column:actor_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
