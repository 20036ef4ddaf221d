package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/internal/cart"
	"github.com/rmarin-dev/shopline-backend/internal/products"
	"github.com/rmarin-dev/shopline-backend/pkg/config"
	"github.com/rmarin-dev/shopline-backend/pkg/db"
	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/mail"
	"github.com/rmarin-dev/shopline-backend/pkg/pagination"
	"github.com/rmarin-dev/shopline-backend/pkg/stripe"
)

// Service defines the behavior needed by the order controllers, the
// stripe webhook handler and the expiry cron job.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*CheckoutResponse, error)
	ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*OrderDTO, error)
	MarkPaymentSucceeded(ctx context.Context, intentID, receiptEmail string) error
	MarkPaymentFailed(ctx context.Context, intentID string) error
	GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListAll(ctx context.Context, params pagination.Params) (*ListResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Track(ctx context.Context, reference string) (*TrackingDTO, error)
	ExpirePendingPayments(ctx context.Context, now time.Time) (int, error)
}

type paymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, orderRef string) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) error
}

type cartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	db      *db.Client
	gateway paymentGateway
	carts   cartClearer
	mailer  mail.Sender
	cfg     config.OrdersConfig
}

// ServiceParams bundles the dependencies required to build an order service.
type ServiceParams struct {
	DB      *db.Client
	Gateway paymentGateway
	Carts   cartClearer
	Mailer  mail.Sender
	Config  config.OrdersConfig
}

// NewService constructs an order service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Config.PaymentTTL <= 0 {
		return nil, fmt.Errorf("payment TTL must be positive")
	}
	return &service{
		db:      params.DB,
		gateway: params.Gateway,
		carts:   params.Carts,
		mailer:  params.Mailer,
		cfg:     params.Config,
	}, nil
}

// Create places an order from the requested items. Stock is reserved for
// every payment method with a conditional decrement inside the same
// transaction; a failed reservation or gateway call rolls everything back.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*CheckoutResponse, error) {
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	if missing := req.ShippingAddress.Validate(); missing != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is missing "+missing)
	}
	coupon, err := parseCoupon(req.Coupon)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := &CheckoutResponse{}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := NewRepository(tx)
		productsRepo := products.NewRepository(tx)

		lines := make([]models.CartItem, 0, len(req.Items))
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, input := range req.Items {
			product, err := productsRepo.FindByID(ctx, input.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, product.Name+" is not available")
			}
			if err := productsRepo.DecrementStock(ctx, product.ID, input.Quantity); err != nil {
				if errors.Is(err, products.ErrInsufficientStock) {
					return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for "+product.Name)
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
			}

			unit := product.EffectivePrice()
			lines = append(lines, models.CartItem{
				Quantity:      input.Quantity,
				UnitListPrice: product.ListPrice,
				UnitPrice:     unit,
			})
			productID := product.ID
			items = append(items, models.OrderItem{
				ProductID:     &productID,
				Name:          product.Name,
				Quantity:      input.Quantity,
				UnitListPrice: product.ListPrice,
				UnitPrice:     unit,
				LineTotal:     cart.LineTotal(unit, input.Quantity),
			})
		}

		totals := cart.ComputeTotals(lines, coupon)

		order := &models.Order{
			Reference:       NewReference(now),
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentMethod:   method,
			ShippingAddress: req.ShippingAddress,
			Subtotal:        totals.Total,
			DiscountTotal:   totals.DiscountTotal,
			CouponSavings:   totals.CouponSavings,
			GrandTotal:      totals.GrandTotal,
			Items:           items,
			TrackingEvents: []models.OrderTrackingEvent{{
				Status:   enums.OrderStatusPending,
				Location: ptr("Order placed"),
			}},
		}
		if coupon != nil {
			order.CouponCode = &coupon.Code
		}

		if method.RequiresGateway() {
			intent, err := s.gateway.CreatePaymentIntent(ctx, totals.GrandTotal, "usd", order.Reference)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "create payment intent")
			}
			order.PaymentIntentID = &intent.ID
			due := now.Add(s.cfg.PaymentTTL)
			order.PaymentDueAt = &due
			out.ClientSecret = intent.ClientSecret
		}

		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store order")
		}
		out.Order = FromModel(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// checkout empties the cart; a failure here does not undo the order
	if err := s.carts.Clear(ctx, userID); err != nil {
		return out, nil
	}
	return out, nil
}

// ConfirmPayment applies a succeeded gateway payment to the order on
// behalf of its owner. Safe to call more than once: an already-paid order
// is returned untouched, and a failed attempt followed by a successful
// retry confirms normally.
func (s *service) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*OrderDTO, error) {
	intent, err := s.gateway.GetPaymentIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment intent")
	}
	if !intent.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment has not succeeded")
	}

	var out *OrderDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindByID(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if !req.Admin && order.UserID != req.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.PaymentIntentID == nil || *order.PaymentIntentID != intent.ID {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment does not belong to this order")
		}

		updated, err := s.applyPaymentSuccess(ctx, repo, order, intent.ReceiptEmail)
		if err != nil {
			return err
		}
		out = FromModel(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPaymentSucceeded is the webhook entry point: resolve the order by
// intent and run the same idempotent confirmation path.
func (s *service) MarkPaymentSucceeded(ctx context.Context, intentID, receiptEmail string) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindByPaymentIntent(ctx, intentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment intent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		_, err = s.applyPaymentSuccess(ctx, repo, order, receiptEmail)
		return err
	})
}

// MarkPaymentFailed flags an open order after the gateway reports a
// failed payment attempt. Stock stays reserved until the expiry job runs.
func (s *service) MarkPaymentFailed(ctx context.Context, intentID string) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindByPaymentIntent(ctx, intentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment intent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if order.PaymentStatus != enums.PaymentStatusPending {
			return nil
		}
		return repo.UpdateFields(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
		})
	})
}

// paymentOpen reports whether a payment can still be completed. A failed
// attempt keeps the order open for a retry until the expiry job closes it.
func paymentOpen(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusPending || status == enums.PaymentStatusFailed
}

// applyPaymentSuccess performs the transition to paid exactly once. Stock
// was reserved at creation, so nothing is decremented here.
func (s *service) applyPaymentSuccess(ctx context.Context, repo *Repository, order *models.Order, receiptEmail string) (*models.Order, error) {
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return order, nil
	}
	if !paymentOpen(order.PaymentStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"payment is "+order.PaymentStatus.String()+" and cannot be confirmed")
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"status":         enums.OrderStatusProcessing,
		"paid_at":        now,
	}
	if receiptEmail != "" {
		updates["payer_email"] = receiptEmail
	}
	if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment state")
	}
	event := &models.OrderTrackingEvent{
		OrderID:  order.ID,
		Status:   enums.OrderStatusProcessing,
		Location: ptr("Payment confirmed"),
	}
	if err := repo.AppendTrackingEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store tracking event")
	}

	order.PaymentStatus = enums.PaymentStatusPaid
	order.Status = enums.OrderStatusProcessing
	order.PaidAt = &now
	if receiptEmail != "" {
		order.PayerEmail = &receiptEmail
	}
	order.TrackingEvents = append(order.TrackingEvents, *event)

	if receiptEmail != "" {
		// confirmation mail failures are not checkout failures
		_ = s.mailer.Send(ctx, mail.OrderConfirmationMessage(receiptEmail, order.Reference, order.GrandTotal.StringFixed(2)))
	}
	return order, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := NewRepository(s.db.DB()).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return FromModel(order), nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	list, total, err := NewRepository(s.db.DB()).ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return &ListResult{Items: FromModels(list), Meta: pagination.MetaFor(params, total)}, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*ListResult, error) {
	list, total, err := NewRepository(s.db.DB()).ListAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return &ListResult{Items: FromModels(list), Meta: pagination.MetaFor(params, total)}, nil
}

// UpdateStatus is the admin override: provided states are applied
// verbatim, a location appends a tracking entry.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	var out *OrderDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}

		now := time.Now().UTC()
		updates := map[string]any{}
		status := order.Status
		if req.Status != nil {
			parsed, err := enums.ParseOrderStatus(*req.Status)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
			}
			status = parsed
			updates["status"] = parsed
			switch parsed {
			case enums.OrderStatusDelivered:
				updates["delivered_at"] = now
			case enums.OrderStatusCancelled:
				updates["cancelled_at"] = now
			}
		}
		if req.PaymentStatus != nil {
			parsed, err := enums.ParsePaymentStatus(*req.PaymentStatus)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
			}
			updates["payment_status"] = parsed
		}
		if req.EstimatedDelivery != nil {
			updates["estimated_delivery"] = *req.EstimatedDelivery
		}
		if len(updates) > 0 {
			if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store order status")
			}
		}
		if req.Location != nil {
			event := &models.OrderTrackingEvent{
				OrderID:  order.ID,
				Status:   status,
				Location: req.Location,
				ActorID:  &actorID,
			}
			if err := repo.AppendTrackingEvent(ctx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store tracking event")
			}
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		out = FromModel(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the order outright. Admin cleanup; stock is not
// restored.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := NewRepository(s.db.DB()).Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	return nil
}

// Track returns the public tracking view for an order reference.
func (s *service) Track(ctx context.Context, reference string) (*TrackingDTO, error) {
	order, err := NewRepository(s.db.DB()).FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return &TrackingDTO{
		Reference:         order.Reference,
		Status:            order.Status.String(),
		EstimatedDelivery: order.EstimatedDelivery,
		TrackingEvents:    trackingEvents(order.TrackingEvents),
	}, nil
}

// ExpirePendingPayments closes card orders whose payment window lapsed,
// whether the last attempt is still pending or already failed: the payment
// moves to expired, fulfillment to cancelled, reserved stock goes back on
// the shelf and the open intent is voided. Returns how many orders were
// expired.
func (s *service) ExpirePendingPayments(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	batch, err := NewRepository(s.db.DB()).FindExpiredPending(ctx, now, 100)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find expired orders")
	}

	for i := range batch {
		order := &batch[i]
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := NewRepository(tx)
			productsRepo := products.NewRepository(tx)

			current, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return err
			}
			// re-check inside the transaction; payment may have landed
			if !paymentOpen(current.PaymentStatus) {
				return nil
			}

			for _, item := range current.Items {
				if item.ProductID == nil {
					continue
				}
				if err := productsRepo.RestoreStock(ctx, *item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
			if err := repo.UpdateFields(ctx, current.ID, map[string]any{
				"payment_status": enums.PaymentStatusExpired,
				"status":         enums.OrderStatusCancelled,
				"cancelled_at":   now,
			}); err != nil {
				return err
			}
			if err := repo.AppendTrackingEvent(ctx, &models.OrderTrackingEvent{
				OrderID:  current.ID,
				Status:   enums.OrderStatusCancelled,
				Location: ptr("Payment window expired"),
			}); err != nil {
				return err
			}
			expired++

			if current.PaymentIntentID != nil {
				// best effort; an already-closed intent is fine
				_ = s.gateway.CancelPaymentIntent(ctx, *current.PaymentIntentID)
			}
			return nil
		})
		if err != nil {
			return expired, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expire order")
		}
	}
	return expired, nil
}

func parseCoupon(input *CouponInput) (*cart.Coupon, error) {
	if input == nil {
		return nil, nil
	}
	couponType, err := enums.ParseCouponType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown coupon type")
	}
	if input.Discount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon discount cannot be negative")
	}
	if couponType == enums.CouponTypePercentage && input.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	return &cart.Coupon{
		Code:     input.Code,
		Type:     couponType,
		Discount: input.Discount,
	}, nil
}

func ptr[T any](v T) *T {
	return &v
}
