package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/logger"
	"github.com/rmarin-dev/shopline-backend/pkg/redis"
)

// eventDedupeTTL bounds how long a processed event id blocks replays.
// Stripe retries failed deliveries for up to three days.
const eventDedupeTTL = 72 * time.Hour

const dedupeScope = "stripe-event"

type orderPayments interface {
	MarkPaymentSucceeded(ctx context.Context, intentID, receiptEmail string) error
	MarkPaymentFailed(ctx context.Context, intentID string) error
}

// Handler applies verified Stripe events to the order lifecycle.
// Deliveries are deduplicated by event id so webhook retries and
// double-sends never double-apply.
type Handler struct {
	orders orderPayments
	idem   redis.IdempotencyStore
	logg   *logger.Logger
}

// HandlerParams bundles the handler's dependencies.
type HandlerParams struct {
	Orders orderPayments
	Idem   redis.IdempotencyStore
	Logger *logger.Logger
}

// NewHandler constructs a webhook handler.
func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order payments service is required")
	}
	if params.Idem == nil {
		return nil, fmt.Errorf("idempotency store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Handler{orders: params.Orders, idem: params.Idem, logg: params.Logger}, nil
}

// HandleEvent routes one verified event. Unhandled event types are
// acknowledged without action so Stripe stops redelivering them.
func (h *Handler) HandleEvent(ctx context.Context, event stripe.Event) error {
	key := h.idem.IdempotencyKey(dedupeScope, event.ID)
	first, err := h.idem.SetNX(ctx, key, "1", eventDedupeTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve webhook event")
	}
	if !first {
		ctx = h.logg.WithField(ctx, "event_id", event.ID)
		h.logg.Info(ctx, "duplicate stripe event ignored")
		return nil
	}

	if err := h.dispatch(ctx, event); err != nil {
		// release the reservation so the retry can reprocess
		_ = h.idem.Del(ctx, key)
		return err
	}
	return nil
}

func (h *Handler) dispatch(ctx context.Context, event stripe.Event) error {
	ctx = h.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := parseIntent(event)
		if err != nil {
			return err
		}
		if err := h.orders.MarkPaymentSucceeded(ctx, intent.ID, intent.ReceiptEmail); err != nil {
			if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
				h.logg.Warn(ctx, "payment succeeded for unknown order")
				return nil
			}
			return err
		}
		h.logg.Info(ctx, "payment confirmed from webhook")
		return nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := parseIntent(event)
		if err != nil {
			return err
		}
		if err := h.orders.MarkPaymentFailed(ctx, intent.ID); err != nil {
			if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
				h.logg.Warn(ctx, "payment failed for unknown order")
				return nil
			}
			return err
		}
		h.logg.Info(ctx, "payment failure recorded from webhook")
		return nil

	default:
		h.logg.Info(ctx, "stripe event type not handled")
		return nil
	}
}

func parseIntent(event stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent payload")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event payload missing payment intent id")
	}
	return &intent, nil
}
