package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rmarin-dev/shopline-backend/pkg/logger"
)

type paymentExpirer interface {
	ExpirePendingPayments(ctx context.Context, now time.Time) (int, error)
}

// PaymentExpiryJobParams configure the unpaid order sweeper.
type PaymentExpiryJobParams struct {
	Logger *logger.Logger
	Orders paymentExpirer
}

// NewPaymentExpiryJob builds the job that cancels card orders whose
// payment window lapsed and returns their reserved stock.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &paymentExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		now:    time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg   *logger.Logger
	orders paymentExpirer
	now    func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpirePendingPayments(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire pending payments: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "expired", expired)
	j.logg.Info(logCtx, "payment expiry sweep complete")
	return nil
}
