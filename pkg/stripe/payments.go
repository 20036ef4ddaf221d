package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// PaymentIntent is the gateway view consumed by the orders service.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	ReceiptEmail string
}

// Succeeded reports whether the gateway considers the payment complete.
func (p *PaymentIntent) Succeeded() bool {
	return p != nil && p.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// CreatePaymentIntent opens a card payment for the given order amount.
// The order reference travels in metadata so webhook events can be
// traced back without a database lookup.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, orderRef string) (*PaymentIntent, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount.Shift(2).Round(0).IntPart()),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_reference", orderRef)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating payment intent: %w", err)
	}

	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

// GetPaymentIntent fetches the current gateway state of a payment.
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("fetching payment intent %s: %w", id, err)
	}

	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		ReceiptEmail: intent.ReceiptEmail,
	}, nil
}

// CancelPaymentIntent voids an open payment, used when unpaid card
// orders expire.
func (c *Client) CancelPaymentIntent(ctx context.Context, id string) error {
	if c == nil || c.api == nil {
		return errors.New("stripe client not initialized")
	}
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(id, params); err != nil {
		return fmt.Errorf("cancelling payment intent %s: %w", id, err)
	}
	return nil
}
