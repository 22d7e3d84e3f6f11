package booking

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// PaymentProvider opens and cancels the payment that settles a pending reservation.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, reservationID string, amount float64, currency string) (string, error)
	CancelIntent(ctx context.Context, intentID string) error
}

// StripePaymentProvider creates Stripe payment intents. stripe.Key must be set.
type StripePaymentProvider struct {
	logger *zap.Logger
}

func NewStripePaymentProvider(logger *zap.Logger) *StripePaymentProvider {
	return &StripePaymentProvider{logger: logger}
}

func (p *StripePaymentProvider) CreateIntent(ctx context.Context, reservationID string, amount float64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("reservationId", reservationID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	p.logger.Debug("Payment intent created",
		zap.String("reservationId", reservationID),
		zap.String("intentId", pi.ID),
	)
	return pi.ID, nil
}

func (p *StripePaymentProvider) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return fmt.Errorf("cancel payment intent %s: %w", intentID, err)
	}
	return nil
}

// NoopPaymentProvider is used when no Stripe key is configured. The reservation
// is still created; payment happens through the confirm link.
type NoopPaymentProvider struct{}

func (NoopPaymentProvider) CreateIntent(context.Context, string, float64, string) (string, error) {
	return "", nil
}

func (NoopPaymentProvider) CancelIntent(context.Context, string) error { return nil }
