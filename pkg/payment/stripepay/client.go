package stripepay

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/pkg/logger"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// Intent is the part of a payment intent the checkout cares about.
type Intent struct {
	ID          string
	Status      string
	AmountCents int64
	Currency    string
}

// Verifier confirms that an existing payment intent covers an order.
type Verifier interface {
	Verify(ctx context.Context, intentID string, expectedCents int64) (*Intent, error)
}

type intentGetter interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Client verifies payment intents against the Stripe API. Charges are created
// by the storefront; this side only reads them back.
type Client struct {
	intents  intentGetter
	currency string
}

// NewClient returns nil when no secret key is configured.
func NewClient(cfg config.PaymentConfig) *Client {
	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, payment intents will not be verified", nil)
		return nil
	}
	return &Client{
		intents:  &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.StripeSecretKey},
		currency: strings.ToLower(cfg.Currency),
	}
}

func (c *Client) Verify(ctx context.Context, intentID string, expectedCents int64) (*Intent, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.intents.Get(intentID, params)
	if err != nil {
		logger.Error("Failed to fetch payment intent", err, map[string]interface{}{
			"payment_intent_id": intentID,
		})
		return nil, fmt.Errorf("fetch payment intent: %w", err)
	}

	intent := &Intent{
		ID:          pi.ID,
		Status:      string(pi.Status),
		AmountCents: pi.Amount,
		Currency:    string(pi.Currency),
	}

	if err := check(intent, expectedCents, c.currency); err != nil {
		logger.Warn("Payment intent rejected", map[string]interface{}{
			"payment_intent_id": intentID,
			"status":            intent.Status,
			"amount":            intent.AmountCents,
			"expected":          expectedCents,
			"reason":            err.Error(),
		})
		return intent, err
	}

	logger.Info("Payment intent verified", map[string]interface{}{
		"payment_intent_id": intentID,
		"amount":            intent.AmountCents,
	})
	return intent, nil
}

func check(intent *Intent, expectedCents int64, currency string) error {
	if intent.Status != string(stripe.PaymentIntentStatusSucceeded) {
		return ErrIntentNotSucceeded
	}
	if intent.AmountCents != expectedCents {
		return ErrAmountMismatch
	}
	if currency != "" && !strings.EqualFold(intent.Currency, currency) {
		return ErrCurrencyMismatch
	}
	return nil
}

// ToCents converts a two-decimal amount to the smallest currency unit.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
