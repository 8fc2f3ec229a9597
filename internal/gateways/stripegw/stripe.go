package stripegw

import (
	"context"
	"fmt"

	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeGateway implements gateways.PaymentGateway against the Stripe API.
type StripeGateway struct {
	api *client.API
}

// New creates a Stripe-backed payment gateway with its own API client, so the
// secret key is not installed process-globally.
func New(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// CreateCheckoutSession creates a hosted checkout session with a single line
// item. The metadata map is attached to both the session and its payment
// intent: whichever object the webhook surfaces later carries the grant facts.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p gateways.CheckoutSessionParams) (*gateways.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
		params.PaymentIntentData.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &gateways.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// GetPaymentIntentMetadata fetches a payment intent's metadata map. The
// webhook handler uses this as the secondary lookup when a charge event
// arrives without the checkout metadata.
func (g *StripeGateway) GetPaymentIntentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent %s: %w", paymentIntentID, err)
	}
	return pi.Metadata, nil
}
