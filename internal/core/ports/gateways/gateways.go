package gateways

import "context"

// CheckoutSessionParams describes one outbound checkout session. Metadata is
// attached to both the session and its payment object so the grant facts
// survive whichever of the two the processor surfaces at webhook time.
type CheckoutSessionParams struct {
	AmountCents int64
	Currency    string
	Description string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the processor's handle for a created session.
type CheckoutSession struct {
	ID  string
	URL string // hosted payment page redirect
}

// PaymentGateway abstracts the external payment processor for outbound calls.
// Webhook signature verification is handled separately at the intake layer
// against the raw request body.
type PaymentGateway interface {
	// CreateCheckoutSession creates a hosted checkout session.
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)

	// GetPaymentIntentMetadata fetches the metadata map of a payment intent.
	// Used as the secondary lookup when a charge event carries no metadata.
	GetPaymentIntentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error)
}

// ArtworkPinner abstracts the object storage / IPFS pinning service.
type ArtworkPinner interface {
	// PinURL asks the pinning service to fetch and pin the content behind
	// url, returning the resulting content id.
	PinURL(ctx context.Context, url string, name string) (string, error)
}
