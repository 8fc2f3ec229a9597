package services

import "context"

// CheckoutSvcFacade is the purchase intent issuer: it creates an outbound
// checkout session for a credit pack and returns the hosted payment page URL.
// No local row is written at issuance time; the grant is deferred entirely to
// the webhook-driven reconciliation engine.
type CheckoutSvcFacade interface {
	// CreateCreditsCheckout validates packUSD against the configured
	// allow-list and creates a checkout session whose metadata carries the
	// intended grant. Returns the redirect URL.
	CreateCreditsCheckout(ctx context.Context, userID string, packUSD int64) (string, error)

	// AllowedPacks returns the configured allow-list of pack prices in USD.
	AllowedPacks() []int64
}
