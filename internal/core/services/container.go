package services

import (
	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/platform/config"
	"github.com/cardforge/cardforge-backend/internal/utils"
)

// NewServiceContainer wires up all services with their repository and gateway
// dependencies.
func NewServiceContainer(
	repos *portsrepo.RepositoryProvider,
	payments gateways.PaymentGateway,
	pinner gateways.ArtworkPinner,
	posthog *utils.PosthogClientWrapper,
	cfg *config.Config,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo)
	container.Card = NewCardService(repos.CardRepo, pinner, posthog)
	container.Listing = NewListingService(repos.ListingRepo, repos.CardRepo, posthog)
	container.Credits = NewCreditsService(repos.CreditsRepo)
	container.Checkout = NewCheckoutService(payments, CheckoutConfig{
		CreditsPerUSD: cfg.CreditsPerUSD,
		PacksUSD:      cfg.CreditPacksUSD,
		Currency:      cfg.PriceCurrency,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	})

	// Token service depends on the user service for refresh token validation.
	container.Token = NewTokenService(cfg, container.User)
	container.GoogleOAuth = NewGoogleOAuthService(cfg)

	return container
}
