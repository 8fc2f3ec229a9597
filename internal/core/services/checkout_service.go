package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

// CheckoutConfig carries the credit economy settings for the purchase intent
// issuer.
type CheckoutConfig struct {
	CreditsPerUSD int64
	PacksUSD      []int64
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// CheckoutService issues purchase intents against the payment gateway. It
// never touches local storage: the grant is encoded into session metadata and
// applied later by the reconciliation engine when the webhook confirms the
// payment.
type CheckoutService struct {
	gateway gateways.PaymentGateway
	cfg     CheckoutConfig
}

func NewCheckoutService(gateway gateways.PaymentGateway, cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{gateway: gateway, cfg: cfg}
}

// AllowedPacks returns the configured allow-list of pack prices in USD.
func (s *CheckoutService) AllowedPacks() []int64 {
	packs := make([]int64, len(s.cfg.PacksUSD))
	copy(packs, s.cfg.PacksUSD)
	return packs
}

// CreateCreditsCheckout validates the requested pack and creates a checkout
// session carrying the intended grant in its metadata. Returns the hosted
// payment page URL for the client to redirect to.
func (s *CheckoutService) CreateCreditsCheckout(ctx context.Context, userID string, packUSD int64) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	allowed := false
	for _, p := range s.cfg.PacksUSD {
		if p == packUSD {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("%w: %d USD is not an offered credit pack", apperrors.ErrValidation, packUSD)
	}

	// Price arithmetic stays in decimal until the final minor-unit amount.
	usd := decimal.NewFromInt(packUSD)
	amountCents := usd.Mul(decimal.NewFromInt(100)).IntPart()
	credits := usd.Mul(decimal.NewFromInt(s.cfg.CreditsPerUSD)).IntPart()

	params := gateways.CheckoutSessionParams{
		AmountCents: amountCents,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("%d CardForge credits", credits),
		Metadata: map[string]string{
			domain.MetaKeyKind:    domain.CheckoutKindCreditsPurchase,
			domain.MetaKeyUserID:  userID,
			domain.MetaKeyCredits: strconv.FormatInt(credits, 10),
			domain.MetaKeyUSD:     strconv.FormatInt(packUSD, 10),
		},
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		logger.Error("Failed to create checkout session", "error", err, "user_id", userID, "pack_usd", packUSD)
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	logger.Info("Created credits checkout session",
		"session_id", session.ID, "user_id", userID, "pack_usd", packUSD, "credits", credits)
	return session.URL, nil
}
