package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/cardforge/cardforge-backend/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// maxWebhookBodyBytes bounds the raw payload read before verification.
const maxWebhookBodyBytes = 1 << 16

// WebhookHandler is the single intake point for payment processor events.
// Signature verification runs against the raw body before any parsing; the
// grant itself is delegated to the reconciliation engine, which absorbs
// redeliveries. Response codes steer the processor's retry behavior: 400
// rejects permanently, 500 requests a retry, 200 acknowledges.
type WebhookHandler struct {
	grants        portssvc.GrantApplier
	gateway       gateways.PaymentGateway
	webhookSecret string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(grants portssvc.GrantApplier, gateway gateways.PaymentGateway, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		grants:        grants,
		gateway:       gateway,
		webhookSecret: webhookSecret,
	}
}

// registerWebhookRoutes sets up the public webhook route. The route is rate
// limited but unauthenticated; the signature is the authentication.
func registerWebhookRoutes(rg *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer, gateway gateways.PaymentGateway) {
	h := NewWebhookHandler(services.Credits, gateway, cfg.StripeWebhookSecret)

	limitMiddleware := middleware.MustIPRateLimit(cfg.WebhookRateLimit)
	rg.POST("/webhooks/stripe", limitMiddleware, h.HandleStripeEvent)
}

// HandleStripeEvent godoc
// @Summary Payment processor webhook
// @Description Verifies the event signature against the raw body and applies
// @Description any resulting credits grant exactly once.
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse "Malformed or tampered event"
// @Failure 500 {object} ErrorResponse "Transient storage failure, retry"
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read request body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		// Tampered or misconfigured; a retry cannot succeed.
		logger.Warn("Webhook signature verification failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid signature"})
		return
	}

	facts, err := h.extractFacts(c, event)
	if err != nil {
		logger.Warn("Failed to extract purchase facts from event", slog.String("error", err.Error()), slog.String("event_type", string(event.Type)))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Malformed event payload"})
		return
	}

	if err := h.grants.ApplyPurchaseGrant(c.Request.Context(), facts); err != nil {
		if errors.Is(err, apperrors.ErrBalanceOutOfSync) {
			// Ledger entry is committed; a redelivery would be skipped as a
			// duplicate, so acknowledge and leave repair to the sweep.
			c.JSON(http.StatusOK, gin.H{"status": "accepted"})
			return
		}
		logger.Error("Failed to apply purchase grant", slog.String("error", err.Error()), slog.String("event_id", event.ID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// extractFacts normalizes the supported event shapes into PurchaseFacts.
// Unsupported event types yield empty facts, which the engine ignores.
func (h *WebhookHandler) extractFacts(c *gin.Context, event stripe.Event) (domain.PurchaseFacts, error) {
	facts := domain.PurchaseFacts{EventType: string(event.Type)}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return facts, err
		}
		fillFactsFromMetadata(&facts, session.Metadata)
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			facts.ReferenceID = session.PaymentIntent.ID
		} else {
			facts.ReferenceID = session.ID
		}
		facts.AmountUSDCents = session.AmountTotal

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return facts, err
		}
		fillFactsFromMetadata(&facts, pi.Metadata)
		facts.ReferenceID = pi.ID
		facts.AmountUSDCents = pi.Amount

	case "charge.succeeded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return facts, err
		}
		fillFactsFromMetadata(&facts, charge.Metadata)
		facts.AmountUSDCents = charge.Amount
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			facts.ReferenceID = charge.PaymentIntent.ID
			if facts.Kind == "" && h.gateway != nil {
				// Charge events often arrive without the checkout metadata;
				// look it up on the owning payment intent.
				metadata, err := h.gateway.GetPaymentIntentMetadata(c.Request.Context(), charge.PaymentIntent.ID)
				if err == nil {
					fillFactsFromMetadata(&facts, metadata)
				}
			}
		}
	}

	return facts, nil
}

// fillFactsFromMetadata copies the grant facts out of an event metadata map.
func fillFactsFromMetadata(facts *domain.PurchaseFacts, metadata map[string]string) {
	if metadata == nil {
		return
	}
	if facts.Kind == "" {
		facts.Kind = metadata[domain.MetaKeyKind]
	}
	if facts.AccountID == "" {
		facts.AccountID = metadata[domain.MetaKeyUserID]
	}
	if facts.Credits == 0 {
		if credits, err := strconv.ParseInt(metadata[domain.MetaKeyCredits], 10, 64); err == nil {
			facts.Credits = credits
		}
	}
}
