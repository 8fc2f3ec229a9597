package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/dto"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// creditsHandler handles balance, ledger history and checkout requests.
type creditsHandler struct {
	creditsService  portssvc.CreditsSvcFacade
	checkoutService portssvc.CheckoutSvcFacade
}

// newCreditsHandler creates a new creditsHandler.
func newCreditsHandler(cs portssvc.CreditsSvcFacade, chs portssvc.CheckoutSvcFacade) *creditsHandler {
	return &creditsHandler{
		creditsService:  cs,
		checkoutService: chs,
	}
}

// registerCreditsRoutes registers balance, history and checkout routes.
func registerCreditsRoutes(rg *gin.RouterGroup, creditsService portssvc.CreditsSvcFacade, checkoutService portssvc.CheckoutSvcFacade) {
	h := newCreditsHandler(creditsService, checkoutService)

	credits := rg.Group("/credits")
	{
		credits.GET("/balance", h.getBalance)
		credits.GET("/history", h.getHistory)
		credits.GET("/packs", h.getPacks)
		credits.POST("/checkout", h.createCheckout)
	}
}

// getBalance godoc
// @Summary Get credit balance
// @Description Returns the authenticated user's current spendable credits
// @Tags credits
// @Produce json
// @Success 200 {object} dto.BalanceResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /credits/balance [get]
func (h *creditsHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	credits, err := h.creditsService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to get balance", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve balance"})
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{AccountID: userID, Credits: credits})
}

// getHistory godoc
// @Summary Get ledger history
// @Description Returns a cursor-paginated page of the authenticated user's
// @Description ledger entries, newest first
// @Tags credits
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param pageToken query string false "Cursor from a previous page"
// @Success 200 {object} dto.LedgerHistoryResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /credits/history [get]
func (h *creditsHandler) getHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	pageToken := c.Query("pageToken")

	entries, nextToken, err := h.creditsService.ListLedgerEntries(c.Request.Context(), userID, limit, pageToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid page token"})
			return
		}
		logger.Error("Failed to list ledger entries", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve history"})
		return
	}

	c.JSON(http.StatusOK, dto.LedgerHistoryResponse{Entries: dto.ToLedgerEntryResponseSlice(entries), NextToken: nextToken})
}

// getPacks godoc
// @Summary List credit packs
// @Description Returns the allow-list of purchasable credit pack prices in USD
// @Tags credits
// @Produce json
// @Success 200 {object} map[string][]int64
// @Security BearerAuth
// @Router /credits/packs [get]
func (h *creditsHandler) getPacks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packsUSD": h.checkoutService.AllowedPacks()})
}

// createCheckout godoc
// @Summary Start a credits purchase
// @Description Creates a checkout session for a credit pack and returns the
// @Description hosted payment page URL. Credits are granted only after the
// @Description payment processor confirms the payment via webhook.
// @Tags credits
// @Accept json
// @Produce json
// @Param checkout body dto.CreateCheckoutRequest true "Credit pack"
// @Success 200 {object} dto.CreateCheckoutResponse
// @Failure 400 {object} ErrorResponse "Pack not offered"
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Payment processor unavailable"
// @Security BearerAuth
// @Router /credits/checkout [post]
func (h *creditsHandler) createCheckout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	redirectURL, err := h.checkoutService.CreateCreditsCheckout(c.Request.Context(), userID, req.PackUSD)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Requested pack is not offered"})
			return
		}
		logger.Error("Failed to create checkout session", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Payment processor unavailable"})
		return
	}

	c.JSON(http.StatusOK, dto.CreateCheckoutResponse{RedirectURL: redirectURL})
}
