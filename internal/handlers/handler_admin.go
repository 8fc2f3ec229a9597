package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/dto"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// adminHandler handles administrator-only operations.
type adminHandler struct {
	creditsService portssvc.CreditsSvcFacade
	cardService    portssvc.CardSvcFacade
}

// newAdminHandler creates a new adminHandler.
func newAdminHandler(cs portssvc.CreditsSvcFacade, cards portssvc.CardSvcFacade) *adminHandler {
	return &adminHandler{
		creditsService: cs,
		cardService:    cards,
	}
}

// registerAdminRoutes registers the admin subgroup. The group requires an
// authenticated administrator.
func registerAdminRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := newAdminHandler(services.Credits, services.Card)

	admin := rg.Group("/admin", middleware.RequireAdmin(services.User))
	{
		admin.POST("/credits/adjust", h.adjustCredits)
		admin.POST("/credits/reconcile", h.reconcileBalances)
		admin.PUT("/cards/:id/featured", h.setCardFeatured)
	}
}

// adjustCredits godoc
// @Summary Grant credits to an account
// @Description Applies an administrative credit grant outside the purchase flow
// @Tags admin
// @Accept json
// @Produce json
// @Param adjustment body dto.AdjustCreditsRequest true "Adjustment"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /admin/credits/adjust [post]
func (h *adminHandler) adjustCredits(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	adminUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	if err := h.creditsService.AdminAdjust(c.Request.Context(), req.AccountID, req.Credits, req.Note, adminUserID); err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid adjustment"})
			return
		}
		logger.Error("Failed to apply credit adjustment", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to apply adjustment"})
		return
	}

	c.Status(http.StatusNoContent)
}

// reconcileBalances godoc
// @Summary Reconcile balances from the ledger
// @Description Recomputes every account's balance from the ledger sum and
// @Description overwrites drifted projections
// @Tags admin
// @Produce json
// @Success 200 {object} dto.ReconcileResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /admin/credits/reconcile [post]
func (h *adminHandler) reconcileBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	result, err := h.creditsService.ReconcileBalances(c.Request.Context())
	if err != nil {
		logger.Error("Reconciliation sweep failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ReconcileResponse{
		AccountsChecked:   result.AccountsChecked,
		BalancesRewritten: result.BalancesRewritten,
	})
}

// setFeaturedRequest toggles a card's featured flag.
type setFeaturedRequest struct {
	Featured *bool `json:"featured" binding:"required"`
}

// setCardFeatured godoc
// @Summary Feature or unfeature a card
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Card ID"
// @Param featured body setFeaturedRequest true "Featured flag"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /admin/cards/{id}/featured [put]
func (h *adminHandler) setCardFeatured(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	adminUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req setFeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	if err := h.cardService.SetFeatured(c.Request.Context(), c.Param("id"), *req.Featured, adminUserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
			return
		}
		logger.Error("Failed to set featured flag", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update card"})
		return
	}

	c.Status(http.StatusNoContent)
}
