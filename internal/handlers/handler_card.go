package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/dto"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// cardHandler handles HTTP requests related to cards.
type cardHandler struct {
	cardService portssvc.CardSvcFacade
}

// newCardHandler creates a new cardHandler.
func newCardHandler(cs portssvc.CardSvcFacade) *cardHandler {
	return &cardHandler{cardService: cs}
}

// RegisterCardRarityValidator installs the cardrarity binding validator used
// by CreateCardRequest. Called once at router setup.
func RegisterCardRarityValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("cardrarity", func(fl validator.FieldLevel) bool {
			switch domain.CardRarity(fl.Field().String()) {
			case domain.RarityCommon, domain.RarityRare, domain.RarityEpic, domain.RarityLegendary:
				return true
			}
			return false
		})
	}
}

// registerCardRoutes registers all card-related routes. View tracking is rate
// limited per client IP so a single browser cannot inflate counters.
func registerCardRoutes(rg *gin.RouterGroup, cardService portssvc.CardSvcFacade) {
	h := newCardHandler(cardService)

	viewLimit := middleware.MustIPRateLimit("60-M")

	cards := rg.Group("/cards")
	{
		cards.POST("", h.createCard)
		cards.GET("", h.listCards)
		cards.GET("/:id", h.getCard)
		cards.POST("/:id/view", viewLimit, h.trackView)
	}
}

// createCard godoc
// @Summary Create a card
// @Description Creates a new card owned by the authenticated user and pins
// @Description its artwork
// @Tags cards
// @Accept json
// @Produce json
// @Param card body dto.CreateCardRequest true "Card details"
// @Success 201 {object} dto.CardResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /cards [post]
func (h *cardHandler) createCard(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	card, err := h.cardService.CreateCard(c.Request.Context(), req, creatorUserID)
	if err != nil {
		logger.Error("Failed to create card", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create card"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToCardResponse(card))
}

// listCards godoc
// @Summary List cards
// @Description Retrieves a cursor-paginated page of cards, newest first
// @Tags cards
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param pageToken query string false "Cursor from a previous page"
// @Param featured query bool false "Only admin-featured cards"
// @Success 200 {object} dto.ListCardsResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /cards [get]
func (h *cardHandler) listCards(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	pageToken := c.Query("pageToken")
	featuredOnly := c.Query("featured") == "true"

	cards, nextToken, err := h.cardService.ListCards(c.Request.Context(), limit, pageToken, featuredOnly)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid page token"})
			return
		}
		logger.Error("Failed to list cards", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list cards"})
		return
	}

	c.JSON(http.StatusOK, dto.ListCardsResponse{Cards: dto.ToCardResponseSlice(cards), NextToken: nextToken})
}

// getCard godoc
// @Summary Get a card by ID
// @Tags cards
// @Produce json
// @Param id path string true "Card ID"
// @Success 200 {object} dto.CardResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /cards/{id} [get]
func (h *cardHandler) getCard(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	card, err := h.cardService.GetCardByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
		} else {
			logger.Error("Failed to get card", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve card"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToCardResponse(card))
}

// trackView godoc
// @Summary Track a card view
// @Description Bumps a card's view counter. Rate limited per client IP.
// @Tags cards
// @Produce json
// @Param id path string true "Card ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Security BearerAuth
// @Router /cards/{id}/view [post]
func (h *cardHandler) trackView(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if err := h.cardService.TrackView(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
		} else {
			logger.Error("Failed to track view", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to track view"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
