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

// listingHandler handles HTTP requests for the marketplace.
type listingHandler struct {
	listingService portssvc.ListingSvcFacade
}

// newListingHandler creates a new listingHandler.
func newListingHandler(ls portssvc.ListingSvcFacade) *listingHandler {
	return &listingHandler{listingService: ls}
}

// registerListingRoutes registers all marketplace routes.
func registerListingRoutes(rg *gin.RouterGroup, listingService portssvc.ListingSvcFacade) {
	h := newListingHandler(listingService)

	listings := rg.Group("/listings")
	{
		listings.POST("", h.createListing)
		listings.GET("", h.listOpenListings)
		listings.GET("/:id", h.getListing)
		listings.POST("/:id/purchase", h.purchaseListing)
		listings.DELETE("/:id", h.cancelListing)
	}
}

// createListing godoc
// @Summary List a card for sale
// @Description Creates an open marketplace listing for a card the
// @Description authenticated user owns
// @Tags listings
// @Accept json
// @Produce json
// @Param listing body dto.CreateListingRequest true "Listing details"
// @Success 201 {object} dto.ListingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Card already listed"
// @Security BearerAuth
// @Router /listings [post]
func (h *listingHandler) createListing(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	sellerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), req, sellerUserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrForbidden):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only the card owner may list it"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Card not found"})
		case errors.Is(err, apperrors.ErrDuplicate):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Card is already listed for sale"})
		default:
			logger.Error("Failed to create listing", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create listing"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToListingResponse(listing))
}

// listOpenListings godoc
// @Summary List open listings
// @Description Retrieves a cursor-paginated page of open listings, newest first
// @Tags listings
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param pageToken query string false "Cursor from a previous page"
// @Success 200 {object} dto.ListListingsResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /listings [get]
func (h *listingHandler) listOpenListings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	pageToken := c.Query("pageToken")

	listings, nextToken, err := h.listingService.ListOpenListings(c.Request.Context(), limit, pageToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid page token"})
			return
		}
		logger.Error("Failed to list open listings", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list listings"})
		return
	}

	c.JSON(http.StatusOK, dto.ListListingsResponse{Listings: dto.ToListingResponseSlice(listings), NextToken: nextToken})
}

// getListing godoc
// @Summary Get a listing by ID
// @Tags listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} dto.ListingResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /listings/{id} [get]
func (h *listingHandler) getListing(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	listing, err := h.listingService.GetListingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Listing not found"})
		} else {
			logger.Error("Failed to get listing", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve listing"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToListingResponse(listing))
}

// purchaseListing godoc
// @Summary Purchase a listing
// @Description Settles the purchase: debits the buyer, credits the seller and
// @Description transfers card ownership atomically
// @Tags listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} dto.ListingResponse
// @Failure 402 {object} ErrorResponse "Insufficient credits"
// @Failure 404 {object} ErrorResponse "Listing no longer open"
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /listings/{id}/purchase [post]
func (h *listingHandler) purchaseListing(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	buyerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	listing, err := h.listingService.PurchaseListing(c.Request.Context(), c.Param("id"), buyerUserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInsufficientCredits):
			c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: "Insufficient credits"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Listing is no longer open"})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Cannot purchase your own listing"})
		default:
			logger.Error("Failed to purchase listing", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to complete purchase"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToListingResponse(listing))
}

// cancelListing godoc
// @Summary Cancel a listing
// @Description Cancels an open listing owned by the authenticated user
// @Tags listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /listings/{id} [delete]
func (h *listingHandler) cancelListing(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	sellerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.listingService.CancelListing(c.Request.Context(), c.Param("id"), sellerUserID); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrForbidden):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Only the seller may cancel a listing"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Listing is no longer open"})
		default:
			logger.Error("Failed to cancel listing", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to cancel listing"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
