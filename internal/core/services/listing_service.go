package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/dto"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/cardforge/cardforge-backend/internal/utils"
	"github.com/cardforge/cardforge-backend/internal/utils/pagination"
	"github.com/google/uuid"
)

// ListingService handles the peer-to-peer marketplace. Settlement of a
// purchase is delegated to the repository's CompleteSale so that the buyer
// debit, the ledger entries, the seller grant and the ownership transfer
// commit or roll back together.
type ListingService struct {
	listingRepo portsrepo.ListingRepositoryFacade
	cardRepo    portsrepo.CardRepositoryFacade
	posthog     *utils.PosthogClientWrapper
}

func NewListingService(listingRepo portsrepo.ListingRepositoryFacade, cardRepo portsrepo.CardRepositoryFacade, posthog *utils.PosthogClientWrapper) *ListingService {
	return &ListingService{listingRepo: listingRepo, cardRepo: cardRepo, posthog: posthog}
}

var _ portssvc.ListingSvcFacade = (*ListingService)(nil)

// CreateListing lists a card for sale. Only the card's owner may list it, and
// a card already on an open listing cannot be listed again.
func (s *ListingService) CreateListing(ctx context.Context, req dto.CreateListingRequest, sellerUserID string) (*domain.Listing, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	card, err := s.cardRepo.FindCardByID(ctx, req.CardID)
	if err != nil {
		return nil, fmt.Errorf("failed to find card for listing: %w", err)
	}
	if card.OwnerID != sellerUserID {
		return nil, fmt.Errorf("%w: only the card owner may list it", apperrors.ErrForbidden)
	}

	now := time.Now()
	listing := domain.Listing{
		ListingID:    uuid.NewString(),
		CardID:       req.CardID,
		SellerID:     sellerUserID,
		PriceCredits: req.PriceCredits,
		Status:       domain.ListingOpen,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     sellerUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: sellerUserID,
		},
	}

	if err := s.listingRepo.SaveListing(ctx, listing); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: card is already listed for sale", apperrors.ErrDuplicate)
		}
		logger.Error("Failed to save listing", "error", err, "card_id", req.CardID)
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	s.posthog.Enqueue(sellerUserID, "listing_created", map[string]any{
		"listing_id":    listing.ListingID,
		"card_id":       listing.CardID,
		"price_credits": listing.PriceCredits,
	})
	logger.Info("Created listing", "listing_id", listing.ListingID, "card_id", listing.CardID, "price_credits", listing.PriceCredits)
	return &listing, nil
}

// GetListingByID retrieves a listing by ID.
func (s *ListingService) GetListingByID(ctx context.Context, listingID string) (*domain.Listing, error) {
	listing, err := s.listingRepo.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// ListOpenListings retrieves a cursor-paginated page of open listings.
func (s *ListingService) ListOpenListings(ctx context.Context, limit int, pageToken string) ([]domain.Listing, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var createdBefore *time.Time
	if pageToken != "" {
		t, err := pagination.DecodeDateBasedToken(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		createdBefore = &t
	}

	listings, err := s.listingRepo.FindOpenListings(ctx, limit, createdBefore)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list open listings: %w", err)
	}

	nextToken := ""
	if len(listings) == limit {
		nextToken = pagination.EncodeDateBasedToken(listings[len(listings)-1].CreatedAt)
	}
	return listings, nextToken, nil
}

// CancelListing cancels an open listing. Only the seller may cancel.
func (s *ListingService) CancelListing(ctx context.Context, listingID string, sellerUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	listing, err := s.listingRepo.FindListingByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("failed to find listing for cancellation: %w", err)
	}
	if listing.SellerID != sellerUserID {
		return fmt.Errorf("%w: only the seller may cancel a listing", apperrors.ErrForbidden)
	}

	if err := s.listingRepo.CancelListing(ctx, listingID, sellerUserID, time.Now()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: listing is no longer open", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to cancel listing: %w", err)
	}

	logger.Info("Cancelled listing", "listing_id", listingID, "seller_id", sellerUserID)
	return nil
}

// PurchaseListing settles a listing purchase: the price moves from buyer to
// seller through a ledger debit/grant pair and the card changes owner, all in
// one storage transaction.
func (s *ListingService) PurchaseListing(ctx context.Context, listingID string, buyerUserID string) (*domain.Listing, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	listing, err := s.listingRepo.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to find listing for purchase: %w", err)
	}
	if listing.Status != domain.ListingOpen {
		return nil, fmt.Errorf("%w: listing is no longer open", apperrors.ErrNotFound)
	}
	if listing.SellerID == buyerUserID {
		return nil, fmt.Errorf("%w: cannot purchase your own listing", apperrors.ErrValidation)
	}

	saleID := uuid.NewString()
	now := time.Now()
	sale := domain.SaleTransfer{
		ListingID:        listing.ListingID,
		CardID:           listing.CardID,
		SellerID:         listing.SellerID,
		BuyerID:          buyerUserID,
		PriceCredits:     listing.PriceCredits,
		DebitReferenceID: "sale_" + saleID + "_debit",
		GrantReferenceID: "sale_" + saleID + "_grant",
		OccurredAt:       now,
	}

	if err := s.listingRepo.CompleteSale(ctx, sale); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInsufficientCredits):
			return nil, fmt.Errorf("%w: balance cannot cover listing price", apperrors.ErrInsufficientCredits)
		case errors.Is(err, apperrors.ErrNotFound):
			// Lost the race against another buyer or a cancellation.
			return nil, fmt.Errorf("%w: listing is no longer open", apperrors.ErrNotFound)
		default:
			logger.Error("Failed to settle listing purchase", "error", err, "listing_id", listingID, "buyer_id", buyerUserID)
			return nil, fmt.Errorf("failed to settle purchase: %w", err)
		}
	}

	listing.Status = domain.ListingSold
	listing.BuyerID = buyerUserID
	listing.SoldAt = &now

	s.posthog.Enqueue(buyerUserID, "listing_purchased", map[string]any{
		"listing_id":    listing.ListingID,
		"card_id":       listing.CardID,
		"price_credits": listing.PriceCredits,
		"seller_id":     listing.SellerID,
	})
	logger.Info("Settled listing purchase",
		"listing_id", listing.ListingID, "buyer_id", buyerUserID, "seller_id", listing.SellerID, "price_credits", listing.PriceCredits)
	return listing, nil
}
