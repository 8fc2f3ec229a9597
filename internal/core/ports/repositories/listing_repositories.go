package repositories

import (
	"context"
	"time"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
)

// ListingReader defines read operations for marketplace listings
type ListingReader interface {
	// FindListingByID retrieves a specific listing by its ID.
	FindListingByID(ctx context.Context, listingID string) (*domain.Listing, error)

	// FindOpenListings retrieves open listings created before the cursor
	// time, newest first. A nil cursor starts from the newest listing.
	FindOpenListings(ctx context.Context, limit int, createdBefore *time.Time) ([]domain.Listing, error)
}

// ListingWriter defines write operations for marketplace listings
type ListingWriter interface {
	// SaveListing persists a new listing.
	SaveListing(ctx context.Context, listing domain.Listing) error

	// CancelListing moves an open listing to CANCELLED. Returns
	// apperrors.ErrNotFound if the listing does not exist or is not open.
	CancelListing(ctx context.Context, listingID string, sellerID string, now time.Time) error

	// CompleteSale settles a purchase in a single database transaction:
	// debit the buyer's balance (guarded against overdraft), append the two
	// ledger entries, credit the seller, close the listing and transfer card
	// ownership. Returns apperrors.ErrInsufficientCredits when the buyer
	// cannot cover the price and apperrors.ErrNotFound when the listing is
	// no longer open.
	CompleteSale(ctx context.Context, sale domain.SaleTransfer) error
}

// ListingRepositoryFacade combines all listing-related repository interfaces
type ListingRepositoryFacade interface {
	ListingReader
	ListingWriter
}
