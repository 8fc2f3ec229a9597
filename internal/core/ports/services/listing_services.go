package services

import (
	"context"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/dto"
)

// ListingReaderSvc defines read operations for marketplace listings
type ListingReaderSvc interface {
	// GetListingByID retrieves a listing by ID.
	GetListingByID(ctx context.Context, listingID string) (*domain.Listing, error)

	// ListOpenListings retrieves a cursor-paginated page of open listings,
	// newest first.
	ListOpenListings(ctx context.Context, limit int, pageToken string) ([]domain.Listing, string, error)
}

// ListingWriterSvc defines write operations for marketplace listings
type ListingWriterSvc interface {
	// CreateListing lists a card for sale. Only the card's owner may list it.
	CreateListing(ctx context.Context, req dto.CreateListingRequest, sellerUserID string) (*domain.Listing, error)

	// CancelListing cancels an open listing. Only the seller may cancel.
	CancelListing(ctx context.Context, listingID string, sellerUserID string) error

	// PurchaseListing settles a listing purchase: the buyer's credits move
	// to the seller through the ledger and card ownership transfers.
	PurchaseListing(ctx context.Context, listingID string, buyerUserID string) (*domain.Listing, error)
}

// ListingSvcFacade combines all listing-related service interfaces
type ListingSvcFacade interface {
	ListingReaderSvc
	ListingWriterSvc
}
