package dto

import (
	"time"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
)

// CreateListingRequest defines the data needed to list a card for sale.
type CreateListingRequest struct {
	CardID       string `json:"cardID" binding:"required"`
	PriceCredits int64  `json:"priceCredits" binding:"required,gt=0"`
}

// ListingResponse defines the data returned for a listing.
type ListingResponse struct {
	ListingID    string     `json:"listingID"`
	CardID       string     `json:"cardID"`
	SellerID     string     `json:"sellerID"`
	PriceCredits int64      `json:"priceCredits"`
	Status       string     `json:"status"`
	SoldAt       *time.Time `json:"soldAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ListListingsResponse is a cursor-paginated page of open listings.
type ListListingsResponse struct {
	Listings  []ListingResponse `json:"listings"`
	NextToken string            `json:"nextToken,omitempty"`
}

// ToListingResponse converts a domain.Listing to ListingResponse DTO
func ToListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ListingID:    l.ListingID,
		CardID:       l.CardID,
		SellerID:     l.SellerID,
		PriceCredits: l.PriceCredits,
		Status:       string(l.Status),
		SoldAt:       l.SoldAt,
		CreatedAt:    l.CreatedAt,
	}
}

// ToListingResponseSlice converts a slice of domain.Listing to DTOs.
func ToListingResponseSlice(listings []domain.Listing) []ListingResponse {
	out := make([]ListingResponse, len(listings))
	for i := range listings {
		out[i] = ToListingResponse(&listings[i])
	}
	return out
}
