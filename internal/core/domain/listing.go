package domain

import "time"

// ListingStatus tracks the lifecycle of a marketplace listing.
type ListingStatus string

const (
	ListingOpen      ListingStatus = "OPEN"
	ListingSold      ListingStatus = "SOLD"
	ListingCancelled ListingStatus = "CANCELLED"
)

// Listing represents a card offered for sale on the peer-to-peer marketplace,
// priced in credits.
type Listing struct {
	ListingID    string        `json:"listingID"` // Primary Key (UUID)
	CardID       string        `json:"cardID"`
	SellerID     string        `json:"sellerID"`
	PriceCredits int64         `json:"priceCredits"`
	Status       ListingStatus `json:"status"`
	SoldAt       *time.Time    `json:"soldAt,omitempty"`
	BuyerID      string        `json:"buyerID,omitempty"`
	AuditFields
}

// SaleTransfer carries everything needed to settle a listing purchase in a
// single storage transaction: the buyer debit, the seller grant, the listing
// close and the card ownership transfer.
type SaleTransfer struct {
	ListingID        string
	CardID           string
	SellerID         string
	BuyerID          string
	PriceCredits     int64
	DebitReferenceID string // internal reference for the buyer's ledger debit
	GrantReferenceID string // internal reference for the seller's ledger grant
	OccurredAt       time.Time
}
