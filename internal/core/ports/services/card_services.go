package services

import (
	"context"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/dto"
)

// CardReaderSvc defines read operations for cards
type CardReaderSvc interface {
	// GetCardByID retrieves a card by ID.
	GetCardByID(ctx context.Context, cardID string) (*domain.Card, error)

	// ListCards retrieves a cursor-paginated page of cards, newest first.
	ListCards(ctx context.Context, limit int, pageToken string, featuredOnly bool) ([]domain.Card, string, error)

	// ListCardsByOwner retrieves all cards owned by a user.
	ListCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error)
}

// CardWriterSvc defines write operations for cards
type CardWriterSvc interface {
	// CreateCard creates a new card owned by creatorUserID and pins its
	// artwork to the storage gateway.
	CreateCard(ctx context.Context, req dto.CreateCardRequest, creatorUserID string) (*domain.Card, error)

	// TrackView bumps a card's view counter.
	TrackView(ctx context.Context, cardID string) error

	// SetFeatured toggles the admin featured flag.
	SetFeatured(ctx context.Context, cardID string, featured bool, adminUserID string) error
}

// CardSvcFacade combines all card-related service interfaces
type CardSvcFacade interface {
	CardReaderSvc
	CardWriterSvc
}
