package repositories

import (
	"context"
	"time"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
)

// CardReader defines read operations for card data
type CardReader interface {
	// FindCardByID retrieves a specific card by its ID.
	FindCardByID(ctx context.Context, cardID string) (*domain.Card, error)

	// FindCards retrieves cards created before the cursor time, newest first.
	// A nil cursor starts from the newest card. featuredOnly filters to
	// admin-featured cards.
	FindCards(ctx context.Context, limit int, createdBefore *time.Time, featuredOnly bool) ([]domain.Card, error)

	// FindCardsByOwner retrieves all cards owned by a user, newest first.
	FindCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error)
}

// CardWriter defines write operations for card data
type CardWriter interface {
	// SaveCard persists a new card.
	SaveCard(ctx context.Context, card domain.Card) error

	// UpdateCard updates a card's mutable fields.
	UpdateCard(ctx context.Context, card domain.Card) error

	// IncrementViews atomically bumps a card's view counter.
	IncrementViews(ctx context.Context, cardID string) error

	// SetFeatured toggles the admin featured flag.
	SetFeatured(ctx context.Context, cardID string, featured bool, updatedBy string, now time.Time) error
}

// CardRepositoryFacade combines all card-related repository interfaces
type CardRepositoryFacade interface {
	CardReader
	CardWriter
}
