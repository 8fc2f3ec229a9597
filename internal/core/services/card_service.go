package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	"github.com/cardforge/cardforge-backend/internal/core/ports/gateways"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/dto"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/cardforge/cardforge-backend/internal/utils"
	"github.com/cardforge/cardforge-backend/internal/utils/pagination"
	"github.com/google/uuid"
)

// CardService handles card creation, browsing and view tracking. Artwork is
// pinned through the storage gateway at creation time; a pinning failure
// leaves the card usable with its original URL and an empty CID.
type CardService struct {
	cardRepo portsrepo.CardRepositoryFacade
	pinner   gateways.ArtworkPinner
	posthog  *utils.PosthogClientWrapper
}

func NewCardService(cardRepo portsrepo.CardRepositoryFacade, pinner gateways.ArtworkPinner, posthog *utils.PosthogClientWrapper) *CardService {
	return &CardService{cardRepo: cardRepo, pinner: pinner, posthog: posthog}
}

var _ portssvc.CardSvcFacade = (*CardService)(nil)

// CreateCard creates a new card owned by its creator and pins the artwork.
func (s *CardService) CreateCard(ctx context.Context, req dto.CreateCardRequest, creatorUserID string) (*domain.Card, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now()
	card := domain.Card{
		CardID:      uuid.NewString(),
		OwnerID:     creatorUserID,
		CreatorID:   creatorUserID,
		Title:       req.Title,
		Description: req.Description,
		Prompt:      req.Prompt,
		ImageURL:    req.ImageURL,
		Rarity:      domain.CardRarity(req.Rarity),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if s.pinner != nil {
		cid, err := s.pinner.PinURL(ctx, req.ImageURL, card.CardID)
		if err != nil {
			// Pinning is best effort at creation time; the card keeps its
			// source URL and can be re-pinned later.
			logger.Warn("Failed to pin card artwork", "error", err, "card_id", card.CardID)
		} else {
			card.ImageCID = cid
		}
	}

	if err := s.cardRepo.SaveCard(ctx, card); err != nil {
		logger.Error("Failed to save card", "error", err, "card_id", card.CardID)
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	s.posthog.Enqueue(creatorUserID, "card_created", map[string]any{
		"card_id": card.CardID,
		"rarity":  string(card.Rarity),
	})
	logger.Info("Created card", "card_id", card.CardID, "creator_id", creatorUserID)
	return &card, nil
}

// GetCardByID retrieves a card by ID.
func (s *CardService) GetCardByID(ctx context.Context, cardID string) (*domain.Card, error) {
	card, err := s.cardRepo.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// ListCards retrieves a cursor-paginated page of cards, newest first.
func (s *CardService) ListCards(ctx context.Context, limit int, pageToken string, featuredOnly bool) ([]domain.Card, string, error) {
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

	cards, err := s.cardRepo.FindCards(ctx, limit, createdBefore, featuredOnly)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list cards: %w", err)
	}

	nextToken := ""
	if len(cards) == limit {
		nextToken = pagination.EncodeDateBasedToken(cards[len(cards)-1].CreatedAt)
	}
	return cards, nextToken, nil
}

// ListCardsByOwner retrieves all cards owned by a user.
func (s *CardService) ListCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	cards, err := s.cardRepo.FindCardsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards by owner: %w", err)
	}
	return cards, nil
}

// TrackView bumps a card's view counter. The increment is atomic at the
// storage layer, so concurrent views never lose counts.
func (s *CardService) TrackView(ctx context.Context, cardID string) error {
	if err := s.cardRepo.IncrementViews(ctx, cardID); err != nil {
		return fmt.Errorf("failed to track card view: %w", err)
	}
	return nil
}

// SetFeatured toggles the admin featured flag on a card.
func (s *CardService) SetFeatured(ctx context.Context, cardID string, featured bool, adminUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.cardRepo.SetFeatured(ctx, cardID, featured, adminUserID, time.Now()); err != nil {
		return fmt.Errorf("failed to set featured flag: %w", err)
	}
	logger.Info("Updated card featured flag", "card_id", cardID, "featured", featured, "admin_id", adminUserID)
	return nil
}
