package dto

import (
	"time"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
)

// CreateCardRequest defines the data needed to create a new card.
// Rarity is validated against the cardrarity custom validator registered at
// startup.
type CreateCardRequest struct {
	Title       string `json:"title" binding:"required,max=120"`
	Description string `json:"description" binding:"max=2000"`
	Prompt      string `json:"prompt" binding:"max=4000"` // empty for user uploads
	ImageURL    string `json:"imageURL" binding:"required,url"`
	Rarity      string `json:"rarity" binding:"required,cardrarity"`
}

// CardResponse defines the data returned for a card.
type CardResponse struct {
	CardID      string    `json:"cardID"`
	OwnerID     string    `json:"ownerID"`
	CreatorID   string    `json:"creatorID"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt,omitempty"`
	ImageURL    string    `json:"imageURL"`
	ImageCID    string    `json:"imageCID,omitempty"`
	Rarity      string    `json:"rarity"`
	Featured    bool      `json:"featured"`
	Views       int64     `json:"views"`
	Sales       int64     `json:"sales"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListCardsResponse is a cursor-paginated page of cards.
type ListCardsResponse struct {
	Cards     []CardResponse `json:"cards"`
	NextToken string         `json:"nextToken,omitempty"`
}

// ToCardResponse converts a domain.Card to CardResponse DTO
func ToCardResponse(card *domain.Card) CardResponse {
	return CardResponse{
		CardID:      card.CardID,
		OwnerID:     card.OwnerID,
		CreatorID:   card.CreatorID,
		Title:       card.Title,
		Description: card.Description,
		Prompt:      card.Prompt,
		ImageURL:    card.ImageURL,
		ImageCID:    card.ImageCID,
		Rarity:      string(card.Rarity),
		Featured:    card.Featured,
		Views:       card.Views,
		Sales:       card.Sales,
		CreatedAt:   card.CreatedAt,
	}
}

// ToCardResponseSlice converts a slice of domain.Card to DTOs.
func ToCardResponseSlice(cards []domain.Card) []CardResponse {
	out := make([]CardResponse, len(cards))
	for i := range cards {
		out[i] = ToCardResponse(&cards[i])
	}
	return out
}
