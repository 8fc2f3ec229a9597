package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxCardRepository persists card data.
type PgxCardRepository struct {
	pool *pgxpool.Pool
}

// NewPgxCardRepository creates a new repository for card data.
func NewPgxCardRepository(pool *pgxpool.Pool) portsrepo.CardRepositoryFacade {
	return &PgxCardRepository{pool: pool}
}

const cardColumns = `card_id, owner_id, creator_id, title, description, prompt, image_url, image_cid, rarity, featured, views, sales, created_at, created_by, last_updated_at, last_updated_by`

func scanCard(row pgx.Row) (*domain.Card, error) {
	var card domain.Card
	err := row.Scan(
		&card.CardID,
		&card.OwnerID,
		&card.CreatorID,
		&card.Title,
		&card.Description,
		&card.Prompt,
		&card.ImageURL,
		&card.ImageCID,
		&card.Rarity,
		&card.Featured,
		&card.Views,
		&card.Sales,
		&card.CreatedAt,
		&card.CreatedBy,
		&card.LastUpdatedAt,
		&card.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// SaveCard persists a new card.
func (r *PgxCardRepository) SaveCard(ctx context.Context, card domain.Card) error {
	query := `
		INSERT INTO cards (card_id, owner_id, creator_id, title, description, prompt, image_url, image_cid, rarity, featured, views, sales, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := r.pool.Exec(ctx, query,
		card.CardID,
		card.OwnerID,
		card.CreatorID,
		card.Title,
		card.Description,
		card.Prompt,
		card.ImageURL,
		card.ImageCID,
		card.Rarity,
		card.Featured,
		card.Views,
		card.Sales,
		card.CreatedAt,
		card.CreatedBy,
		card.LastUpdatedAt,
		card.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: card with ID %s already exists", apperrors.ErrDuplicate, card.CardID)
			}
		}
		return fmt.Errorf("failed to save card %s: %w", card.CardID, err)
	}
	return nil
}

// FindCardByID retrieves a card by its ID.
func (r *PgxCardRepository) FindCardByID(ctx context.Context, cardID string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE card_id = $1;`
	card, err := scanCard(r.pool.QueryRow(ctx, query, cardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find card by ID %s: %w", cardID, err)
	}
	return card, nil
}

// FindCards retrieves cards created before the cursor time, newest first.
func (r *PgxCardRepository) FindCards(ctx context.Context, limit int, createdBefore *time.Time, featuredOnly bool) ([]domain.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE ($1::timestamptz IS NULL OR created_at < $1)
		  AND ($2::boolean = false OR featured = true)
		ORDER BY created_at DESC
		LIMIT $3;
	`
	rows, err := r.pool.Query(ctx, query, createdBefore, featuredOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

// FindCardsByOwner retrieves all cards owned by a user, newest first.
func (r *PgxCardRepository) FindCardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for owner %s: %w", ownerID, err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows for owner %s: %w", ownerID, err)
	}
	return cards, nil
}

// UpdateCard updates a card's mutable fields.
func (r *PgxCardRepository) UpdateCard(ctx context.Context, card domain.Card) error {
	query := `
		UPDATE cards
		SET title = $2, description = $3, image_cid = $4, last_updated_at = $5, last_updated_by = $6
		WHERE card_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, card.CardID, card.Title, card.Description, card.ImageCID, card.LastUpdatedAt, card.LastUpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.CardID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter at the storage layer. The increment
// happens in the statement itself rather than read-modify-write.
func (r *PgxCardRepository) IncrementViews(ctx context.Context, cardID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cards SET views = views + 1 WHERE card_id = $1;`, cardID)
	if err != nil {
		return fmt.Errorf("failed to increment views for card %s: %w", cardID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetFeatured toggles the admin featured flag.
func (r *PgxCardRepository) SetFeatured(ctx context.Context, cardID string, featured bool, updatedBy string, now time.Time) error {
	query := `
		UPDATE cards
		SET featured = $2, last_updated_at = $3, last_updated_by = $4
		WHERE card_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, cardID, featured, now, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to set featured flag for card %s: %w", cardID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
