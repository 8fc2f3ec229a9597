package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxListingRepository persists marketplace listings and settles sales.
type PgxListingRepository struct {
	pool *pgxpool.Pool
}

// NewPgxListingRepository creates a new repository for listing data.
func NewPgxListingRepository(pool *pgxpool.Pool) portsrepo.ListingRepositoryFacade {
	return &PgxListingRepository{pool: pool}
}

const listingColumns = `listing_id, card_id, seller_id, price_credits, status, sold_at, buyer_id, created_at, created_by, last_updated_at, last_updated_by`

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var listing domain.Listing
	var buyerID *string
	err := row.Scan(
		&listing.ListingID,
		&listing.CardID,
		&listing.SellerID,
		&listing.PriceCredits,
		&listing.Status,
		&listing.SoldAt,
		&buyerID,
		&listing.CreatedAt,
		&listing.CreatedBy,
		&listing.LastUpdatedAt,
		&listing.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if buyerID != nil {
		listing.BuyerID = *buyerID
	}
	return &listing, nil
}

// SaveListing persists a new listing.
func (r *PgxListingRepository) SaveListing(ctx context.Context, listing domain.Listing) error {
	query := `
		INSERT INTO listings (listing_id, card_id, seller_id, price_credits, status, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.pool.Exec(ctx, query,
		listing.ListingID,
		listing.CardID,
		listing.SellerID,
		listing.PriceCredits,
		listing.Status,
		listing.CreatedAt,
		listing.CreatedBy,
		listing.LastUpdatedAt,
		listing.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: listing with ID %s already exists", apperrors.ErrDuplicate, listing.ListingID)
			}
		}
		return fmt.Errorf("failed to save listing %s: %w", listing.ListingID, err)
	}
	return nil
}

// FindListingByID retrieves a listing by its ID.
func (r *PgxListingRepository) FindListingByID(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE listing_id = $1;`
	listing, err := scanListing(r.pool.QueryRow(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find listing by ID %s: %w", listingID, err)
	}
	return listing, nil
}

// FindOpenListings retrieves open listings created before the cursor time,
// newest first.
func (r *PgxListingRepository) FindOpenListings(ctx context.Context, limit int, createdBefore *time.Time) ([]domain.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = 'OPEN' AND ($1::timestamptz IS NULL OR created_at < $1)
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query open listings: %w", err)
	}
	defer rows.Close()

	listings := []domain.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}
	return listings, nil
}

// CancelListing moves an open listing to CANCELLED.
func (r *PgxListingRepository) CancelListing(ctx context.Context, listingID string, sellerID string, now time.Time) error {
	query := `
		UPDATE listings
		SET status = 'CANCELLED', last_updated_at = $3, last_updated_by = $2
		WHERE listing_id = $1 AND seller_id = $2 AND status = 'OPEN';
	`
	tag, err := r.pool.Exec(ctx, query, listingID, sellerID, now)
	if err != nil {
		return fmt.Errorf("failed to cancel listing %s: %w", listingID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CompleteSale settles a purchase within a single database transaction.
// Order matters: the overdraft-guarded buyer debit runs first so an
// insufficient balance aborts before any ledger rows exist.
func (r *PgxListingRepository) CompleteSale(ctx context.Context, sale domain.SaleTransfer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore rollback error
	}()

	// 1. Debit the buyer, guarded against overdraft in the statement itself.
	debitQuery := `
		UPDATE balances
		SET credits = credits - $2, updated_at = now()
		WHERE account_id = $1 AND credits >= $2;
	`
	tag, err := tx.Exec(ctx, debitQuery, sale.BuyerID, sale.PriceCredits)
	if err != nil {
		return fmt.Errorf("failed to debit buyer %s for listing %s: %w", sale.BuyerID, sale.ListingID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: buyer %s cannot cover %d credits", apperrors.ErrInsufficientCredits, sale.BuyerID, sale.PriceCredits)
	}

	// 2. Append both ledger entries for the audit trail.
	metadata, err := json.Marshal(map[string]string{
		"listing_id": sale.ListingID,
		"card_id":    sale.CardID,
		"price":      strconv.FormatInt(sale.PriceCredits, 10),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sale metadata for listing %s: %w", sale.ListingID, err)
	}

	entryQuery := `
		INSERT INTO ledger_entries (entry_id, reference_id, account_id, entry_type, amount, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err = tx.Exec(ctx, entryQuery,
		uuid.NewString(), sale.DebitReferenceID, sale.BuyerID, domain.EntryDebit, sale.PriceCredits, domain.ReasonListingPurchase, metadata, sale.OccurredAt)
	if err == nil {
		_, err = tx.Exec(ctx, entryQuery,
			uuid.NewString(), sale.GrantReferenceID, sale.SellerID, domain.EntryGrant, sale.PriceCredits, domain.ReasonListingSale, metadata, sale.OccurredAt)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: sale for listing %s already settled", apperrors.ErrDuplicate, sale.ListingID)
		}
		return fmt.Errorf("failed to append sale ledger entries for listing %s: %w", sale.ListingID, err)
	}

	// 3. Credit the seller.
	creditQuery := `
		INSERT INTO balances (account_id, credits, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id)
		DO UPDATE SET credits = balances.credits + EXCLUDED.credits, updated_at = now();
	`
	if _, err := tx.Exec(ctx, creditQuery, sale.SellerID, sale.PriceCredits); err != nil {
		return fmt.Errorf("failed to credit seller %s for listing %s: %w", sale.SellerID, sale.ListingID, err)
	}

	// 4. Close the listing; a listing that is no longer open aborts the sale.
	closeQuery := `
		UPDATE listings
		SET status = 'SOLD', sold_at = $2, buyer_id = $3, last_updated_at = $2, last_updated_by = $3
		WHERE listing_id = $1 AND status = 'OPEN';
	`
	tag, err = tx.Exec(ctx, closeQuery, sale.ListingID, sale.OccurredAt, sale.BuyerID)
	if err != nil {
		return fmt.Errorf("failed to close listing %s: %w", sale.ListingID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: listing %s is no longer open", apperrors.ErrNotFound, sale.ListingID)
	}

	// 5. Transfer card ownership and bump the sale counter.
	cardQuery := `
		UPDATE cards
		SET owner_id = $2, sales = sales + 1, last_updated_at = $3, last_updated_by = $2
		WHERE card_id = $1;
	`
	tag, err = tx.Exec(ctx, cardQuery, sale.CardID, sale.BuyerID, sale.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to transfer card %s for listing %s: %w", sale.CardID, sale.ListingID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: card %s for listing %s", apperrors.ErrNotFound, sale.CardID, sale.ListingID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sale for listing %s: %w", sale.ListingID, err)
	}
	return nil
}
