package pgsql

import (
	"context"
	"encoding/json"
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

// PgxCreditsRepository persists the credits ledger and the balance projection.
type PgxCreditsRepository struct {
	pool *pgxpool.Pool
}

// NewPgxCreditsRepository creates a new repository for ledger and balance data.
func NewPgxCreditsRepository(pool *pgxpool.Pool) portsrepo.CreditsRepositoryFacade {
	return &PgxCreditsRepository{pool: pool}
}

// InsertLedgerEntry appends one ledger row. The unique index on reference_id
// is enforced by the database, so two concurrent inserts for the same
// reference resolve to exactly one success and one ErrDuplicate.
func (r *PgxCreditsRepository) InsertLedgerEntry(ctx context.Context, entry domain.LedgerEntry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry metadata for %s: %w", entry.ReferenceID, err)
	}

	query := `
		INSERT INTO ledger_entries (entry_id, reference_id, account_id, entry_type, amount, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err = r.pool.Exec(ctx, query,
		entry.EntryID,
		entry.ReferenceID,
		entry.AccountID,
		entry.EntryType,
		entry.Amount,
		entry.Reason,
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: ledger entry with reference %s already exists", apperrors.ErrDuplicate, entry.ReferenceID)
			}
		}
		return fmt.Errorf("failed to insert ledger entry %s: %w", entry.ReferenceID, err)
	}
	return nil
}

// FindEntriesByAccount retrieves an account's ledger history, newest first.
func (r *PgxCreditsRepository) FindEntriesByAccount(ctx context.Context, accountID string, limit int, createdBefore *time.Time) ([]domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, reference_id, account_id, entry_type, amount, reason, metadata, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3;
	`
	rows, err := r.pool.Query(ctx, query, accountID, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries for account %s: %w", accountID, err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		var entry domain.LedgerEntry
		var metadataJSON []byte
		if err := rows.Scan(
			&entry.EntryID,
			&entry.ReferenceID,
			&entry.AccountID,
			&entry.EntryType,
			&entry.Amount,
			&entry.Reason,
			&metadataJSON,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row for account %s: %w", accountID, err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for ledger entry %s: %w", entry.EntryID, err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows for account %s: %w", accountID, err)
	}
	return entries, nil
}

// SumLedgerBalances computes grants minus debits per account across the whole
// ledger. The sweep uses the result to rewrite the balance projection.
func (r *PgxCreditsRepository) SumLedgerBalances(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT account_id,
		       COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN -amount ELSE amount END), 0)
		FROM ledger_entries
		GROUP BY account_id;
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger balances: %w", err)
	}
	defer rows.Close()

	sums := map[string]int64{}
	for rows.Next() {
		var accountID string
		var total int64
		if err := rows.Scan(&accountID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan ledger sum row: %w", err)
		}
		sums[accountID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger sum rows: %w", err)
	}
	return sums, nil
}

// GetBalance returns the current credits for an account. No balance row means
// zero, not an error.
func (r *PgxCreditsRepository) GetBalance(ctx context.Context, accountID string) (int64, error) {
	var credits int64
	err := r.pool.QueryRow(ctx, `SELECT credits FROM balances WHERE account_id = $1;`, accountID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance for account %s: %w", accountID, err)
	}
	return credits, nil
}

// AddToBalance increments an account's balance at the storage layer. The
// upsert form avoids the read-modify-write lost-update race between two
// different grants for the same account.
func (r *PgxCreditsRepository) AddToBalance(ctx context.Context, accountID string, credits int64) error {
	query := `
		INSERT INTO balances (account_id, credits, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id)
		DO UPDATE SET credits = balances.credits + EXCLUDED.credits, updated_at = now();
	`
	_, err := r.pool.Exec(ctx, query, accountID, credits)
	if err != nil {
		return fmt.Errorf("failed to add %d credits to balance of account %s: %w", credits, accountID, err)
	}
	return nil
}

// DeductFromBalance decrements an account's balance, guarded against
// overdraft in the same statement.
func (r *PgxCreditsRepository) DeductFromBalance(ctx context.Context, accountID string, credits int64) error {
	query := `
		UPDATE balances
		SET credits = credits - $2, updated_at = now()
		WHERE account_id = $1 AND credits >= $2;
	`
	tag, err := r.pool.Exec(ctx, query, accountID, credits)
	if err != nil {
		return fmt.Errorf("failed to deduct %d credits from balance of account %s: %w", credits, accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s cannot cover %d credits", apperrors.ErrInsufficientCredits, accountID, credits)
	}
	return nil
}

// OverwriteBalance sets a balance to an absolute value. Only the
// reconciliation sweep calls this.
func (r *PgxCreditsRepository) OverwriteBalance(ctx context.Context, accountID string, credits int64, now time.Time) error {
	query := `
		INSERT INTO balances (account_id, credits, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id)
		DO UPDATE SET credits = EXCLUDED.credits, updated_at = EXCLUDED.updated_at;
	`
	_, err := r.pool.Exec(ctx, query, accountID, credits, now)
	if err != nil {
		return fmt.Errorf("failed to overwrite balance for account %s: %w", accountID, err)
	}
	return nil
}
