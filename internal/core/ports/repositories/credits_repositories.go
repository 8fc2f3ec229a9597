package repositories

import (
	"context"
	"time"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
)

// LedgerWriter defines write operations against the append-only ledger.
type LedgerWriter interface {
	// InsertLedgerEntry appends one entry. The ledger enforces a true unique
	// constraint on ReferenceID; a conflicting insert returns
	// apperrors.ErrDuplicate. This is the single correctness-critical
	// primitive the reconciliation engine depends on.
	InsertLedgerEntry(ctx context.Context, entry domain.LedgerEntry) error
}

// LedgerReader defines read operations against the ledger.
type LedgerReader interface {
	// FindEntriesByAccount retrieves ledger entries for an account created
	// before the cursor time, newest first.
	FindEntriesByAccount(ctx context.Context, accountID string, limit int, createdBefore *time.Time) ([]domain.LedgerEntry, error)

	// SumLedgerBalances computes, per account, the sum of grants minus
	// debits across the whole ledger. Used by the reconciliation sweep.
	SumLedgerBalances(ctx context.Context) (map[string]int64, error)
}

// BalanceStore defines operations on the denormalized balance projection.
type BalanceStore interface {
	// GetBalance returns the current credits for an account. A missing
	// balance row is reported as zero, not as an error.
	GetBalance(ctx context.Context, accountID string) (int64, error)

	// AddToBalance atomically increments an account's balance, creating the
	// row if absent. The increment happens at the storage layer; callers
	// never read-modify-write.
	AddToBalance(ctx context.Context, accountID string, credits int64) error

	// DeductFromBalance atomically decrements an account's balance, failing
	// with apperrors.ErrInsufficientCredits when the balance cannot cover
	// the amount.
	DeductFromBalance(ctx context.Context, accountID string, credits int64) error

	// OverwriteBalance sets an account's balance to an absolute value.
	// Only the reconciliation sweep uses this.
	OverwriteBalance(ctx context.Context, accountID string, credits int64, now time.Time) error
}

// CreditsRepositoryFacade combines ledger and balance persistence.
type CreditsRepositoryFacade interface {
	LedgerWriter
	LedgerReader
	BalanceStore
}
