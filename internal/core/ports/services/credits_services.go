package services

import (
	"context"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
)

// ReconcileResult summarizes one reconciliation sweep.
type ReconcileResult struct {
	AccountsChecked   int
	BalancesRewritten int
}

// GrantApplier is the reconciliation engine's write side: it turns one
// verified payment event into at most one ledger grant plus a consistent
// balance update. The webhook handler is its only production caller.
type GrantApplier interface {
	// ApplyPurchaseGrant applies the grant described by facts exactly once.
	// Irrelevant or malformed facts are a silent no-op. A duplicate
	// reference (redelivered event) is also a no-op. The error is non-nil
	// only for storage failures; errors.Is(err, apperrors.ErrBalanceOutOfSync)
	// marks the partial state where the ledger entry was recorded but the
	// balance increment failed.
	ApplyPurchaseGrant(ctx context.Context, facts domain.PurchaseFacts) error
}

// BalanceReaderSvc defines read operations against balances and the ledger.
type BalanceReaderSvc interface {
	// GetBalance returns the current credits for an account (zero when the
	// account has no balance row yet).
	GetBalance(ctx context.Context, accountID string) (int64, error)

	// ListLedgerEntries retrieves a cursor-paginated page of an account's
	// ledger history, newest first.
	ListLedgerEntries(ctx context.Context, accountID string, limit int, pageToken string) ([]domain.LedgerEntry, string, error)
}

// CreditsAdminSvc defines admin and operational tooling over the ledger.
type CreditsAdminSvc interface {
	// AdminAdjust grants credits to an account outside the purchase flow.
	AdminAdjust(ctx context.Context, accountID string, credits int64, note string, adjustedBy string) error

	// ReconcileBalances recomputes every account's balance from the ledger
	// sum and overwrites the projection. This is the recovery path for the
	// ledger-written-balance-stale partial failure.
	ReconcileBalances(ctx context.Context) (*ReconcileResult, error)
}

// CreditsSvcFacade combines all credits-related service interfaces
type CreditsSvcFacade interface {
	GrantApplier
	BalanceReaderSvc
	CreditsAdminSvc
}
