package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cardforge/cardforge-backend/internal/apperrors"
	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portsrepo "github.com/cardforge/cardforge-backend/internal/core/ports/repositories"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/cardforge/cardforge-backend/internal/utils/pagination"
	"github.com/google/uuid"
)

// CreditsService is the reconciliation engine: the only writer of purchase
// grants and the recovery tooling for the balance projection. It treats the
// ledger as the source of truth and the balances table as a projection that
// may briefly lag behind it.
type CreditsService struct {
	creditsRepo portsrepo.CreditsRepositoryFacade
}

func NewCreditsService(creditsRepo portsrepo.CreditsRepositoryFacade) *CreditsService {
	return &CreditsService{creditsRepo: creditsRepo}
}

// Ensure CreditsService implements the facade.
var _ portssvc.CreditsSvcFacade = (*CreditsService)(nil)

// ApplyPurchaseGrant applies one verified payment event to the ledger, at
// most once. Redelivered events hit the ledger's uniqueness constraint and
// are absorbed as no-ops, so the caller can acknowledge the delivery either
// way. The one state this method cannot repair on its own is a ledger entry
// whose balance increment failed; that is reported as
// apperrors.ErrBalanceOutOfSync and left to the reconciliation sweep.
func (s *CreditsService) ApplyPurchaseGrant(ctx context.Context, facts domain.PurchaseFacts) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !facts.Relevant() {
		logger.Debug("Ignoring payment event not relevant to credits", "event_type", facts.EventType, "kind", facts.Kind)
		return nil
	}

	now := time.Now()
	entry := domain.LedgerEntry{
		EntryID:     uuid.NewString(),
		ReferenceID: facts.ReferenceID,
		AccountID:   facts.AccountID,
		EntryType:   domain.EntryGrant,
		Amount:      facts.Credits,
		Reason:      domain.ReasonPurchase,
		Metadata: map[string]string{
			"event_type":       facts.EventType,
			"amount_usd_cents": strconv.FormatInt(facts.AmountUSDCents, 10),
		},
		CreatedAt: now,
	}

	err := s.creditsRepo.InsertLedgerEntry(ctx, entry)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Redelivered event; the grant is already recorded.
			logger.Info("Skipping already applied purchase grant", "reference_id", facts.ReferenceID, "account_id", facts.AccountID)
			return nil
		}
		logger.Error("Failed to record purchase grant in ledger", "error", err, "reference_id", facts.ReferenceID)
		return fmt.Errorf("failed to record purchase grant: %w", err)
	}

	if err := s.creditsRepo.AddToBalance(ctx, facts.AccountID, facts.Credits); err != nil {
		// Ledger entry is committed but the projection is stale. Retrying the
		// delivery cannot fix this (the duplicate path above would skip it),
		// so acknowledge upstream and let the sweep repair the balance.
		logger.Error("Balance update failed after ledger write, balance out of sync",
			"error", err, "reference_id", facts.ReferenceID, "account_id", facts.AccountID, "credits", facts.Credits)
		return fmt.Errorf("%w: account %s reference %s: %v", apperrors.ErrBalanceOutOfSync, facts.AccountID, facts.ReferenceID, err)
	}

	logger.Info("Applied purchase grant", "reference_id", facts.ReferenceID, "account_id", facts.AccountID, "credits", facts.Credits)
	return nil
}

// GetBalance returns the account's current spendable credits. Accounts with
// no balance row yet report zero.
func (s *CreditsService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	credits, err := s.creditsRepo.GetBalance(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return credits, nil
}

// ListLedgerEntries returns a page of the account's ledger history, newest
// first, with a cursor token for the next page.
func (s *CreditsService) ListLedgerEntries(ctx context.Context, accountID string, limit int, pageToken string) ([]domain.LedgerEntry, string, error) {
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

	entries, err := s.creditsRepo.FindEntriesByAccount(ctx, accountID, limit, createdBefore)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list ledger entries: %w", err)
	}

	nextToken := ""
	if len(entries) == limit {
		nextToken = pagination.EncodeDateBasedToken(entries[len(entries)-1].CreatedAt)
	}
	return entries, nextToken, nil
}

// AdminAdjust grants credits outside the purchase flow. Each adjustment gets
// a fresh internal reference, so repeated calls are distinct grants; the
// idempotency guarantee belongs to webhook-driven grants only.
func (s *CreditsService) AdminAdjust(ctx context.Context, accountID string, credits int64, note string, adjustedBy string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if accountID == "" || credits <= 0 {
		return fmt.Errorf("%w: adjustment requires an account and a positive amount", apperrors.ErrValidation)
	}

	entry := domain.LedgerEntry{
		EntryID:     uuid.NewString(),
		ReferenceID: "adj_" + uuid.NewString(),
		AccountID:   accountID,
		EntryType:   domain.EntryGrant,
		Amount:      credits,
		Reason:      domain.ReasonAdminAdjustment,
		Metadata: map[string]string{
			"note":        note,
			"adjusted_by": adjustedBy,
		},
		CreatedAt: time.Now(),
	}

	if err := s.creditsRepo.InsertLedgerEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to record adjustment: %w", err)
	}
	if err := s.creditsRepo.AddToBalance(ctx, accountID, credits); err != nil {
		logger.Error("Balance update failed after adjustment ledger write",
			"error", err, "reference_id", entry.ReferenceID, "account_id", accountID)
		return fmt.Errorf("%w: account %s reference %s: %v", apperrors.ErrBalanceOutOfSync, accountID, entry.ReferenceID, err)
	}

	logger.Info("Applied admin credit adjustment", "account_id", accountID, "credits", credits, "adjusted_by", adjustedBy)
	return nil
}

// ReconcileBalances recomputes every account's balance from the ledger and
// overwrites the projection where it drifted. Safe to run at any time; the
// ledger sum is authoritative.
func (s *CreditsService) ReconcileBalances(ctx context.Context) (*portssvc.ReconcileResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	sums, err := s.creditsRepo.SumLedgerBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger balances: %w", err)
	}

	result := &portssvc.ReconcileResult{AccountsChecked: len(sums)}
	now := time.Now()
	for accountID, expected := range sums {
		current, err := s.creditsRepo.GetBalance(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance for account %s: %w", accountID, err)
		}
		if current == expected {
			continue
		}
		logger.Warn("Balance drift detected, rewriting from ledger",
			"account_id", accountID, "stored", current, "ledger_sum", expected)
		if err := s.creditsRepo.OverwriteBalance(ctx, accountID, expected, now); err != nil {
			return nil, fmt.Errorf("failed to overwrite balance for account %s: %w", accountID, err)
		}
		result.BalancesRewritten++
	}

	logger.Info("Reconciliation sweep complete",
		"accounts_checked", result.AccountsChecked, "balances_rewritten", result.BalancesRewritten)
	return result, nil
}
