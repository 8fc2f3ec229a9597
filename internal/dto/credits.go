package dto

import (
	"time"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
)

// CreateCheckoutRequest asks for a credit pack by its USD price. The pack must
// be a member of the configured allow-list; arbitrary amounts are rejected.
type CreateCheckoutRequest struct {
	PackUSD int64 `json:"packUSD" binding:"required,gt=0"`
}

// CreateCheckoutResponse carries the redirect URL to the processor's hosted
// payment page.
type CreateCheckoutResponse struct {
	RedirectURL string `json:"redirectURL"`
}

// BalanceResponse reports an account's current spendable credits.
type BalanceResponse struct {
	AccountID string `json:"accountID"`
	Credits   int64  `json:"credits"`
}

// LedgerEntryResponse defines the data returned for one ledger entry.
type LedgerEntryResponse struct {
	EntryID     string            `json:"entryID"`
	ReferenceID string            `json:"referenceID"`
	EntryType   string            `json:"entryType"`
	Amount      int64             `json:"amount"`
	Reason      string            `json:"reason"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// LedgerHistoryResponse is a cursor-paginated page of ledger entries.
type LedgerHistoryResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken string                `json:"nextToken,omitempty"`
}

// AdjustCreditsRequest defines an admin credit adjustment.
type AdjustCreditsRequest struct {
	AccountID string `json:"accountID" binding:"required"`
	Credits   int64  `json:"credits" binding:"required,gt=0"`
	Note      string `json:"note" binding:"max=500"`
}

// ReconcileResponse reports the outcome of a reconciliation sweep.
type ReconcileResponse struct {
	AccountsChecked   int `json:"accountsChecked"`
	BalancesRewritten int `json:"balancesRewritten"`
}

// ToLedgerEntryResponse converts a domain.LedgerEntry to its DTO.
func ToLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:     e.EntryID,
		ReferenceID: e.ReferenceID,
		EntryType:   string(e.EntryType),
		Amount:      e.Amount,
		Reason:      string(e.Reason),
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

// ToLedgerEntryResponseSlice converts a slice of domain.LedgerEntry to DTOs.
func ToLedgerEntryResponseSlice(entries []domain.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}
