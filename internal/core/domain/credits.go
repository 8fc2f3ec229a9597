package domain

import "time"

// LedgerEntryType distinguishes credit grants from debits in the ledger.
type LedgerEntryType string

const (
	EntryGrant LedgerEntryType = "GRANT"
	EntryDebit LedgerEntryType = "DEBIT"
)

// LedgerReason records why a ledger entry exists.
type LedgerReason string

const (
	ReasonPurchase        LedgerReason = "purchase"         // fiat credits purchase via the payment processor
	ReasonListingSale     LedgerReason = "listing_sale"     // seller side of a marketplace sale
	ReasonListingPurchase LedgerReason = "listing_purchase" // buyer side of a marketplace sale
	ReasonAdminAdjustment LedgerReason = "admin_adjustment"
)

// CheckoutKindCreditsPurchase is the metadata marker the purchase intent
// issuer attaches to a checkout session. Webhook events without it are not
// relevant to the credits subsystem.
const CheckoutKindCreditsPurchase = "credits_purchase"

// Metadata keys echoed back by the payment processor at webhook time.
const (
	MetaKeyKind    = "kind"
	MetaKeyUserID  = "user_id"
	MetaKeyCredits = "credits"
	MetaKeyUSD     = "usd"
)

// LedgerEntry is one append-only row of the credits ledger. Entries are never
// updated or deleted. ReferenceID is globally unique: a second insert with the
// same reference fails with a uniqueness conflict, which is what makes grant
// application idempotent under at-least-once webhook delivery.
type LedgerEntry struct {
	EntryID     string            `json:"entryID"`     // Primary Key (UUID)
	ReferenceID string            `json:"referenceID"` // Idempotency key (e.g. payment-intent id)
	AccountID   string            `json:"accountID"`
	EntryType   LedgerEntryType   `json:"entryType"`
	Amount      int64             `json:"amount"` // credits, always > 0; EntryType carries the sign
	Reason      LedgerReason      `json:"reason"`
	Metadata    map[string]string `json:"metadata,omitempty"` // audit payload (amount paid, raw external id, ...)
	CreatedAt   time.Time         `json:"createdAt"`
}

// Balance is the denormalized current-credits projection for one account,
// kept in sync with the ledger by the reconciliation engine.
type Balance struct {
	AccountID string    `json:"accountID"`
	Credits   int64     `json:"credits"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PurchaseFacts are the normalized facts extracted from a verified payment
// event. The reconciliation engine turns one PurchaseFacts into at most one
// ledger grant.
type PurchaseFacts struct {
	Kind           string
	AccountID      string
	Credits        int64
	ReferenceID    string
	AmountUSDCents int64 // amount paid in minor currency units, for the audit trail
	EventType      string
}

// Relevant reports whether the facts describe a credits purchase this
// subsystem should apply. Irrelevant facts are a silent no-op, not an error.
func (f PurchaseFacts) Relevant() bool {
	return f.Kind == CheckoutKindCreditsPurchase &&
		f.AccountID != "" &&
		f.ReferenceID != "" &&
		f.Credits > 0
}
