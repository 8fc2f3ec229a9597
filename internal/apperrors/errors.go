package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that
// already exists. Repositories return it for unique-constraint violations,
// which is how ledger grant application stays idempotent under webhook
// redelivery.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller is authenticated but not allowed to
// perform the operation.
var ErrForbidden = errors.New("forbidden")

// ErrRefreshTokenExpired indicates the stored refresh token has expired.
var ErrRefreshTokenExpired = errors.New("refresh token expired")

// ErrInsufficientCredits indicates an account balance cannot cover a debit.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrBalanceOutOfSync indicates a ledger entry was recorded but the balance
// projection could not be updated. The ledger is the source of truth; the
// reconciliation sweep recomputes balances from it.
var ErrBalanceOutOfSync = errors.New("balance projection out of sync with ledger")
