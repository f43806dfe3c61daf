package domain

import "errors"

// Trade validation errors. All of them reject the trade without mutating
// any account state; none are fatal to the process.
var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// ErrPersistenceFailure wraps a storage write that failed after a trade was
// applied in memory. The in-memory account remains the ledger's local truth.
var ErrPersistenceFailure = errors.New("persistence failure")
