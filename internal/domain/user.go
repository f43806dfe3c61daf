package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the identity record behind a session. The ID doubles as the
// persistence key for the user's account. Authentication here is a demo
// flow, not a security boundary.
type User struct {
	ID        string
	Email     string
	Password  string
	Anonymous bool
	CreatedAt time.Time
}

// TradeRecord is one executed trade as written to the journal.
type TradeRecord struct {
	ID     string
	UserID string
	Symbol string
	Side   Side
	Qty    decimal.Decimal
	Price  decimal.Decimal
	Cost   decimal.Decimal
	Ts     time.Time
}
