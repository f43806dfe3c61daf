package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeedBalance is the cash balance every new account starts with.
var SeedBalance = decimal.NewFromInt(100000)

// Holding is a non-negative quantity of one symbol owned by one account.
// A holding whose quantity reaches exactly zero is removed from the account;
// an account never carries zero-quantity entries.
type Holding struct {
	Qty decimal.Decimal
}

// Account is the aggregate root for one user's paper-trading state: cash
// balance, holdings keyed by symbol, and the two derived valuation fields
// recomputed on every trade and revaluation.
type Account struct {
	UserID         string
	Balance        decimal.Decimal
	Holdings       map[string]Holding
	PortfolioValue decimal.Decimal
	Equity         decimal.Decimal
	UpdatedAt      time.Time
}

// NewAccount creates an account with the given seed balance and no holdings.
func NewAccount(userID string, seed decimal.Decimal) *Account {
	return &Account{
		UserID:         userID,
		Balance:        RoundCurrency(seed),
		Holdings:       make(map[string]Holding),
		PortfolioValue: decimal.Zero,
		Equity:         RoundCurrency(seed),
	}
}

// Clone returns a deep copy. Trades operate on a clone so a rejected or
// failed trade leaves the original account untouched.
func (a *Account) Clone() *Account {
	holdings := make(map[string]Holding, len(a.Holdings))
	for sym, h := range a.Holdings {
		holdings[sym] = h
	}
	return &Account{
		UserID:         a.UserID,
		Balance:        a.Balance,
		Holdings:       holdings,
		PortfolioValue: a.PortfolioValue,
		Equity:         a.Equity,
		UpdatedAt:      a.UpdatedAt,
	}
}

// HeldQty returns the quantity held for a symbol, zero if none.
func (a *Account) HeldQty(symbol string) decimal.Decimal {
	return a.Holdings[symbol].Qty
}
