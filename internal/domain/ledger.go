package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes a user-supplied side string.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", s)
	}
}

// Valuation holds the two derived account fields.
type Valuation struct {
	PortfolioValue decimal.Decimal
	Equity         decimal.Decimal
}

// Valuate marks the account to market against one snapshot. Holdings whose
// symbol has no snapshot price contribute zero. The sums are rounded once at
// the end, not per holding, so repeated calls on an unchanged pair are
// byte-for-byte idempotent.
func Valuate(a *Account, snap Snapshot) Valuation {
	portfolio := decimal.Zero
	for sym, h := range a.Holdings {
		price, ok := snap.Price(sym)
		if !ok {
			continue
		}
		portfolio = portfolio.Add(h.Qty.Mul(price))
	}
	pv := RoundCurrency(portfolio)
	return Valuation{
		PortfolioValue: pv,
		Equity:         RoundCurrency(portfolio.Add(a.Balance)),
	}
}

// Revalue returns a copy of the account with derived fields recomputed
// against the snapshot. The input account is not mutated.
func Revalue(a *Account, snap Snapshot) *Account {
	next := a.Clone()
	v := Valuate(next, snap)
	next.PortfolioValue = v.PortfolioValue
	next.Equity = v.Equity
	return next
}

// ExecuteTrade applies one BUY or SELL against a single price observation
// and returns the resulting account. The input account is never mutated:
// either the returned account reflects the whole trade (balance, holding and
// valuation consistent with each other and with snap) or an error is
// returned and nothing changed. Persisting the result is the caller's job.
func ExecuteTrade(a *Account, snap Snapshot, symbol string, side Side, qty decimal.Decimal) (*Account, error) {
	qty = RoundQuantity(qty)
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	price, ok := snap.Price(symbol)
	if !ok {
		return nil, ErrPriceUnavailable
	}
	cost := RoundCurrency(qty.Mul(price))

	next := a.Clone()
	switch side {
	case SideBuy:
		if next.Balance.LessThan(cost) {
			return nil, ErrInsufficientBalance
		}
		next.Balance = next.Balance.Sub(cost)
		next.Holdings[symbol] = Holding{Qty: RoundQuantity(next.HeldQty(symbol).Add(qty))}
	case SideSell:
		held := next.HeldQty(symbol)
		if held.LessThan(qty) {
			return nil, ErrInsufficientHoldings
		}
		next.Balance = next.Balance.Add(cost)
		remaining := RoundQuantity(held.Sub(qty))
		if remaining.IsPositive() {
			next.Holdings[symbol] = Holding{Qty: remaining}
		} else {
			delete(next.Holdings, symbol)
		}
	default:
		return nil, fmt.Errorf("unknown trade side %q", side)
	}

	v := Valuate(next, snap)
	next.PortfolioValue = v.PortfolioValue
	next.Equity = v.Equity
	return next, nil
}
