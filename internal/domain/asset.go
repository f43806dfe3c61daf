package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Asset is one tradable instrument: an immutable symbol plus its current
// price at currency resolution.
type Asset struct {
	Symbol string
	Price  decimal.Decimal
}

// Snapshot maps symbol to asset at one instant. A snapshot is never patched
// in place; each tick builds a fresh map and replaces the old one wholesale,
// so readers holding a snapshot never observe a half-updated view.
type Snapshot map[string]Asset

// Price returns the snapshot price for a symbol. The second return is false
// when the symbol is unknown or its price is not strictly positive.
func (s Snapshot) Price(symbol string) (decimal.Decimal, bool) {
	a, ok := s[symbol]
	if !ok || !a.Price.IsPositive() {
		return decimal.Zero, false
	}
	return a.Price, true
}

// Symbols returns the snapshot's symbols in stable sorted order.
func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// NewSnapshot builds a snapshot from symbol -> price pairs, dropping
// entries without a positive price.
func NewSnapshot(prices map[string]float64) Snapshot {
	snap := make(Snapshot, len(prices))
	for sym, p := range prices {
		if p <= 0 {
			continue
		}
		snap[sym] = Asset{Symbol: sym, Price: RoundCurrency(decimal.NewFromFloat(p))}
	}
	return snap
}

// DefaultCatalog is the fixed asset catalog used when the configuration
// does not supply one.
func DefaultCatalog() Snapshot {
	return NewSnapshot(map[string]float64{
		"BTC":  65000,
		"ETH":  3500,
		"GOOG": 160,
		"TSLA": 250,
	})
}
