package domain

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// MaxMovePct bounds a single tick's percentage move per symbol.
const MaxMovePct = 0.006

// PriceFloor is the strictly positive minimum a simulated price can reach.
var PriceFloor = decimal.RequireFromString("0.0001")

// Walk advances every price in the snapshot by one bounded random-walk step:
// a uniform draw in [-MaxMovePct, +MaxMovePct] applied multiplicatively,
// rounded to currency resolution and clamped at PriceFloor. Pure function of
// the previous snapshot and the random source; the input is left untouched.
func Walk(prev Snapshot, rng *rand.Rand) Snapshot {
	next := make(Snapshot, len(prev))
	for sym, a := range prev {
		pct := (rng.Float64()*2 - 1) * MaxMovePct
		p := RoundCurrency(a.Price.Mul(decimal.NewFromFloat(1 + pct)))
		if p.LessThan(PriceFloor) {
			p = PriceFloor
		}
		next[sym] = Asset{Symbol: sym, Price: p}
	}
	return next
}
