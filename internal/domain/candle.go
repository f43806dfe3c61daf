package domain

import (
	"math"
	"math/rand/v2"
	"time"
)

// Candlestick generation for the simulated market chart. Candles are
// presentation data, not ledger state, so they stay in float64: the chart
// overlay library works on float slices and nothing downstream does money
// arithmetic with them.

// ChartStartPrice seeds the simulated candle series.
const ChartStartPrice = 21500

// ChartVolatilityPct is the per-candle volatility of the simulated series.
const ChartVolatilityPct = 0.008

// Candle is one OHLC bar.
type Candle struct {
	Ts    time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func randBetween(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

// NextCandle produces the bar following prevClose: open jitters around the
// previous close, the close drifts a random direction, and high/low pad the
// body. All four prices are rounded to 2 decimals.
func NextCandle(prevClose float64, ts time.Time, rng *rand.Rand) Candle {
	open := prevClose * (1 + randBetween(rng, -ChartVolatilityPct/2, ChartVolatilityPct/2))
	dir := 1.0
	if rng.Float64() < 0.5 {
		dir = -1.0
	}
	close := open * (1 + dir*randBetween(rng, ChartVolatilityPct/4, ChartVolatilityPct))
	high := math.Max(open, close) * (1 + randBetween(rng, 0, ChartVolatilityPct/3))
	low := math.Min(open, close) * (1 - randBetween(rng, 0, ChartVolatilityPct/3))
	return Candle{
		Ts:    ts,
		Open:  round2(open),
		High:  round2(high),
		Low:   round2(low),
		Close: round2(close),
	}
}

// SeedSeries builds count historical candles ending just before now, spaced
// by step, chained from startPrice.
func SeedSeries(count int, startPrice float64, step time.Duration, now time.Time, rng *rand.Rand) []Candle {
	series := make([]Candle, 0, count)
	prevClose := startPrice
	ts := now.Add(-time.Duration(count) * step)
	for i := 0; i < count; i++ {
		c := NextCandle(prevClose, ts, rng)
		series = append(series, c)
		prevClose = c.Close
		ts = ts.Add(step)
	}
	return series
}
