package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog/log"

	"gltrade/internal/domain"
)

// Chart maintains the simulated candlestick series shown on the market
// page: a seeded history advanced on a jittered schedule, capped at a fixed
// length, with an SMA overlay computed over the closes.
type Chart struct {
	max           int
	overlayPeriod int
	rng           *rand.Rand

	mu     sync.RWMutex
	series []domain.Candle
}

// ChartView is one consistent read of the series plus its overlay. Overlay
// is empty until enough candles exist for the SMA period.
type ChartView struct {
	Candles []domain.Candle
	Overlay []float64
}

func NewChart(seedCount, maxCandles, overlayPeriod int, startPrice float64, rng *rand.Rand) *Chart {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>16))
	}
	return &Chart{
		max:           maxCandles,
		overlayPeriod: overlayPeriod,
		rng:           rng,
		series:        domain.SeedSeries(seedCount, startPrice, time.Minute, time.Now(), rng),
	}
}

// Advance appends the next candle and trims the series to its cap.
func (c *Chart) Advance(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prevClose := float64(domain.ChartStartPrice)
	if n := len(c.series); n > 0 {
		prevClose = c.series[n-1].Close
	}
	c.series = append(c.series, domain.NextCandle(prevClose, now, c.rng))
	if len(c.series) > c.max {
		c.series = c.series[len(c.series)-c.max:]
	}
}

// View returns a copy of the series and its SMA overlay.
func (c *Chart) View() ChartView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candles := make([]domain.Candle, len(c.series))
	copy(candles, c.series)

	var overlay []float64
	if len(candles) >= c.overlayPeriod && c.overlayPeriod > 1 {
		closes := make([]float64, len(candles))
		for i, cd := range candles {
			closes[i] = cd.Close
		}
		overlay = talib.Sma(closes, c.overlayPeriod)
	}
	return ChartView{Candles: candles, Overlay: overlay}
}

// Run advances the series on a 1-3s jittered schedule until ctx cancels.
func (c *Chart) Run(ctx context.Context) {
	log.Info().Int("seed_candles", len(c.series)).Int("cap", c.max).Msg("chart simulator started")
	for {
		delay := time.Duration(1000+c.jitterMs()) * time.Millisecond
		select {
		case <-ctx.Done():
			log.Info().Msg("chart simulator stopped")
			return
		case now := <-time.After(delay):
			c.Advance(now)
		}
	}
}

func (c *Chart) jitterMs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(2000)
}
