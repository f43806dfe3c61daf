package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

// Simulator owns the price snapshot and advances it on a fixed period. The
// transition itself is domain.Walk; the simulator only schedules it and
// swaps the snapshot wholesale under the lock so Current always returns one
// atomic observation.
type Simulator struct {
	period time.Duration
	rng    *rand.Rand
	sink   port.Sink

	mu   sync.RWMutex
	snap domain.Snapshot
}

// NewSimulator starts from the given catalog. A nil rng gets a time-seeded
// source; a nil sink discards updates.
func NewSimulator(catalog domain.Snapshot, period time.Duration, sink port.Sink, rng *rand.Rand) *Simulator {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>32))
	}
	if sink == nil {
		sink = port.NopSink{}
	}
	return &Simulator{
		period: period,
		rng:    rng,
		sink:   sink,
		snap:   catalog,
	}
}

// Current returns the latest snapshot.
func (s *Simulator) Current() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Tick advances the snapshot by one step and publishes it.
func (s *Simulator) Tick() domain.Snapshot {
	s.mu.Lock()
	next := domain.Walk(s.snap, s.rng)
	s.snap = next
	s.mu.Unlock()

	s.sink.PublishSnapshot(next)
	return next
}

// Run ticks until ctx is cancelled. After return no further tick fires.
func (s *Simulator) Run(ctx context.Context) {
	log.Info().Dur("period", s.period).Int("symbols", len(s.Current())).Msg("price simulator started")

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("price simulator stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

var _ port.SnapshotSource = (*Simulator)(nil)
