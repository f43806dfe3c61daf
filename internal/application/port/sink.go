package port

import "gltrade/internal/domain"

// Sink receives every state change for presentation. Implementations must
// not block: a slow consumer is the sink's problem, never the ledger's or
// the simulator's.
type Sink interface {
	// PublishSnapshot is called with each new price snapshot.
	PublishSnapshot(snap domain.Snapshot)
	// PublishAccount is called after every successful trade.
	PublishAccount(acc *domain.Account)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) PublishSnapshot(domain.Snapshot) {}
func (NopSink) PublishAccount(*domain.Account)  {}

// MultiSink fans every event out to each member in order.
type MultiSink []Sink

func (m MultiSink) PublishSnapshot(snap domain.Snapshot) {
	for _, s := range m {
		s.PublishSnapshot(snap)
	}
}

func (m MultiSink) PublishAccount(acc *domain.Account) {
	for _, s := range m {
		s.PublishAccount(acc)
	}
}
