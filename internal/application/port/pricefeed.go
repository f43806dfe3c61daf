package port

import "gltrade/internal/domain"

// SnapshotSource serves the current price snapshot. Implementations replace
// the snapshot wholesale on every tick, so the returned value is a single
// atomic observation that callers may hold across a trade without seeing a
// torn update.
type SnapshotSource interface {
	Current() domain.Snapshot
}
