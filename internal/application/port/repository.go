package port

import (
	"context"
	"errors"

	"gltrade/internal/domain"
)

// ErrNotFound is returned by Get* operations when no record exists for the
// given key.
var ErrNotFound = errors.New("not found")

// Repository is the persistence collaborator behind the ledger. Backends are
// interchangeable (in-memory, sqlite, postgres, redis, composite) and are
// selected once at startup; call sites never branch on the backend.
//
// PutAccount is a whole-document upsert with last-write-wins semantics on
// Account.UpdatedAt: a write carrying an older timestamp than the stored
// record must not clobber it. Writes must be visible to subsequent reads on
// the same key before Put returns.
type Repository interface {
	// Account operations
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	PutAccount(ctx context.Context, acc *domain.Account) error

	// User operations
	GetUser(ctx context.Context, email string) (*domain.User, error)
	PutUser(ctx context.Context, u *domain.User) error

	// Trade journal operations
	AppendTrade(ctx context.Context, rec *domain.TradeRecord) error
	ListTrades(ctx context.Context, userID string, limit int) ([]*domain.TradeRecord, error)

	// Connection management
	Close() error
}
