package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

// Ledger serializes all mutations of one account behind a per-user mutex
// and mirrors every new account state to the repository. The in-memory map
// is the ledger's local truth: a failed write is surfaced as
// domain.ErrPersistenceFailure but never rolls the trade back.
type Ledger struct {
	repo    port.Repository
	prices  port.SnapshotSource
	sink    port.Sink
	seed    decimal.Decimal
	retries int
	backoff time.Duration

	mu       sync.Mutex
	accounts map[string]*domain.Account
	locks    map[string]*sync.Mutex
}

func NewLedger(repo port.Repository, prices port.SnapshotSource, sink port.Sink, seed decimal.Decimal, retries int, backoff time.Duration) *Ledger {
	if sink == nil {
		sink = port.NopSink{}
	}
	if retries < 1 {
		retries = 1
	}
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	return &Ledger{
		repo:     repo,
		prices:   prices,
		sink:     sink,
		seed:     seed,
		retries:  retries,
		backoff:  backoff,
		accounts: make(map[string]*domain.Account),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[userID]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[userID] = lk
	}
	return lk
}

func (l *Ledger) cached(userID string) *domain.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[userID]
}

func (l *Ledger) commit(acc *domain.Account) {
	l.mu.Lock()
	l.accounts[acc.UserID] = acc
	l.mu.Unlock()
}

// loadLocked fetches or creates the account. Caller holds the user lock.
func (l *Ledger) loadLocked(ctx context.Context, userID string) (*domain.Account, error) {
	if acc := l.cached(userID); acc != nil {
		return acc, nil
	}

	acc, err := l.repo.GetAccount(ctx, userID)
	switch {
	case err == nil:
		l.commit(acc)
		return acc, nil
	case errors.Is(err, port.ErrNotFound):
		acc = domain.NewAccount(userID, l.seed)
		acc.UpdatedAt = time.Now()
		l.commit(acc)
		if perr := l.persist(ctx, acc); perr != nil {
			log.Warn().Err(perr).Str("user", userID).Msg("seed account write failed, keeping local state")
		}
		return acc, nil
	default:
		return nil, fmt.Errorf("load account %s: %w", userID, err)
	}
}

// LoadOrInit returns the user's account, creating and persisting a seeded
// one on first sight. Idempotent: a second call for the same user observes
// the first call's state.
func (l *Ledger) LoadOrInit(ctx context.Context, userID string) (*domain.Account, error) {
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	acc, err := l.loadLocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.Revalue(acc, l.prices.Current()), nil
}

// ExecuteTrade runs one trade against a single price observation taken at
// entry. On success the returned account reflects the whole trade and has
// been mirrored to storage; a storage failure after the in-memory commit is
// reported as domain.ErrPersistenceFailure alongside the applied account.
func (l *Ledger) ExecuteTrade(ctx context.Context, userID, symbol string, side domain.Side, qty decimal.Decimal) (*domain.Account, error) {
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	acc, err := l.loadLocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := l.prices.Current()
	next, err := domain.ExecuteTrade(acc, snap, symbol, side, qty)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()
	l.commit(next)

	price, _ := snap.Price(symbol)
	tradedQty := domain.RoundQuantity(qty)
	rec := &domain.TradeRecord{
		ID:     newID(),
		UserID: userID,
		Symbol: symbol,
		Side:   side,
		Qty:    tradedQty,
		Price:  price,
		Cost:   domain.RoundCurrency(tradedQty.Mul(price)),
		Ts:     next.UpdatedAt,
	}
	if err := l.repo.AppendTrade(ctx, rec); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("trade journal write failed")
	}

	l.sink.PublishAccount(next)

	if perr := l.persist(ctx, next); perr != nil {
		return next, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, perr)
	}
	return next, nil
}

// Trades lists the user's journal, newest first.
func (l *Ledger) Trades(ctx context.Context, userID string, limit int) ([]*domain.TradeRecord, error) {
	return l.repo.ListTrades(ctx, userID, limit)
}

// persist writes the account with at least one retry and doubling backoff.
func (l *Ledger) persist(ctx context.Context, acc *domain.Account) error {
	wait := l.backoff
	var err error
	for attempt := 0; attempt <= l.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		if err = l.repo.PutAccount(ctx, acc); err == nil {
			return nil
		}
		log.Warn().Err(err).Str("user", acc.UserID).Int("attempt", attempt+1).Msg("account write failed")
	}
	return err
}

func newID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
