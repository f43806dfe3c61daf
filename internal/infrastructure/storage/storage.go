package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
	"gltrade/internal/infrastructure/config"
	"gltrade/internal/infrastructure/storage/composite"
	"gltrade/internal/infrastructure/storage/postgres"
	"gltrade/internal/infrastructure/storage/redis"
	"gltrade/internal/infrastructure/storage/sqlite"
)

// Open builds the repository the configuration selects. The choice happens
// exactly once, here; callers only ever see port.Repository.
func Open(cfg *config.Config) (port.Repository, error) {
	return open(cfg, cfg.Storage.Backend)
}

func open(cfg *config.Config, backend string) (port.Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return sqlite.New(cfg.Storage.SQLitePath)
	case "postgres":
		return postgres.New(cfg.Storage.PostgresDSN)
	case "redis":
		return redis.New(cfg.Storage.RedisAddr, cfg.Storage.RedisPrefix)
	case "composite":
		members := make([]port.Repository, 0, len(cfg.Storage.Backends))
		for _, name := range cfg.Storage.Backends {
			if strings.EqualFold(strings.TrimSpace(name), "composite") {
				for _, m := range members {
					_ = m.Close()
				}
				return nil, fmt.Errorf("composite member must not be composite")
			}
			repo, err := open(cfg, name)
			if err != nil {
				for _, m := range members {
					_ = m.Close()
				}
				return nil, fmt.Errorf("composite member %s: %w", name, err)
			}
			members = append(members, repo)
		}
		return composite.New(members...), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// MemoryRepo is the in-process repository used by tests and as the default
// backend. Reads return clones so callers cannot mutate stored state.
type MemoryRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	users    map[string]*domain.User
	trades   map[string][]*domain.TradeRecord
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{
		accounts: make(map[string]*domain.Account),
		users:    make(map[string]*domain.User),
		trades:   make(map[string][]*domain.TradeRecord),
	}
}

func (r *MemoryRepo) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[userID]
	if !ok {
		return nil, port.ErrNotFound
	}
	return acc.Clone(), nil
}

func (r *MemoryRepo) PutAccount(ctx context.Context, acc *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.accounts[acc.UserID]; ok && prev.UpdatedAt.After(acc.UpdatedAt) {
		// last-write-wins: an older write never clobbers a newer record
		return nil
	}
	r.accounts[acc.UserID] = acc.Clone()
	return nil
}

func (r *MemoryRepo) GetUser(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[email]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) PutUser(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *MemoryRepo) AppendTrade(ctx context.Context, rec *domain.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.trades[rec.UserID] = append(r.trades[rec.UserID], &cp)
	return nil
}

func (r *MemoryRepo) ListTrades(ctx context.Context, userID string, limit int) ([]*domain.TradeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.trades[userID]
	out := make([]*domain.TradeRecord, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		cp := *rows[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ts.After(out[j].Ts) })
	return out, nil
}

func (r *MemoryRepo) Close() error { return nil }

var _ port.Repository = (*MemoryRepo)(nil)
