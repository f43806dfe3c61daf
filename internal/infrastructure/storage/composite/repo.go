package composite

import (
	"context"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

// Repo mirrors every write to all member repositories and serves reads from
// the first one. This is the "cloud store plus local fallback" arrangement:
// the primary is the read path, the rest are write-through mirrors.
type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) primary() port.Repository {
	if len(r.repos) == 0 {
		return nil
	}
	return r.repos[0]
}

func (r *Repo) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	p := r.primary()
	if p == nil {
		return nil, port.ErrNotFound
	}
	return p.GetAccount(ctx, userID)
}

func (r *Repo) PutAccount(ctx context.Context, acc *domain.Account) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.PutAccount(ctx, acc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) GetUser(ctx context.Context, email string) (*domain.User, error) {
	p := r.primary()
	if p == nil {
		return nil, port.ErrNotFound
	}
	return p.GetUser(ctx, email)
}

func (r *Repo) PutUser(ctx context.Context, u *domain.User) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.PutUser(ctx, u); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) AppendTrade(ctx context.Context, rec *domain.TradeRecord) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.AppendTrade(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) ListTrades(ctx context.Context, userID string, limit int) ([]*domain.TradeRecord, error) {
	p := r.primary()
	if p == nil {
		return nil, nil
	}
	return p.ListTrades(ctx, userID, limit)
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Repository = (*Repo)(nil)
