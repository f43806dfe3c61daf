package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

const journalCap = 500

// Repo is the remote document-store backend: one JSON document per account
// and per user, a capped list per trade journal.
type Repo struct {
	rdb    *redis.Client
	prefix string
}

func New(addr, prefix string) (*Repo, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Repo{rdb: rdb, prefix: prefix}, nil
}

func (r *Repo) Close() error { return r.rdb.Close() }

func (r *Repo) accountKey(userID string) string { return r.prefix + ":account:" + userID }
func (r *Repo) userKey(email string) string     { return r.prefix + ":user:" + email }
func (r *Repo) tradesKey(userID string) string  { return r.prefix + ":trades:" + userID }

// accountDoc is the durable account shape.
type accountDoc struct {
	UserID         string                `json:"userId"`
	Balance        float64               `json:"balance"`
	Holdings       map[string]holdingDoc `json:"holdings"`
	PortfolioValue float64               `json:"portfolioValue"`
	Equity         float64               `json:"equity"`
	UpdatedAt      int64                 `json:"updatedAt"`
}

type holdingDoc struct {
	Qty float64 `json:"qty"`
}

type userDoc struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Anonymous bool   `json:"anonymous"`
	CreatedAt int64  `json:"createdAt"`
}

type tradeDoc struct {
	ID     string  `json:"id"`
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Qty    float64 `json:"qty"`
	Price  float64 `json:"price"`
	Cost   float64 `json:"cost"`
	Ts     int64   `json:"ts_ms"`
}

func (r *Repo) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	raw, err := r.rdb.Get(ctx, r.accountKey(userID)).Result()
	if err == redis.Nil {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc accountDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", userID, err)
	}
	holdings := make(map[string]domain.Holding, len(doc.Holdings))
	for sym, h := range doc.Holdings {
		holdings[sym] = domain.Holding{Qty: domain.RoundQuantity(decimal.NewFromFloat(h.Qty))}
	}
	return &domain.Account{
		UserID:         userID,
		Balance:        domain.RoundCurrency(decimal.NewFromFloat(doc.Balance)),
		Holdings:       holdings,
		PortfolioValue: domain.RoundCurrency(decimal.NewFromFloat(doc.PortfolioValue)),
		Equity:         domain.RoundCurrency(decimal.NewFromFloat(doc.Equity)),
		UpdatedAt:      time.UnixMilli(doc.UpdatedAt),
	}, nil
}

func (r *Repo) PutAccount(ctx context.Context, acc *domain.Account) error {
	// last-write-wins: keep the stored document when it is newer. The
	// ledger serializes writers per account, so read-compare-set is enough.
	if prev, err := r.GetAccount(ctx, acc.UserID); err == nil && prev.UpdatedAt.After(acc.UpdatedAt) {
		return nil
	}

	holdings := make(map[string]holdingDoc, len(acc.Holdings))
	for sym, h := range acc.Holdings {
		holdings[sym] = holdingDoc{Qty: h.Qty.InexactFloat64()}
	}
	doc := accountDoc{
		UserID:         acc.UserID,
		Balance:        acc.Balance.InexactFloat64(),
		Holdings:       holdings,
		PortfolioValue: acc.PortfolioValue.InexactFloat64(),
		Equity:         acc.Equity.InexactFloat64(),
		UpdatedAt:      acc.UpdatedAt.UnixMilli(),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.accountKey(acc.UserID), b, 0).Err()
}

func (r *Repo) GetUser(ctx context.Context, email string) (*domain.User, error) {
	raw, err := r.rdb.Get(ctx, r.userKey(email)).Result()
	if err == redis.Nil {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc userDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", email, err)
	}
	return &domain.User{
		ID:        doc.ID,
		Email:     doc.Email,
		Password:  doc.Password,
		Anonymous: doc.Anonymous,
		CreatedAt: time.UnixMilli(doc.CreatedAt),
	}, nil
}

func (r *Repo) PutUser(ctx context.Context, u *domain.User) error {
	b, err := json.Marshal(userDoc{
		ID:        u.ID,
		Email:     u.Email,
		Password:  u.Password,
		Anonymous: u.Anonymous,
		CreatedAt: u.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.userKey(u.Email), b, 0).Err()
}

func (r *Repo) AppendTrade(ctx context.Context, rec *domain.TradeRecord) error {
	b, err := json.Marshal(tradeDoc{
		ID:     rec.ID,
		Symbol: rec.Symbol,
		Side:   string(rec.Side),
		Qty:    rec.Qty.InexactFloat64(),
		Price:  rec.Price.InexactFloat64(),
		Cost:   rec.Cost.InexactFloat64(),
		Ts:     rec.Ts.UnixMilli(),
	})
	if err != nil {
		return err
	}
	key := r.tradesKey(rec.UserID)
	pipe := r.rdb.Pipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, journalCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) ListTrades(ctx context.Context, userID string, limit int) ([]*domain.TradeRecord, error) {
	if limit <= 0 || limit > journalCap {
		limit = journalCap
	}
	rows, err := r.rdb.LRange(ctx, r.tradesKey(userID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*domain.TradeRecord, 0, len(rows))
	for _, raw := range rows {
		var doc tradeDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode trade: %w", err)
		}
		out = append(out, &domain.TradeRecord{
			ID:     doc.ID,
			UserID: userID,
			Symbol: doc.Symbol,
			Side:   domain.Side(doc.Side),
			Qty:    domain.RoundQuantity(decimal.NewFromFloat(doc.Qty)),
			Price:  domain.RoundCurrency(decimal.NewFromFloat(doc.Price)),
			Cost:   domain.RoundCurrency(decimal.NewFromFloat(doc.Cost)),
			Ts:     time.UnixMilli(doc.Ts),
		})
	}
	return out, nil
}

var _ port.Repository = (*Repo)(nil)
