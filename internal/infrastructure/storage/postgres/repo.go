package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

// Repo is the postgres backend, wired through pgx's database/sql driver.
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
  user_id TEXT PRIMARY KEY,
  balance DOUBLE PRECISION NOT NULL,
  holdings JSONB NOT NULL,
  portfolio_value DOUBLE PRECISION NOT NULL,
  equity DOUBLE PRECISION NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
  email TEXT PRIMARY KEY,
  id TEXT NOT NULL,
  password TEXT NOT NULL,
  anonymous BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  qty DOUBLE PRECISION NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  cost DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);
`)
	return err
}

func (r *Repo) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	var (
		balance, pv, equity float64
		holdings            []byte
		updatedMs           int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT balance, holdings, portfolio_value, equity, updated_at FROM accounts WHERE user_id=$1`, userID).
		Scan(&balance, &holdings, &pv, &equity, &updatedMs)
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	h, err := decodeHoldings(holdings)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", userID, err)
	}
	return &domain.Account{
		UserID:         userID,
		Balance:        domain.RoundCurrency(decimal.NewFromFloat(balance)),
		Holdings:       h,
		PortfolioValue: domain.RoundCurrency(decimal.NewFromFloat(pv)),
		Equity:         domain.RoundCurrency(decimal.NewFromFloat(equity)),
		UpdatedAt:      time.UnixMilli(updatedMs),
	}, nil
}

func (r *Repo) PutAccount(ctx context.Context, acc *domain.Account) error {
	holdings, err := encodeHoldings(acc.Holdings)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts(user_id, balance, holdings, portfolio_value, equity, updated_at)
		VALUES($1, $2, $3, $4, $5, $6)
		ON CONFLICT(user_id) DO UPDATE SET
		balance=excluded.balance, holdings=excluded.holdings,
		portfolio_value=excluded.portfolio_value, equity=excluded.equity,
		updated_at=excluded.updated_at
		WHERE excluded.updated_at >= accounts.updated_at
	`, acc.UserID, acc.Balance.InexactFloat64(), holdings,
		acc.PortfolioValue.InexactFloat64(), acc.Equity.InexactFloat64(),
		acc.UpdatedAt.UnixMilli())
	return err
}

func (r *Repo) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var (
		u         domain.User
		createdMs int64
	)
	u.Email = email
	err := r.db.QueryRowContext(ctx,
		`SELECT id, password, anonymous, created_at FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Password, &u.Anonymous, &createdMs)
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(createdMs)
	return &u, nil
}

func (r *Repo) PutUser(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(email, id, password, anonymous, created_at)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT(email) DO UPDATE SET
		password=excluded.password, anonymous=excluded.anonymous
	`, u.Email, u.ID, u.Password, u.Anonymous, u.CreatedAt.UnixMilli())
	return err
}

func (r *Repo) AppendTrade(ctx context.Context, rec *domain.TradeRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trades(id, user_id, symbol, side, qty, price, cost, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.UserID, rec.Symbol, string(rec.Side),
		rec.Qty.InexactFloat64(), rec.Price.InexactFloat64(), rec.Cost.InexactFloat64(),
		rec.Ts.UnixMilli())
	return err
}

func (r *Repo) ListTrades(ctx context.Context, userID string, limit int) ([]*domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, side, qty, price, cost, ts_ms
		FROM trades WHERE user_id=$1 ORDER BY ts_ms DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.TradeRecord
	for rows.Next() {
		var (
			rec              domain.TradeRecord
			side             string
			qty, price, cost float64
			tsMs             int64
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &side, &qty, &price, &cost, &tsMs); err != nil {
			return nil, err
		}
		rec.UserID = userID
		rec.Side = domain.Side(side)
		rec.Qty = domain.RoundQuantity(decimal.NewFromFloat(qty))
		rec.Price = domain.RoundCurrency(decimal.NewFromFloat(price))
		rec.Cost = domain.RoundCurrency(decimal.NewFromFloat(cost))
		rec.Ts = time.UnixMilli(tsMs)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

type holdingDoc struct {
	Qty float64 `json:"qty"`
}

func encodeHoldings(h map[string]domain.Holding) ([]byte, error) {
	doc := make(map[string]holdingDoc, len(h))
	for sym, hold := range h {
		doc[sym] = holdingDoc{Qty: hold.Qty.InexactFloat64()}
	}
	return json.Marshal(doc)
}

func decodeHoldings(b []byte) (map[string]domain.Holding, error) {
	var doc map[string]holdingDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode holdings: %w", err)
	}
	out := make(map[string]domain.Holding, len(doc))
	for sym, h := range doc {
		out[sym] = domain.Holding{Qty: domain.RoundQuantity(decimal.NewFromFloat(h.Qty))}
	}
	return out, nil
}

var _ port.Repository = (*Repo)(nil)
