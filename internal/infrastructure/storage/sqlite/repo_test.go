package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAccountRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	acc := domain.NewAccount("u1", domain.SeedBalance)
	acc.Holdings["BTC"] = domain.Holding{Qty: decimal.RequireFromString("1.23456789")}
	acc.PortfolioValue = decimal.RequireFromString("80247.69")
	acc.Equity = decimal.RequireFromString("180247.69")
	acc.UpdatedAt = time.Now()

	if err := repo.PutAccount(ctx, acc); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}

	got, err := repo.GetAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.Balance.Equal(acc.Balance) {
		t.Errorf("balance %s != %s", got.Balance, acc.Balance)
	}
	if !got.Holdings["BTC"].Qty.Equal(acc.Holdings["BTC"].Qty) {
		t.Errorf("holding %s != %s", got.Holdings["BTC"].Qty, acc.Holdings["BTC"].Qty)
	}
	if !got.Equity.Equal(acc.Equity) {
		t.Errorf("equity %s != %s", got.Equity, acc.Equity)
	}
}

func TestGetAccountMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetAccount(context.Background(), "nobody")
	if !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutAccountLastWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	newer := domain.NewAccount("u1", decimal.NewFromInt(500))
	newer.UpdatedAt = now
	if err := repo.PutAccount(ctx, newer); err != nil {
		t.Fatalf("PutAccount failed: %v", err)
	}

	stale := domain.NewAccount("u1", decimal.NewFromInt(999))
	stale.UpdatedAt = now.Add(-time.Minute)
	if err := repo.PutAccount(ctx, stale); err != nil {
		t.Fatalf("stale PutAccount failed: %v", err)
	}

	got, err := repo.GetAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("stale write clobbered newer record: balance %s", got.Balance)
	}
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := &domain.User{ID: "u-1", Email: "a@b.c", Password: "pw", CreatedAt: time.Now()}
	if err := repo.PutUser(ctx, u); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	got, err := repo.GetUser(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.ID != u.ID || got.Password != u.Password || got.Anonymous {
		t.Errorf("unexpected user: %+v", got)
	}

	if _, err := repo.GetUser(ctx, "missing@b.c"); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTradeJournal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		rec := &domain.TradeRecord{
			ID:     "t" + string(rune('0'+i)),
			UserID: "u1",
			Symbol: "BTC",
			Side:   domain.SideBuy,
			Qty:    decimal.NewFromInt(1),
			Price:  decimal.NewFromInt(65000),
			Cost:   decimal.NewFromInt(65000),
			Ts:     base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.AppendTrade(ctx, rec); err != nil {
			t.Fatalf("AppendTrade failed: %v", err)
		}
	}

	trades, err := repo.ListTrades(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListTrades failed: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].ID != "t2" {
		t.Errorf("expected newest first, got %s", trades[0].ID)
	}
}
