package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gltrade/internal/application/port"
	"gltrade/internal/application/service"
	"gltrade/internal/domain"
	"gltrade/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, port.Repository) {
	t.Helper()

	repo := storage.NewMemory()
	rng := rand.New(rand.NewPCG(7, 11))

	sim := service.NewSimulator(domain.DefaultCatalog(), time.Second, port.NopSink{}, rng)
	ledger := service.NewLedger(repo, sim, port.NopSink{}, domain.SeedBalance, 1, time.Millisecond)
	auth := service.NewAuth(repo)
	chart := service.NewChart(10, 50, 5, domain.ChartStartPrice, rand.New(rand.NewPCG(3, 5)))
	news := service.NewNews("", time.Minute)

	srv := NewServer(sim, ledger, auth, chart, news, NewHub())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, repo
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGetPrices(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/prices")
	if err != nil {
		t.Fatalf("GET prices: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	prices := decodeBody[[]PriceView](t, resp)
	if len(prices) != 4 {
		t.Fatalf("got %d prices, want 4", len(prices))
	}
	seen := map[string]bool{}
	for _, p := range prices {
		seen[p.Symbol] = true
		if p.Price <= 0 {
			t.Errorf("%s price = %v, want > 0", p.Symbol, p.Price)
		}
	}
	for _, sym := range []string{"BTC", "ETH", "GOOG", "TSLA"} {
		if !seen[sym] {
			t.Errorf("missing symbol %s", sym)
		}
	}
}

func TestGetAccountSeedsNewUser(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/accounts/alice")
	if err != nil {
		t.Fatalf("GET account: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	acc := decodeBody[AccountView](t, resp)
	if acc.UserID != "alice" {
		t.Errorf("userId = %q, want alice", acc.UserID)
	}
	if acc.Balance != 100000 {
		t.Errorf("balance = %v, want 100000", acc.Balance)
	}
	if len(acc.Holdings) != 0 {
		t.Errorf("new account has holdings: %v", acc.Holdings)
	}
	if acc.Equity != 100000 {
		t.Errorf("equity = %v, want 100000", acc.Equity)
	}
}

func TestPostTradeBuyAndJournal(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/trades", TradeRequest{
		UserID: "bob", Symbol: "BTC", Side: "BUY", Qty: 1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	acc := decodeBody[AccountView](t, resp)
	if acc.Balance != 35000 {
		t.Errorf("balance = %v, want 35000", acc.Balance)
	}
	if acc.Holdings["BTC"].Qty != 1 {
		t.Errorf("BTC qty = %v, want 1", acc.Holdings["BTC"].Qty)
	}

	jresp, err := http.Get(ts.URL + "/api/v1/accounts/bob/trades")
	if err != nil {
		t.Fatalf("GET trades: %v", err)
	}
	trades := decodeBody[[]TradeView](t, jresp)
	if len(trades) != 1 {
		t.Fatalf("got %d journal entries, want 1", len(trades))
	}
	if trades[0].Symbol != "BTC" || trades[0].Side != "BUY" || trades[0].Cost != 65000 {
		t.Errorf("journal entry = %+v", trades[0])
	}
}

func TestPostTradeRejections(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		name       string
		req        TradeRequest
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown side",
			req:        TradeRequest{UserID: "u", Symbol: "BTC", Side: "HODL", Qty: 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_side",
		},
		{
			name:       "zero quantity",
			req:        TradeRequest{UserID: "u", Symbol: "BTC", Side: "BUY", Qty: 0},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_quantity",
		},
		{
			name:       "unknown symbol",
			req:        TradeRequest{UserID: "u", Symbol: "DOGE", Side: "BUY", Qty: 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "price_unavailable",
		},
		{
			name:       "cannot afford",
			req:        TradeRequest{UserID: "u", Symbol: "BTC", Side: "BUY", Qty: 100},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "insufficient_balance",
		},
		{
			name:       "sell without holding",
			req:        TradeRequest{UserID: "u", Symbol: "ETH", Side: "SELL", Qty: 1},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "insufficient_holdings",
		},
		{
			name:       "missing user",
			req:        TradeRequest{Symbol: "BTC", Side: "BUY", Qty: 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/v1/trades", tc.req)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			e := decodeBody[ErrorResponse](t, resp)
			if e.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tc.wantCode)
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/auth/register", AuthRequest{Email: "Trader@Example.com", Password: "hunter2"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	u := decodeBody[UserView](t, resp)
	if u.Email != "trader@example.com" {
		t.Errorf("email = %q, want normalized lowercase", u.Email)
	}
	if u.Anonymous {
		t.Error("registered user marked anonymous")
	}

	dup := postJSON(t, ts.URL+"/api/v1/auth/register", AuthRequest{Email: "trader@example.com", Password: "other"})
	if dup.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", dup.StatusCode)
	}
	dup.Body.Close()

	login := postJSON(t, ts.URL+"/api/v1/auth/login", AuthRequest{Email: "trader@example.com", Password: "hunter2"})
	if login.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", login.StatusCode)
	}
	login.Body.Close()

	bad := postJSON(t, ts.URL+"/api/v1/auth/login", AuthRequest{Email: "trader@example.com", Password: "wrong"})
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", bad.StatusCode)
	}
	bad.Body.Close()

	guest := postJSON(t, ts.URL+"/api/v1/auth/guest", nil)
	if guest.StatusCode != http.StatusCreated {
		t.Fatalf("guest status = %d, want 201", guest.StatusCode)
	}
	g := decodeBody[UserView](t, guest)
	if !g.Anonymous {
		t.Error("guest not marked anonymous")
	}
	if g.ID == "" {
		t.Error("guest missing id")
	}
}

func TestGetChart(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/chart")
	if err != nil {
		t.Fatalf("GET chart: %v", err)
	}
	view := decodeBody[ChartResponse](t, resp)
	if len(view.Candles) != 10 {
		t.Fatalf("got %d candles, want 10", len(view.Candles))
	}
	for i, c := range view.Candles {
		if c.High < c.Low {
			t.Errorf("candle %d: high %v < low %v", i, c.High, c.Low)
		}
	}
	if len(view.Overlay) == 0 {
		t.Error("expected SMA overlay with 10 seeded candles")
	}
}

func TestGetNewsFallback(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/news")
	if err != nil {
		t.Fatalf("GET news: %v", err)
	}
	headlines := decodeBody[[]service.Headline](t, resp)
	if len(headlines) == 0 {
		t.Fatal("no headlines returned")
	}
	for _, h := range headlines {
		if h.Title == "" {
			t.Error("headline with empty title")
		}
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestTradeLimitValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/accounts/u/trades?limit=-3")
	if err != nil {
		t.Fatalf("GET trades: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAccountViewRoundTrip(t *testing.T) {
	// The wire shape must match the persisted document shape field for field.
	acc := domain.NewAccount("u1", decimal.NewFromInt(100000))
	view := accountView(acc)
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"userId", "balance", "holdings", "portfolioValue", "equity", "updatedAt"} {
		if !bytes.Contains(raw, []byte(fmt.Sprintf("%q", key))) {
			t.Errorf("serialized account missing %q field", key)
		}
	}
}
