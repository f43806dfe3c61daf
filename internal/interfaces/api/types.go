package api

import (
	"gltrade/internal/application/service"
	"gltrade/internal/domain"
)

type PriceView struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type HoldingView struct {
	Qty float64 `json:"qty"`
}

type AccountView struct {
	UserID         string                 `json:"userId"`
	Balance        float64                `json:"balance"`
	Holdings       map[string]HoldingView `json:"holdings"`
	PortfolioValue float64                `json:"portfolioValue"`
	Equity         float64                `json:"equity"`
	UpdatedAt      int64                  `json:"updatedAt"`
}

type TradeRequest struct {
	UserID string  `json:"userId"`
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Qty    float64 `json:"qty"`
}

type TradeView struct {
	ID     string  `json:"id"`
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Qty    float64 `json:"qty"`
	Price  float64 `json:"price"`
	Cost   float64 `json:"cost"`
	Ts     int64   `json:"ts_ms"`
}

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

type CandleView struct {
	Ts    int64   `json:"ts_ms"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type ChartResponse struct {
	Candles []CandleView `json:"candles"`
	Overlay []float64    `json:"overlay,omitempty"`
}

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func priceViews(snap domain.Snapshot) []PriceView {
	out := make([]PriceView, 0, len(snap))
	for _, sym := range snap.Symbols() {
		out = append(out, PriceView{Symbol: sym, Price: snap[sym].Price.InexactFloat64()})
	}
	return out
}

func accountView(acc *domain.Account) AccountView {
	holdings := make(map[string]HoldingView, len(acc.Holdings))
	for sym, h := range acc.Holdings {
		holdings[sym] = HoldingView{Qty: h.Qty.InexactFloat64()}
	}
	return AccountView{
		UserID:         acc.UserID,
		Balance:        acc.Balance.InexactFloat64(),
		Holdings:       holdings,
		PortfolioValue: acc.PortfolioValue.InexactFloat64(),
		Equity:         acc.Equity.InexactFloat64(),
		UpdatedAt:      acc.UpdatedAt.UnixMilli(),
	}
}

func tradeViews(recs []*domain.TradeRecord) []TradeView {
	out := make([]TradeView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, TradeView{
			ID:     rec.ID,
			Symbol: rec.Symbol,
			Side:   string(rec.Side),
			Qty:    rec.Qty.InexactFloat64(),
			Price:  rec.Price.InexactFloat64(),
			Cost:   rec.Cost.InexactFloat64(),
			Ts:     rec.Ts.UnixMilli(),
		})
	}
	return out
}

func userView(u *domain.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, Anonymous: u.Anonymous}
}

func chartResponse(view service.ChartView) ChartResponse {
	candles := make([]CandleView, 0, len(view.Candles))
	for _, c := range view.Candles {
		candles = append(candles, CandleView{
			Ts:    c.Ts.UnixMilli(),
			Open:  c.Open,
			High:  c.High,
			Low:   c.Low,
			Close: c.Close,
		})
	}
	return ChartResponse{Candles: candles, Overlay: view.Overlay}
}
