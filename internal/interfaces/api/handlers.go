package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"gltrade/internal/application/service"
	"gltrade/internal/domain"
)

const defaultTradeLimit = 50

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, priceViews(s.sim.Current()))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user", "userID is required")
		return
	}

	acc, err := s.ledger.LoadOrInit(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, accountView(acc))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := s.ledger.Trades(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tradeViews(recs))
}

func (s *Server) handlePostTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.UserID == "" || req.Symbol == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "userId and symbol are required")
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_side", err.Error())
		return
	}
	qty, err := domain.QuantityFromFloat(req.Qty)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		return
	}

	acc, err := s.ledger.ExecuteTrade(r.Context(), req.UserID, req.Symbol, side, qty)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidQuantity):
			respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		case errors.Is(err, domain.ErrPriceUnavailable):
			respondError(w, http.StatusBadRequest, "price_unavailable", err.Error())
		case errors.Is(err, domain.ErrInsufficientBalance):
			respondError(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error())
		case errors.Is(err, domain.ErrInsufficientHoldings):
			respondError(w, http.StatusUnprocessableEntity, "insufficient_holdings", err.Error())
		case errors.Is(err, domain.ErrPersistenceFailure):
			// The trade applied locally; report the degraded state but
			// return the account so the client stays consistent.
			log.Warn().Err(err).Str("user", req.UserID).Msg("trade persisted locally only")
			respondJSON(w, http.StatusOK, accountView(acc))
		default:
			respondError(w, http.StatusInternalServerError, "trade_failed", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, accountView(acc))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	u, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "email_taken", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "register_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, userView(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	u, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "login_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, userView(u))
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Guest(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "guest_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, userView(u))
}

func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, chartResponse(s.chart.View()))
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.news.Headlines(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
