package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"gltrade/internal/application/service"
)

// Server exposes the simulator, ledger, auth, chart and news services over
// REST and WebSocket.
type Server struct {
	sim    *service.Simulator
	ledger *service.Ledger
	auth   *service.Auth
	chart  *service.Chart
	news   *service.News
	hub    *Hub
	router *mux.Router
}

func NewServer(sim *service.Simulator, ledger *service.Ledger, auth *service.Auth, chart *service.Chart, news *service.News, hub *Hub) *Server {
	s := &Server{
		sim:    sim,
		ledger: ledger,
		auth:   auth,
		chart:  chart,
		news:   news,
		hub:    hub,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/prices", s.handleGetPrices).Methods("GET")

	api.HandleFunc("/accounts/{userID}", s.handleGetAccount).Methods("GET")
	api.HandleFunc("/accounts/{userID}/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/trades", s.handlePostTrade).Methods("POST")

	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/guest", s.handleGuest).Methods("POST")

	api.HandleFunc("/chart", s.handleGetChart).Methods("GET")
	api.HandleFunc("/news", s.handleGetNews).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed handler with CORS applied. Exposed so tests can
// drive the server through httptest.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, ErrorResponse{Code: code, Error: msg})
}
