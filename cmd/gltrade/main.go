package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gltrade/internal/application/port"
	"gltrade/internal/application/service"
	"gltrade/internal/domain"
	"gltrade/internal/infrastructure/config"
	"gltrade/internal/infrastructure/logger"
	"gltrade/internal/infrastructure/storage"
	"gltrade/internal/interfaces/api"
	"gltrade/internal/interfaces/console"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	// Secrets like the news API key come from .env in local setups.
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("open storage failed")
	}
	defer repo.Close()

	catalog := domain.DefaultCatalog()
	if len(cfg.Market.Assets) > 0 {
		catalog = domain.NewSnapshot(cfg.Market.Assets)
	}

	hub := api.NewHub()
	var sink port.Sink = hub
	if cfg.App.Console {
		ticker := console.NewSink()
		defer ticker.Close()
		sink = port.MultiSink{hub, ticker}
	}

	sim := service.NewSimulator(catalog, time.Duration(cfg.Market.TickSeconds)*time.Second, sink, nil)
	ledger := service.NewLedger(
		repo,
		sim,
		sink,
		decimal.NewFromFloat(cfg.Ledger.SeedBalance),
		cfg.Ledger.PersistRetries,
		time.Duration(cfg.Ledger.PersistBackoffMs)*time.Millisecond,
	)
	auth := service.NewAuth(repo)
	chart := service.NewChart(cfg.Chart.SeedCandles, cfg.Chart.MaxCandles, cfg.Chart.OverlayPeriod, cfg.Chart.StartPrice, nil)
	news := service.NewNews(cfg.News.APIKey, time.Duration(cfg.News.RefreshMin)*time.Minute)

	go hub.Run(ctx)
	go sim.Run(ctx)
	go chart.Run(ctx)

	server := api.NewServer(sim, ledger, auth, chart, news, hub)

	log.Info().
		Str("config", *configPath).
		Str("addr", cfg.App.HTTPAddr).
		Str("storage", cfg.Storage.Backend).
		Int("assets", len(catalog)).
		Int("tick_seconds", cfg.Market.TickSeconds).
		Msg("gltrade started")

	if err := server.Start(ctx, cfg.App.HTTPAddr); err != nil {
		log.Error().Err(err).Msg("http server exited")
	}
}
