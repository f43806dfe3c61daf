package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		HTTPAddr string `toml:"http_addr"`
		LogLevel string `toml:"log_level"`
		// Console mirrors the live ticker to stdout for local runs.
		Console bool `toml:"console"`
	} `toml:"app"`

	Market struct {
		TickSeconds int                `toml:"tick_seconds"`
		Assets      map[string]float64 `toml:"assets"`
	} `toml:"market"`

	Ledger struct {
		SeedBalance      float64 `toml:"seed_balance"`
		PersistRetries   int     `toml:"persist_retries"`
		PersistBackoffMs int     `toml:"persist_backoff_ms"`
	} `toml:"ledger"`

	Chart struct {
		SeedCandles   int     `toml:"seed_candles"`
		MaxCandles    int     `toml:"max_candles"`
		StartPrice    float64 `toml:"start_price"`
		OverlayPeriod int     `toml:"overlay_period"`
	} `toml:"chart"`

	News struct {
		APIKey     string `toml:"api_key"`
		RefreshMin int    `toml:"refresh_min"`
	} `toml:"news"`

	Storage struct {
		// Backend selects the persistence implementation once at startup:
		// memory, sqlite, postgres, redis or composite.
		Backend     string   `toml:"backend"`
		Backends    []string `toml:"backends"` // composite members
		SQLitePath  string   `toml:"sqlite_path"`
		PostgresDSN string   `toml:"postgres_dsn"`
		RedisAddr   string   `toml:"redis_addr"`
		RedisPrefix string   `toml:"redis_prefix"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets the environment override secrets and DSNs so they stay out
// of the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GLTRADE_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("GLTRADE_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("GLTRADE_NEWS_API_KEY"); v != "" {
		cfg.News.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = ":8080"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Market.TickSeconds <= 0 {
		cfg.Market.TickSeconds = 2
	}
	if cfg.Ledger.SeedBalance <= 0 {
		cfg.Ledger.SeedBalance = 100000
	}
	if cfg.Ledger.PersistRetries <= 0 {
		cfg.Ledger.PersistRetries = 1
	}
	if cfg.Ledger.PersistBackoffMs <= 0 {
		cfg.Ledger.PersistBackoffMs = 250
	}
	if cfg.Chart.SeedCandles <= 0 {
		cfg.Chart.SeedCandles = 60
	}
	if cfg.Chart.MaxCandles <= 0 {
		cfg.Chart.MaxCandles = 200
	}
	if cfg.Chart.StartPrice <= 0 {
		cfg.Chart.StartPrice = 21500
	}
	if cfg.Chart.OverlayPeriod <= 0 {
		cfg.Chart.OverlayPeriod = 20
	}
	if cfg.News.RefreshMin <= 0 {
		cfg.News.RefreshMin = 5
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/gltrade.db"
	}
	if cfg.Storage.RedisPrefix == "" {
		cfg.Storage.RedisPrefix = "gltrade"
	}
}

func validate(cfg *Config) error {
	cfg.Market.Assets = normalizeAssets(cfg.Market.Assets)

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "memory", "sqlite", "postgres", "redis", "composite":
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	for _, b := range cfg.Storage.Backends {
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "memory", "sqlite", "postgres", "redis":
		case "composite":
			// A composite cannot nest itself.
			return errors.New("storage.backends must not contain composite")
		default:
			return fmt.Errorf("unknown storage backend %q", b)
		}
	}
	if cfg.Storage.Backend == "composite" && len(cfg.Storage.Backends) == 0 {
		return errors.New("storage.backends is empty but backend is composite")
	}
	if needsBackend(cfg, "postgres") && strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
		return errors.New("storage.postgres_dsn empty but postgres backend selected")
	}
	if needsBackend(cfg, "redis") && strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
		return errors.New("storage.redis_addr empty but redis backend selected")
	}
	return nil
}

func needsBackend(cfg *Config, name string) bool {
	if cfg.Storage.Backend == name {
		return true
	}
	for _, b := range cfg.Storage.Backends {
		if strings.EqualFold(strings.TrimSpace(b), name) {
			return true
		}
	}
	return false
}

func normalizeAssets(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for sym, price := range in {
		u := strings.ToUpper(strings.TrimSpace(sym))
		if u == "" || price <= 0 {
			continue
		}
		out[u] = price
	}
	return out
}
