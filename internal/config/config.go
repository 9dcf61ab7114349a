package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	LedgerGatewayURL string
	LedgerAPIKey     string
	IssuerAccount    string

	SatelliteURL string

	PolicyBundlePath string
	PolicyBundleID   string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	CutoffDate string

	AsyncWorkers   int
	AsyncQueueSize int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:         addr,
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		LogLevel:         envDefault("LOG_LEVEL", "info"),
		LedgerGatewayURL: os.Getenv("LEDGER_GATEWAY_URL"),
		LedgerAPIKey:     os.Getenv("LEDGER_API_KEY"),
		IssuerAccount:    os.Getenv("LEDGER_ISSUER_ACCOUNT"),
		SatelliteURL:     os.Getenv("SATELLITE_URL"),
		PolicyBundlePath: os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyBundleID:   envDefault("POLICY_BUNDLE_ID", "export_v0"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envIntDefault("REDIS_DB", 0),
		CacheTTLSeconds:  envIntDefault("STAGE_CACHE_TTL_SECONDS", 30),
		CutoffDate:       envDefault("REGULATORY_CUTOFF_DATE", "2020-12-31"),
		AsyncWorkers:     envIntDefault("ASYNC_WORKERS", 4),
		AsyncQueueSize:   envIntDefault("ASYNC_QUEUE_SIZE", 64),
	}
}

func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Cutoff parses the regulatory cutoff date, falling back to the
// EUDR cutoff when the configured value does not parse.
func (c Config) Cutoff() time.Time {
	t, err := time.Parse(time.DateOnly, c.CutoffDate)
	if err != nil {
		return time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return t
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
