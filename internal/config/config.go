package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the process configuration read from the environment.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string
	LogLevel       slog.Level

	RedisAddr       string
	CatalogCacheTTL time.Duration

	ApprovalThresholdCents   int64
	ApprovalThresholdPercent decimal.Decimal

	TaxDefaultRate decimal.Decimal
	// TaxRates maps a jurisdiction code to its rate as a fraction (0.0825 for 8.25%).
	TaxRates map[string]decimal.Decimal
}

// Load reads the configuration from the environment. Callers that want .env
// support call godotenv.Load first.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     getenv("SERVER_PORT", "8080"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getenv("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}
	if cfg.CatalogCacheTTL, err = time.ParseDuration(getenv("CATALOG_CACHE_TTL", "30s")); err != nil {
		return Config{}, fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}
	if cfg.ApprovalThresholdCents, err = strconv.ParseInt(getenv("APPROVAL_THRESHOLD_CENTS", "10000"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("invalid APPROVAL_THRESHOLD_CENTS: %w", err)
	}
	if cfg.ApprovalThresholdCents < 0 {
		return Config{}, fmt.Errorf("APPROVAL_THRESHOLD_CENTS cannot be negative")
	}
	if cfg.ApprovalThresholdPercent, err = decimal.NewFromString(getenv("APPROVAL_THRESHOLD_PERCENT", "10")); err != nil {
		return Config{}, fmt.Errorf("invalid APPROVAL_THRESHOLD_PERCENT: %w", err)
	}
	if cfg.ApprovalThresholdPercent.IsNegative() {
		return Config{}, fmt.Errorf("APPROVAL_THRESHOLD_PERCENT cannot be negative")
	}
	if cfg.TaxDefaultRate, err = parseRate(getenv("TAX_DEFAULT_RATE", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid TAX_DEFAULT_RATE: %w", err)
	}
	if cfg.TaxRates, err = ParseTaxRates(os.Getenv("TAX_RATES")); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseTaxRates parses "CA=0.0725,NY=0.08" into a rate table. Jurisdiction
// codes are upper-cased.
func ParseTaxRates(s string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, "=")
		code = strings.ToUpper(strings.TrimSpace(code))
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid TAX_RATES entry %q: expected JURISDICTION=rate", pair)
		}
		rate, err := parseRate(value)
		if err != nil {
			return nil, fmt.Errorf("invalid TAX_RATES entry %q: %w", pair, err)
		}
		rates[code] = rate
	}
	return rates, nil
}

func parseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("rate %s must be a fraction in [0, 1)", d)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
