package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	webAdapter "retail-backoffice/internal/adapters/web"
	"retail-backoffice/internal/app"
	"retail-backoffice/internal/catalog"
	"retail-backoffice/internal/config"
	"retail-backoffice/internal/core"
	"retail-backoffice/internal/db"
	"retail-backoffice/internal/tax"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := db.NewStore(pool)

	var products catalog.Source = catalog.NewPostgres(pool)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, catalog reads fall through to postgres", "addr", cfg.RedisAddr, "error", err)
		}
		products = catalog.NewCache(rdb, products, cfg.CatalogCacheTTL, logger)
	}

	rates := tax.NewRateTable(cfg.TaxDefaultRate, cfg.TaxRates)
	policy := core.ApprovalPolicy{
		ThresholdCents:   core.Cents(cfg.ApprovalThresholdCents),
		ThresholdPercent: cfg.ApprovalThresholdPercent,
	}

	ledger := core.NewVersionLedger(store)
	amendments := core.NewAmendmentService(store, products, products, rates, ledger, policy, logger)
	fulfillment := core.NewFulfillmentService(store, rates, ledger, logger)

	svc := app.NewAppService(amendments, ledger, fulfillment)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, logger)

	logger.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}
