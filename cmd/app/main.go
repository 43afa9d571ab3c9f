// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-payment-bridge/internal/config"
	"storefront-payment-bridge/internal/domain/ports/repository"
	pg "storefront-payment-bridge/internal/infra/db/postgres"
	"storefront-payment-bridge/internal/infra/gateway"
	"storefront-payment-bridge/internal/infra/logging"
	"storefront-payment-bridge/internal/infra/metrics"
	"storefront-payment-bridge/internal/infra/sched"
	"storefront-payment-bridge/internal/infra/store/memory"
	"storefront-payment-bridge/internal/infra/store/redisstore"
	"storefront-payment-bridge/internal/infra/storefront"
	"storefront-payment-bridge/internal/infra/web"
	"storefront-payment-bridge/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Correlation store ----
	var store repository.CorrelationStore
	switch cfg.Store.Backend {
	case "redis":
		rs, err := redisstore.NewCorrelationStore(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis store")
		}
		defer rs.Close()
		store = rs
	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		repo := pg.NewCorrelationRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("postgres schema")
		}
		store = repo
	default:
		logger.Warn().Msg("using the in-memory correlation store; state will not survive a restart")
		store = memory.NewCorrelationStore()
	}

	// ---- Outbound clients ----
	pay := gateway.NewLikPayClient(cfg.Gateway.BaseURL, cfg.Gateway.AccessToken, cfg.Gateway.Timeout.Std())
	shop := storefront.NewShopifyClient(cfg.Storefront.Host, cfg.Storefront.AccessToken, cfg.Storefront.APIVersion, cfg.Gateway.Timeout.Std())

	// ---- Use cases ----
	intakeUC := usecase.NewIntakeUseCase(store, pay, logger)
	reconcileUC := usecase.NewReconcileUseCase(store, shop, logger)
	statusUC := usecase.NewStatusUseCase(store, pay)

	// ---- Inbound verification ----
	storefrontVerifier := web.NewStorefrontVerifier(cfg.Storefront.WebhookSecret)
	gatewayVerifier := web.NewGatewayVerifier(cfg.Gateway.WebhookSecret)
	if cfg.Gateway.WebhookSecret == "" {
		logger.Warn().Msg("gateway.webhook_secret is EMPTY: payment-result notifications are accepted UNVERIFIED; do not run this in production")
	}

	// ---- Fallback sweeper ----
	if cfg.Sweeper.Enabled {
		if pending, ok := store.(repository.PendingLister); ok {
			sweeper := sched.NewPendingSweeper(reconcileUC, pending, pay, cfg.Sweeper.Interval.Std(), cfg.Sweeper.StaleAfter.Std(), logger)
			go sweeper.Start(ctx)
		} else {
			logger.Warn().Str("backend", cfg.Store.Backend).Msg("store backend cannot enumerate pending orders; sweeper disabled")
		}
	}

	// ---- HTTP server ----
	server := web.NewServer(intakeUC, reconcileUC, statusUC, storefrontVerifier, gatewayVerifier, logger)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
