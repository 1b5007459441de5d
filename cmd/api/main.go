package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"merchant-portal/config"
	"merchant-portal/internal/adapter/gateway/allpay"
	httpHandler "merchant-portal/internal/adapter/http/handler"
	pgStorage "merchant-portal/internal/adapter/storage/postgres"
	redisStorage "merchant-portal/internal/adapter/storage/redis"
	"merchant-portal/internal/core/ports"
	"merchant-portal/internal/service"
	"merchant-portal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Merchant Payment Portal")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	keyRepo := pgStorage.NewAPIKeyRepo(pool)
	usageRepo := pgStorage.NewUsageLogRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	dedupStore := redisStorage.NewWebhookDedupStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize gateway client
	gateway := allpay.NewClient(cfg.AllPay, log)

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, hashSvc, tokenSvc)
	paymentSvc := service.NewPaymentService(txRepo, gateway, transactor, dedupStore, log)
	apiKeySvc := service.NewAPIKeyService(keyRepo, usageRepo, hashSvc, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:         authSvc,
		PaymentSvc:      paymentSvc,
		APIKeySvc:       apiKeySvc,
		Gateway:         gateway,
		TokenSvc:        tokenSvc,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		UsageWindowDays: cfg.APIKeys.UsageWindowDays,
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
