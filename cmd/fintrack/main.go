package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/services"
)

const (
	reportCacheSize      = 1000
	cacheCleanupInterval = time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()
	store := result.Store

	// Event publishing is optional; the API keeps working without a broker.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			publisher = client
			defer client.Close()
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	reportCache := cache.NewLRUCache[core.AnalyticsReport](reportCacheSize, cfg.AnalyticsCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentAnalytics))
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(cacheCleanupInterval)
	defer cacheManager.Stop()

	hub := notify.NewHub(cfg.AllowedOrigins, logger)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	classifier := core.NewClassifier(core.DefaultRules())
	analytics := services.NewAnalyticsService(store, core.Thresholds{
		OverspendRatio:     cfg.OverspendRatio,
		ConcentrationRatio: cfg.ConcentrationRatio,
	}, reportCache, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		TrustedProxies: cfg.TrustedProxies,
	}, apphttp.Dependencies{
		Auth:         services.NewAuthService(store, tokens, auth.NewHasher(cfg.BcryptCost), logger),
		Transactions: services.NewTransactionService(store, classifier, publisher, logger, analytics, hub),
		Imports:      services.NewImportService(store, classifier, publisher, logger, analytics, hub),
		Analytics:    analytics,
		Activity:     services.NewActivityService(store),
		Tokens:       tokens,
		Store:        store,
		Hub:          hub,
		ReportCache:  reportCache,
		Logger:       logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
