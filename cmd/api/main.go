package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"autostudio/internal/adapter/repo"
	"autostudio/internal/http/handlers"
	"autostudio/internal/http/httpapi"
	"autostudio/internal/infra"
	"autostudio/internal/infra/geoip"
	"autostudio/internal/jobs"
	"autostudio/internal/middleware"
	"autostudio/internal/provider"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	cache, err := infra.NewCache(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer func() { _ = cache.Close() }()
	if cache == nil {
		logger.Warn().Msg("redis not configured, webhook dedupe relies on state machine idempotency only")
	}

	countryResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, locale detection degrades to headers")
	}
	var lookup middleware.CountryLookup
	if countryResolver != nil {
		lookup = countryResolver.CountryCode
	}

	providerClient := provider.NewClient(provider.Options{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
		Timeout: cfg.ProviderTimeout,
	})

	jobRepo := repo.NewJobRepository(dbpool)
	applier := jobs.NewApplier(jobRepo, logger)
	orchestrator := jobs.NewOrchestrator(jobRepo, providerClient, logger, cfg.PublicBaseURL)
	reconciler := jobs.NewReconciler(jobRepo, applier, cache, logger)
	pollGateway := jobs.NewPollGateway(jobRepo, providerClient, applier, logger)

	app := handlers.NewApp(orchestrator, reconciler, pollGateway, jobRepo, logger)
	router := httpapi.NewRouter(app, cfg, logger, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
