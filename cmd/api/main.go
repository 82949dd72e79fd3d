package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"aiwriter/internal/adapter/repo"
	"aiwriter/internal/http/handlers"
	httpapi "aiwriter/internal/http/httpapi"
	"aiwriter/internal/infra"
	"aiwriter/internal/infra/geoip"
	"aiwriter/internal/license"
	"aiwriter/internal/middleware"
	"aiwriter/internal/openai"
	"aiwriter/internal/quota"
	"aiwriter/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	var countryLookup middleware.CountryLookup
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip database unavailable, language detection degrades to headers")
		} else {
			defer resolver.Close()
			countryLookup = resolver.CountryCode
		}
	}

	client, err := openai.NewClient(openai.Options{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAITextModel,
		ImageModel:   cfg.OpenAIImageModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		Temperature:  cfg.OpenAITemp,
		MaxTokens:    cfg.OpenAIMaxTokens,
		HTTPClient:   &http.Client{Timeout: cfg.OpenAITimeout},
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure openai client")
	}

	jobs := repo.NewJobRepository(runner)
	articles := repo.NewArticleRepository(runner)
	sites := repo.NewSiteRepository(runner)
	schedules := repo.NewScheduleRepository(runner)
	gate := quota.NewGate(runner, cfg.ImageGlobalCap)
	completions := openai.NewStructuredClient(client, logger)

	app := handlers.NewApp(
		jobs,
		articles,
		sites,
		license.NewService(sites, logger),
		scheduler.NewService(schedules, sites, jobs, gate, completions, cfg.DefaultLanguage, logger),
		gate,
		cfg.DefaultLanguage,
		logger,
	)

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLanguage: cfg.DefaultLanguage,
		CountryLookup:   countryLookup,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
