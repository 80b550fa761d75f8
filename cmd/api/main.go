package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/adapter/repo"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/infra/geoip"
	"studio/internal/keygate"
	"studio/internal/media"
	"studio/internal/providers/genai"
	"studio/internal/providers/image"
	videoprovider "studio/internal/providers/video"
	"studio/internal/storage"
	"studio/internal/studio"
	"studio/internal/video"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it the key lives in memory and job
	// history is not recorded.
	var (
		keys     credentials.KeyStore
		recorder video.Recorder
		history  handlers.JobHistory
	)
	if cfg.HasDatabase() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()

		runner := infra.NewSQLRunner(pool, logger)
		store := credentials.NewStore(runner)
		if cfg.GeminiAPIKey != "" {
			if existing, err := store.GeminiAPIKey(ctx); err == nil && existing == "" {
				if err := store.SetGeminiAPIKey(ctx, cfg.GeminiAPIKey); err != nil {
					logger.Warn().Err(err).Msg("seed gemini api key")
				}
			}
		}
		jobs := repo.NewVideoJobRepository(runner)
		keys, recorder, history = store, jobs, jobs
	} else {
		logger.Warn().Msg("DATABASE_URL not set; api key kept in memory, video history disabled")
		keys = credentials.NewMemoryStore(cfg.GeminiAPIKey)
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise storage")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		EditModel:  cfg.GeminiEditModel,
		VideoModel: cfg.VeoModel,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}

	selector := credentials.NewSelector(keys, credentials.SubmittedKeyPrompt)
	gate := keygate.New(selector, keygate.Options{VerifyAfterSelect: cfg.KeyGateVerifyAfterSelect, Logger: &logger})
	if _, err := gate.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial api key check failed")
	}

	videos := videoprovider.NewGeminiGenerator(client, selector, fileStore, &logger)
	newRunner := func(viewID string) *video.Runner {
		return video.NewRunner(videos, gate, video.Options{
			ViewID:       viewID,
			Model:        client.VideoModel(),
			PollInterval: cfg.VideoPollInterval,
			Timeout:      cfg.VideoPollTimeout,
			Publisher:    videos,
			Recorder:     recorder,
			Logger:       &logger,
		})
	}
	registry := studio.NewRegistry(
		studio.NewGenerationClient(image.NewGeminiGenerator(client, selector), &logger),
		newRunner,
		studio.RegistryOptions{IdleTimeout: cfg.ViewIdleTimeout, Logger: &logger},
	)
	defer registry.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip database unavailable")
	}
	defer resolver.Close()

	app := handlers.NewApp(handlers.Options{
		Registry: registry,
		Gate:     gate,
		Encoder:  media.NewEncoder(cfg.MaxUploadBytes),
		Store:    fileStore,
		Jobs:     history,
		Logger:   &logger,
	})
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          &logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   "en",
		CountryLookup:   resolver.Lookup(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go sweepViews(ctx, registry, cfg.ViewIdleTimeout/4)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
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

// sweepViews closes idle views until ctx ends.
func sweepViews(ctx context.Context, registry *studio.Registry, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.Sweep()
		}
	}
}
