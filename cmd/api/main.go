package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"aicam/internal/adapter/repo"
	"aicam/internal/camera"
	"aicam/internal/http/handlers"
	"aicam/internal/http/httpapi"
	"aicam/internal/infra"
	"aicam/internal/infra/credentials"
	"aicam/internal/inspiration"
	"aicam/internal/jobs"
	"aicam/internal/orchestrator"
	"aicam/internal/persona"
	"aicam/internal/provider"
	"aicam/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	creds := credentials.NewStore(runner)
	jobStore := repo.NewJobRepository(runner)
	captureStore := repo.NewCaptureRepository(runner)

	files, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize artifact storage")
	}

	client, err := buildProvider(ctx, cfg, creds, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure AI provider")
	}
	logger.Info().Str("provider", client.Name()).Msg("AI provider configured")

	prompts := persona.NewLibrary()
	source := camera.NewStaticSource()

	controller := inspiration.NewController(inspiration.ControllerOptions{
		Client:       client,
		Source:       source,
		Prompts:      prompts,
		DeepThinking: cfg.DeepThinking,
		Logger:       logger,
	})

	var orc *orchestrator.Orchestrator
	tracker := jobs.NewTracker(jobs.TrackerOptions{
		Ctx:          ctx,
		Client:       client,
		Store:        jobStore,
		Logger:       logger,
		PollInterval: cfg.JobPollInterval,
		MaxAttempts:  cfg.JobMaxAttempts,
		OnResult: func(res jobs.Result) {
			orc.HandleJobResult(res)
		},
	})

	orc = orchestrator.New(orchestrator.Options{
		Client:     client,
		Controller: controller,
		Tracker:    tracker,
		Source:     source,
		Prompts:    prompts,
		Captures:   captureStore,
		Jobs:       jobStore,
		Files:      files,
		Logger:     logger,
	})
	source.OnFirstFrame(orc.AutoTrigger)
	source.Start()

	if err := tracker.Resume(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to resume generation jobs")
	}

	app := handlers.NewApp(orc, source, creds, logger)
	router := httpapi.NewRouter(app, cfg, logger)
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
	controller.Cancel()
	source.Stop()
	tracker.Wait()
	logger.Info().Msg("server stopped")
}

// buildProvider selects and configures the AI client. Environment keys
// win; the credentials table is the fallback.
func buildProvider(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) (provider.Client, error) {
	switch cfg.AIProvider {
	case "openai":
		key := strings.TrimSpace(cfg.OpenAIAPIKey)
		if key == "" {
			stored, err := creds.OpenAIAPIKey(ctx)
			if err != nil {
				return nil, err
			}
			key = stored
		}
		return provider.NewOpenAIClient(provider.OpenAIOptions{
			APIKey:     key,
			BaseURL:    cfg.OpenAIBaseURL,
			VLMModel:   cfg.OpenAIModel,
			ImageModel: cfg.OpenAIImageModel,
			Logger:     &logger,
		}), nil
	default:
		key := strings.TrimSpace(cfg.ArkAPIKey)
		if key == "" {
			stored, err := creds.DoubaoAPIKey(ctx)
			if err != nil {
				return nil, err
			}
			key = stored
		}
		return provider.NewDoubaoClient(provider.DoubaoOptions{
			APIKey:         key,
			BaseURL:        cfg.ArkBaseURL,
			VLMModel:       cfg.ArkVLMModel,
			ImageEditModel: cfg.ArkImageModel,
			VideoModel:     cfg.ArkVideoModel,
			Logger:         &logger,
		}), nil
	}
}
