package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"genserver/internal/adapter/repo"
	"genserver/internal/domain/modelcfg"
	"genserver/internal/generation"
	httpapi "genserver/internal/http"
	"genserver/internal/http/handlers"
	"genserver/internal/infra"
	"genserver/internal/infra/geoip"
	"genserver/internal/llm"
	"genserver/internal/providers"
	"genserver/internal/providers/kie"
	"genserver/internal/providers/video"
	"genserver/internal/storage"
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

	catalog, err := modelcfg.Load(cfg.ModelsConfigPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.ModelsConfigPath).Msg("model catalog unavailable, using built-in rates")
		catalog = modelcfg.NewRegistry()
	}

	kieClient, err := kie.NewClient(kie.Options{
		APIKey:     cfg.KieAPIKey,
		BaseURL:    cfg.KieBaseURL,
		Logger:     &logger,
		MaxRetries: cfg.ProviderMaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("kie client init failed")
	}
	replicateClient, err := kie.NewClient(kie.Options{
		APIKey:     cfg.ReplicateAPIToken,
		BaseURL:    cfg.ReplicateBaseURL,
		Logger:     &logger,
		MaxRetries: cfg.ProviderMaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("replicate client init failed")
	}

	registry := video.NewDefaultRegistry(kieClient, replicateClient, catalog)
	router := providers.NewRouter(cfg.ProviderPriority, cfg.FallbackProvider, func(provider string) bool {
		return cfg.ProviderAPIKey(provider) != ""
	}, catalog)

	store, err := buildObjectStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("object store init failed")
	}

	generations := repo.NewGenerationRepository(infra.NewSQLRunner(dbpool, logger))
	transfer := generation.NewTransferService(store, generations, &logger)
	coordinator := generation.NewCoordinator(generations, router, registry, transfer, cfg.WebhookBaseURL, &logger)

	llmService := llm.NewService(llm.ServiceOptions{
		Providers: buildLLMProviders(cfg, &logger),
		Logger:    &logger,
	})

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	}

	app := handlers.NewApp(coordinator, llmService, resolver, &logger)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, &logger))

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

func buildObjectStore(cfg *infra.Config) (generation.ObjectStore, error) {
	if cfg.StorageBackend == "minio" {
		return storage.NewMinioStore(storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			BaseURL:   cfg.StorageBaseURL,
		})
	}
	return storage.NewFileStore(cfg.StorageLocalDir, cfg.StorageBaseURL)
}

// buildLLMProviders orders providers with the configured preference first,
// skipping any without credentials.
func buildLLMProviders(cfg *infra.Config, logger *infra.Logger) []llm.Provider {
	var list []llm.Provider
	add := func(name string) {
		switch name {
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				return
			}
			p, err := llm.NewOpenAIProvider(llm.OpenAIOptions{
				APIKey:       cfg.OpenAIAPIKey,
				Model:        cfg.OpenAIModel,
				BaseURL:      cfg.OpenAIBaseURL,
				Organization: cfg.OpenAIOrg,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("openai provider skipped")
				return
			}
			list = append(list, p)
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				return
			}
			p, err := llm.NewGeminiProvider(llm.GeminiOptions{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				BaseURL: cfg.GeminiBaseURL,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("gemini provider skipped")
				return
			}
			list = append(list, p)
		}
	}

	add(cfg.LLMProvider)
	for _, name := range []string{"openai", "gemini"} {
		if name != cfg.LLMProvider {
			add(name)
		}
	}
	return list
}
