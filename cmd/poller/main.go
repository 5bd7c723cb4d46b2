package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"genserver/internal/adapter/repo"
	"genserver/internal/domain/modelcfg"
	"genserver/internal/generation"
	"genserver/internal/infra"
	"genserver/internal/providers"
	"genserver/internal/providers/kie"
	"genserver/internal/providers/video"
	"genserver/internal/storage"
)

// The poller sweeps generations stuck in processing and reconciles them by
// querying the provider directly, covering lost webhook deliveries.
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

	poller := generation.NewPoller(generations, registry, coordinator,
		cfg.PollInterval, cfg.PollMinAge, cfg.PollBatchSize, &logger)

	logger.Info().
		Dur("interval", cfg.PollInterval).
		Dur("min_age", cfg.PollMinAge).
		Int("batch_size", cfg.PollBatchSize).
		Msg("poller started")

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("poller stopped with error")
	}
	logger.Info().Msg("poller stopped")
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
