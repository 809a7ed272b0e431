package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/akiyawatch/config"
	"sjsage522/akiyawatch/helpers"
	"sjsage522/akiyawatch/internal"
	"sjsage522/akiyawatch/internal/crawler"
	"sjsage522/akiyawatch/logger"
	apperrors "sjsage522/akiyawatch/pkg/errors"
	"sjsage522/akiyawatch/services/cache"
	"sjsage522/akiyawatch/services/notifier"
	"sjsage522/akiyawatch/services/publisher"
	"sjsage522/akiyawatch/services/store"
	"sjsage522/akiyawatch/services/worker"

	"github.com/joho/godotenv"
)

const fetchCooldownKey = "akiyawatch_rate_limited"

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("target_url", cfg.TargetURL).
		Msg("Starting listing sync")

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	collector := crawler.NewCollector(crawler.CollectorConfig{
		URL:             cfg.TargetURL,
		CardSelector:    cfg.CardSelector,
		IDPrefix:        cfg.IDPrefix,
		DefaultLocation: cfg.DefaultLocation,
		CacheKey:        fetchCooldownKey,
		BlockTime:       cfg.FetchBlock,
	}, helpers.NewClient(cfg.FetchTimeout), deps.Cache, logger.ForCollector())

	w := worker.NewWorker(
		collector,
		deps.Store,
		deps.Notifier,
		deps.Publisher,
		logger.ForWorker(),
		cfg.StoreTimeout,
	)

	_, err = w.RunOnce(ctx)
	deps.Cleanup()
	if err != nil {
		if apperrors.Is(err, apperrors.ErrorTypeRateLimit) {
			logger.Warn("Listing page is cooling down, skipping this run: %v", err)
			return
		}
		logger.LogError("main", err, "Sync aborted")
		os.Exit(1)
	}
}

// initializeServices creates the process-scoped clients shared by the run
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	pgStore, err := store.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := pgStore.Migrate(ctx); err != nil {
		pgStore.Close()
		return nil, err
	}
	deps.Store = pgStore
	logger.ForStore().Info().Msg("Connected to PostgreSQL")

	if cfg.LineConfigured() {
		deps.Notifier = notifier.NewLineNotifier(notifier.LineConfig{
			PushURL:       cfg.LinePushURL,
			Token:         cfg.LineToken,
			UserID:        cfg.LineUserID,
			RatePerSecond: cfg.NotifyRatePerSecond,
		}, helpers.NewClient(cfg.NotifyTimeout))
	} else {
		logger.ForNotifier().Warn().Msg("LINE secrets are not set, notifications will be skipped")
		deps.Notifier = notifier.NewNoop(logger.ForNotifier())
	}

	if cfg.MemcacheAddr != "" {
		memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr, cfg.StoreTimeout)
		if err := memcacheService.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Msg("Memcache unavailable, fetch cool-down disabled")
		} else {
			deps.Cache = memcacheService
			logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.ForPublisher().Warn().Err(err).Msg("Redis unavailable, change events disabled")
			redisPublisher.Close()
		} else {
			deps.Publisher = redisPublisher
			logger.ForPublisher().Info().
				Str("addr", cfg.RedisAddr).
				Int("db", cfg.RedisDB).
				Str("stream", cfg.RedisStream).
				Msg("Connected to Redis")
		}
	}

	return deps, nil
}
