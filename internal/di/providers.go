package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/handler/api"
	internalrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/repository"
	icache "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/service/cache"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/service/coingecko"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/service/cryptopanic"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/service/openrouter"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/service/ratelimit"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/services/adapters"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/services/selector"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/usecase"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/cache"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/config"
	xhttp "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/http"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/http/middleware"
	pkgkafka "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/kafka"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/metrics"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStore opens the configured storage backend. Preferences on the
// redis backend go through a layered cache since they never change.
func ProvideStore(cfg *config.Config, logger *applogger.Logger) (repository.Store, error) {
	opts := []internalrepo.KVOption{internalrepo.WithSnapshotTTL(cfg.Store.SnapshotTTL)}

	switch cfg.Store.Backend {
	case "sqlite":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := internalrepo.NewSQLiteStore(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		logger.Info("store: sqlite", applogger.String("path", cfg.Store.SQLitePath))
		return s, nil
	case "redis":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Store.Redis.Addr),
			cache.WithRedisPassword(cfg.Store.Redis.Password),
			cache.WithRedisDB(cfg.Store.Redis.DB),
			cache.WithRedisPrefix(cfg.Store.Redis.Prefix),
			cache.WithRedisPool(cfg.Store.Redis.PoolSize, cfg.Store.Redis.MinIdleConns),
		)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		local := cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Store.Memory.MaxEntries),
			cache.WithLayeredMemoryTTL(cfg.Store.Redis.LocalTTL),
		)
		opts = append(opts, internalrepo.WithPreferencesCache(local))
		logger.Info("store: redis", applogger.String("addr", cfg.Store.Redis.Addr))
		return internalrepo.NewKVStore(rc, opts...), nil
	default:
		logger.Warn("store: in-memory, data is lost on restart")
		mem := cache.NewMemoryCache(
			cache.WithMemoryDurable(),
			cache.WithMemoryCleanup(cfg.Store.Memory.SweepInterval),
		)
		return internalrepo.NewKVStore(mem, opts...), nil
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideEventPublisher publishes snapshot events through Kafka when a
// producer exists. It also attaches the error-log collector to log_topic.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, logger *applogger.Logger) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
	if cfg.Kafka.LogTopic != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      pub,
		})
	}
	return pub
}

// ProvideCoinGecko creates the quote and chart client.
func ProvideCoinGecko(cfg *config.Config) *coingecko.Client {
	return coingecko.New(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.Upstream.Timeout)
}

// ProvidePriceCache puts the shared short-TTL cache in front of CoinGecko.
func ProvidePriceCache(cfg *config.Config, cg *coingecko.Client, m repository.Metrics, logger *applogger.Logger) *icache.PriceCache {
	return icache.NewPriceCache(cg,
		icache.WithTTL(cfg.CoinGecko.PriceCacheTTL),
		icache.WithMetrics(m),
		icache.WithLogger(logger),
	)
}

// ProvideSelector loads the recommendation catalog. A missing catalog file
// leaves the selector on its fallback pool.
func ProvideSelector(cfg *config.Config, logger *applogger.Logger) (*selector.Selector, error) {
	catalog, err := selector.LoadCatalog(cfg.Dashboard.Catalog)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("recommendation catalog missing, using fallback pool", applogger.String("path", cfg.Dashboard.Catalog))
		catalog = nil
	case err != nil:
		return nil, fmt.Errorf("catalog: %w", err)
	default:
		logger.Info("recommendation catalog loaded", applogger.Int("items", len(catalog)))
	}
	return selector.New(catalog, newRand()), nil
}

// ProvideAdapters builds one adapter per section.
func ProvideAdapters(
	cfg *config.Config,
	prices *icache.PriceCache,
	cg *coingecko.Client,
	sel *selector.Selector,
	logger *applogger.Logger,
) usecase.Adapters {
	log := adapters.WithLogger(logger)
	news := cryptopanic.New(cfg.CryptoPanic.BaseURL, cfg.CryptoPanic.Token, cfg.Upstream.Timeout)
	gen := openrouter.New(cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey, cfg.Upstream.Timeout)

	return usecase.Adapters{
		Prices: adapters.NewPriceAdapter(prices, log),
		News:   adapters.NewNewsAdapter(news, log),
		Insight: adapters.NewInsightAdapter(prices, gen, adapters.InsightConfig{
			Models:         cfg.OpenRouter.Models,
			Temperature:    cfg.OpenRouter.Temperature,
			MaxTokens:      cfg.OpenRouter.MaxTokens,
			ReferenceAsset: cfg.Dashboard.ReferenceAsset,
		}, log),
		Recommendation: adapters.NewRecommendationAdapter(sel, log),
		Chart:          adapters.NewChartAdapter(cg, cfg.CoinGecko.ChartDays, log),
		Filler:         adapters.NewFillerAdapter(newRand(), log),
	}
}

// ProvideLimits reads per-section item limits.
func ProvideLimits(cfg *config.Config) usecase.Limits {
	return usecase.Limits{
		NewsLimit:     cfg.Dashboard.NewsLimit,
		InsightAssets: cfg.Dashboard.InsightAssets,
	}
}

// ProvideDashboardBuilder creates the get-or-build use case.
func ProvideDashboardBuilder(
	cfg *config.Config,
	store repository.Store,
	a usecase.Adapters,
	limits usecase.Limits,
	events repository.EventPublisher,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.DashboardBuilder {
	return usecase.NewDashboardBuilder(store, a, limits, events, m, logger, usecase.WithLocation(cfg.Location()))
}

// ProvideSectionRefresher creates the single-section refresh use case.
func ProvideSectionRefresher(
	cfg *config.Config,
	store repository.Store,
	a usecase.Adapters,
	limits usecase.Limits,
	events repository.EventPublisher,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.SectionRefresher {
	return usecase.NewSectionRefresher(store, a, limits, events, m, logger, usecase.WithLocation(cfg.Location()))
}

// ProvideOnboardingService creates the preferences use case.
func ProvideOnboardingService(cfg *config.Config, store repository.Store, logger *applogger.Logger) *usecase.OnboardingService {
	return usecase.NewOnboardingService(store, logger, usecase.WithLocation(cfg.Location()))
}

// ProvideVoteService creates the votes use case.
func ProvideVoteService(cfg *config.Config, store repository.Store) *usecase.VoteService {
	return usecase.NewVoteService(store, store, usecase.WithLocation(cfg.Location()))
}

// ProvideDashboardHandler creates the HTTP handler with JWT auth and the
// per-user refresh limiter.
func ProvideDashboardHandler(
	cfg *config.Config,
	logger *applogger.Logger,
	onboarding *usecase.OnboardingService,
	builder *usecase.DashboardBuilder,
	refresher *usecase.SectionRefresher,
	votes *usecase.VoteService,
) *api.DashboardHandler {
	auth := middleware.JWTAuth(middleware.JWTConfig{
		Secret:       cfg.Auth.JWTSecret,
		Algorithm:    cfg.Auth.JWTAlgorithm,
		ErrorHandler: xhttp.UnauthorizedResponse,
	})
	return api.NewDashboardHandler(logger, auth, onboarding, builder, refresher, votes,
		ratelimit.New(),
		api.RefreshLimit{Burst: cfg.Dashboard.RefreshBurst, PerMinute: cfg.Dashboard.RefreshPerMin},
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, m repository.Metrics, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewLoggingHook(logger, m))
	return consumer, nil
}

// ProvidePrewarmHandler handles prewarm requests on the prewarm topic.
func ProvidePrewarmHandler(
	cfg *config.Config,
	store repository.Store,
	builder *usecase.DashboardBuilder,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.PrewarmHandler {
	return usecase.NewPrewarmHandler(cfg.Kafka.PrewarmTopic, store, builder, m, logger)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler *api.DashboardHandler,
	store repository.Store,
	events repository.EventPublisher,
	consumer *pkgkafka.Consumer,
	kh *usecase.PrewarmHandler,
) *server.App {
	var handlerOrNil pkgkafka.MessageHandler
	if consumer != nil {
		handlerOrNil = kh
	}
	return server.New(cfg, logger, handler, store, events, consumer, handlerOrNil)
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
}
