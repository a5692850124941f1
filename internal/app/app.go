package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/DylanCerv/sublimacion/internal/catalog"
	"github.com/DylanCerv/sublimacion/internal/config"
	"github.com/DylanCerv/sublimacion/internal/controller"
	"github.com/DylanCerv/sublimacion/internal/engine"
	esengine "github.com/DylanCerv/sublimacion/internal/engine/elasticsearch"
	"github.com/DylanCerv/sublimacion/internal/engine/fallback"
	"github.com/DylanCerv/sublimacion/internal/engine/memory"
	"github.com/DylanCerv/sublimacion/internal/event"
	handler "github.com/DylanCerv/sublimacion/internal/handler/http"
	"github.com/DylanCerv/sublimacion/internal/repository/postgres"
	"github.com/DylanCerv/sublimacion/internal/service"
	"github.com/DylanCerv/sublimacion/internal/source"
	"github.com/DylanCerv/sublimacion/internal/source/bundled"
	"github.com/DylanCerv/sublimacion/pkg/database"
	"github.com/DylanCerv/sublimacion/pkg/health"
	pkgkafka "github.com/DylanCerv/sublimacion/pkg/kafka"
	"github.com/DylanCerv/sublimacion/pkg/tracing"
)

// eventDedupTTL is how long consumed event IDs are remembered.
const eventDedupTTL = 10 * time.Minute

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool       *pgxpool.Pool
	redis      *redis.Client
	store      *catalog.Store
	controller *controller.Controller
	sessions   *controller.Sessions
	indexer    engine.Indexer
	indexed    *engine.IndexTracker
	producer   *pkgkafka.Producer
	consumer   *pkgkafka.Consumer
	httpServer *http.Server

	shutdownTracer func(context.Context) error
	wg             sync.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
// ctx bounds startup I/O and the background work of the HTTP middleware.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	tracingCfg := tracing.DefaultConfig("catalog-service")
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	// PostgreSQL is the primary catalog source.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
		pool.Close()
		return nil, err
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "catalog"); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	productRepo := postgres.NewProductRepository(pool)
	collectionRepo := postgres.NewCollectionRepository(pool)

	// Redis only holds the last known good snapshot; the service runs
	// without it.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, snapshot cache degraded", slog.String("error", err.Error()))
	}
	a.redis = redisClient
	cache := source.NewSnapshotCache(redisClient, cfg.SnapshotCacheTTL)

	a.store = catalog.NewStore()
	loader := catalog.NewLoader(source.NewRepositorySource(productRepo, collectionRepo, logger), a.store, logger)

	// Search: Elasticsearch behind a circuit breaker, with the in-memory
	// evaluator as the fallback and the only engine in memory mode.
	var remote engine.SearchEngine
	var indexState fallback.IndexState
	healthHandler := health.NewHandler()
	if cfg.SearchEngine == config.EngineElasticsearch {
		esEng, err := esengine.New(ctx, esengine.Config{URL: cfg.ElasticsearchURL, Index: cfg.ElasticsearchIndex}, logger)
		if err != nil {
			logger.Warn("elasticsearch unavailable, searching in memory only", slog.String("error", err.Error()))
		} else {
			remote = esEng
			a.indexer = esEng
			a.indexed = &engine.IndexTracker{}
			indexState = a.indexed
			healthHandler.RegisterNonCritical("elasticsearch", esEng.Ping)
			logger.Info("elasticsearch search engine initialized",
				slog.String("url", cfg.ElasticsearchURL),
				slog.String("index", cfg.ElasticsearchIndex),
			)
		}
	}
	breakerCfg := fallback.DefaultBreakerConfig("elasticsearch")
	breakerCfg.Timeout = cfg.BreakerTimeout
	breakerCfg.FailureRatio = cfg.BreakerFailureRatio
	breakerCfg.MinRequests = cfg.BreakerMinRequests
	search := fallback.New(remote, memory.New(a.store), a.store, indexState, breakerCfg, logger)

	a.controller = controller.New(loader, a.store, search, controller.Config{
		DegradeGracefully: cfg.DegradeGracefully,
		Fallbacks: []catalog.Fallback{
			{Source: cache, Origin: catalog.OriginCache},
			{Source: bundled.New(), Origin: catalog.OriginFallback},
		},
		Cache:           cache,
		RefreshInterval: cfg.RefreshInterval,
	}, logger)
	a.sessions = controller.NewSessions(a.controller.NewView, cfg.SessionIdleTTL, cfg.MaxSessions, logger)

	// Catalog events: published by every write, consumed to keep the
	// search index and the other replicas current.
	var publisher service.EventPublisher
	if cfg.EventsEnabled {
		instanceID := uuid.New().String()
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, instanceID, logger)

		eventConsumer := event.NewConsumer(a.indexer, a.controller, instanceID, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.ConsumerGroup,
			Topic:    event.TopicCatalog,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, pkgkafka.Deduplicate(pkgkafka.NewSeenSet(eventDedupTTL), eventConsumer.Handle, logger), logger)

		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka events enabled",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", event.TopicCatalog),
		)
	}

	catalogService := service.NewCatalogService(productRepo, collectionRepo, publisher, a.controller, a.store, logger)

	healthHandler.RegisterCritical("postgres", pool.Ping)
	healthHandler.RegisterNonCritical("redis", cache.Ping)

	router := handler.NewRouter(ctx, catalogService, a.controller, a.sessions, healthHandler, handler.AdminLimits{
		RPS:   cfg.AdminRateLimitRPS,
		Burst: cfg.AdminRateLimitBurst,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// Run loads the catalog and starts the HTTP server, the session sweeper,
// the index sync and the Kafka consumer, blocking until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)

	if a.indexer != nil {
		updates, unsubscribe := a.store.Subscribe()
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			defer unsubscribe()
			syncIndex(ctx, updates, a.indexer, a.indexed, a.logger)
		}()
	}

	// A failed first load is not fatal: the catalog may be degraded, and the
	// status endpoint and periodic refresh take it from there.
	if err := a.controller.Start(ctx); err != nil {
		a.logger.Error("initial catalog load failed", slog.String("error", err.Error()))
	}
	status := a.controller.Status()
	a.logger.Info("catalog loaded",
		slog.String("state", string(status.State)),
		slog.String("origin", string(status.Origin)),
		slog.Int("products", status.Products),
	)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sessions.Run(ctx)
	}()

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	// Stops the refresh loop, the sweeper and the index sync.
	cancel()
	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.controller.Wait()
	a.wg.Wait()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
