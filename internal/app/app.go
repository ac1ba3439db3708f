package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/motorplace/ugc-service/internal/auth"
	"github.com/motorplace/ugc-service/internal/cache"
	"github.com/motorplace/ugc-service/internal/config"
	"github.com/motorplace/ugc-service/internal/event"
	"github.com/motorplace/ugc-service/internal/external"
	"github.com/motorplace/ugc-service/internal/governance"
	"github.com/motorplace/ugc-service/internal/graphql"
	"github.com/motorplace/ugc-service/internal/repository/postgres"
	"github.com/motorplace/ugc-service/internal/service"
	"github.com/motorplace/ugc-service/pkg/database"
	"github.com/motorplace/ugc-service/pkg/health"
	"github.com/motorplace/ugc-service/pkg/httpclient"
	pkgkafka "github.com/motorplace/ugc-service/pkg/kafka"
	"github.com/motorplace/ugc-service/pkg/tracing"
)

// App wires together all dependencies and runs the UGC service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPoolWithLogger(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "ugc")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Redis backs both the UGC cache and the shared rate-limit counters.
	// A failed connection degrades to in-process implementations so the
	// service still serves reads.
	var redisClient *redis.Client
	var store cache.Store
	var counters governance.CounterStore

	redisClient, err = database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, using in-process cache and counters",
			slog.String("error", err.Error()),
		)
		redisClient = nil
		store = cache.NewMemoryStore()
		counters = governance.NewMemoryCounterStore()
	} else {
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		redisStore := cache.NewRedisStore(redisClient)
		store = redisStore
		counters = governance.NewRedisCounterStore(redisStore)
	}
	ugcCache := cache.NewUGCCache(store, logger)

	// Kafka producer for review lifecycle events.
	var producer *pkgkafka.Producer
	var events service.EventPublisher
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewPublisher(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// External directories behind circuit breakers.
	httpClient := httpclient.New(httpclient.DefaultConfig())
	offerClient := external.NewOfferClient(cfg.OffersServiceURL, httpClient, logger)
	userClient := external.NewUserClient(cfg.UsersServiceURL, httpClient, logger)

	// Build the dependency graph.
	reviewRepo := postgres.NewReviewRepository(pool)
	ratingRepo := postgres.NewRatingRepository(pool)
	reviewService := service.NewReviewService(reviewRepo, ratingRepo, ugcCache, events, offerClient, logger)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	gov := governance.NewExtension(cfg.QueryLimits(), counters, logger)
	resolver := graphql.NewResolver(reviewService, userClient, offerClient)
	gqlHandler := graphql.NewHandler(resolver, gov, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("cache", func(ctx context.Context) error {
		return ugcCache.Ping(ctx)
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	router := newRouter(cfg, gqlHandler, verifier, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Redis and PostgreSQL.
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
