package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/auth"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/database"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/health"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/httpclient"
	pkgkafka "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/kafka"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/middleware"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/tracing"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/config"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/event"
	handler "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/handler/http"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository/postgres"
	redisrepo "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository/redis"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/service"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/migrations"
)

// Version is stamped at build time.
var Version = "dev"

const eventDedupePrefix = "storefront:events:"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg           *config.Config
	logger        *slog.Logger
	pool          *pgxpool.Pool
	redis         *redis.Client
	producer      *pkgkafka.Producer
	dlq           *pkgkafka.DLQProducer
	consumers     []*pkgkafka.Consumer
	traceShutdown tracing.ShutdownFunc
	httpServer    *http.Server
	stop          context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.PostgresMaxConns,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	kafkaMetrics := pkgkafka.NewMetrics()
	serviceMetrics := service.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		kafkaMetrics.Register,
		serviceMetrics.Register,
		httpclient.RegisterMetrics,
		func(reg prometheus.Registerer) error {
			return database.RegisterPoolMetrics(reg, pool, handler.ServiceName)
		},
	} {
		if err := register(registry); err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), kafkaMetrics, logger)
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	placementRepo := postgres.NewPlacementRepository(pool)
	cartRepo := redisrepo.NewCartRepository(redisClient, cfg.CartTTL)
	idempotencyRepo := redisrepo.NewIdempotencyRepository(redisClient, cfg.IdempotencyTTL)

	eventProducer := event.NewProducer(producer, logger)
	catalog := newCatalogClient(cfg, logger)

	couponService := service.NewCouponService(couponRepo, eventProducer, serviceMetrics, logger)
	orderService := service.NewOrderService(orderRepo, invoiceRepo, eventProducer, logger)
	cartService := service.NewCartService(cartRepo, couponService, logger)
	checkoutService := service.NewCheckoutService(
		placementRepo, cartRepo, idempotencyRepo, couponService, catalog, eventProducer, serviceMetrics, logger,
	)

	var consumers []*pkgkafka.Consumer
	if cfg.EnableConsumers {
		consumers = newConsumers(cfg, orderService, redisClient, dlq, kafkaMetrics, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", producer.Ping)

	// Background work owned by the router lives until Shutdown.
	background, stop := context.WithCancel(context.Background())
	var rateLimiter func(http.Handler) http.Handler
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.RateLimit(background, middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		}, logger)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router, err := handler.NewRouter(handler.RouterConfig{
		Checkout:       checkoutService,
		Orders:         orderService,
		Coupons:        couponService,
		Carts:          cartService,
		Health:         healthHandler,
		Registry:       registry,
		TokenValidator: auth.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer).Verify,
		RateLimiter:    rateLimiter,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofCIDRs,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		stop()
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("build router: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		pool:          pool,
		redis:         redisClient,
		producer:      producer,
		dlq:           dlq,
		consumers:     consumers,
		traceShutdown: traceShutdown,
		httpServer:    httpServer,
		stop:          stop,
	}, nil
}

// newCatalogClient builds the stock client behind retries and a circuit
// breaker. An unset catalog URL yields a client that never blocks checkout.
func newCatalogClient(cfg *config.Config, logger *slog.Logger) *service.CatalogClient {
	if cfg.CatalogURL == "" {
		logger.Warn("CATALOG_SERVICE_URL not set, stock checks disabled")
		return service.NewCatalogClient(nil, "", logger)
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.CatalogTimeout
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("catalog"),
		logger,
	).WithFallback(service.CatalogUnavailableFallback)

	return service.NewCatalogClient(breaker, cfg.CatalogURL, logger)
}

// newConsumers subscribes the order service to payment and fulfillment
// events. Every handler is deduplicated by event id through Redis.
func newConsumers(
	cfg *config.Config,
	orders *service.OrderService,
	client *redis.Client,
	dlq pkgkafka.DeadLetterPublisher,
	metrics *pkgkafka.Metrics,
	logger *slog.Logger,
) []*pkgkafka.Consumer {
	handlers := event.NewConsumer(orders, logger)
	store := pkgkafka.NewRedisIdempotencyStore(client, eventDedupePrefix, cfg.EventDedupeTTL)

	subscriptions := map[string]pkgkafka.Handler{
		event.TopicPaymentCompleted:   handlers.HandlePaymentCompleted,
		event.TopicFulfillmentUpdated: handlers.HandleFulfillmentUpdated,
	}

	consumers := make([]*pkgkafka.Consumer, 0, len(subscriptions))
	for topic, h := range subscriptions {
		consumers = append(consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:    cfg.KafkaBrokers,
			GroupID:    cfg.KafkaGroupID,
			Topic:      topic,
			MinBytes:   1,
			MaxBytes:   10 << 20,
			MaxRetries: cfg.ConsumerRetries,
			RetryDelay: 500 * time.Millisecond,
		}, pkgkafka.IdempotentHandler(store, h, logger), dlq, metrics, logger))
	}
	return consumers
}

// Run starts the HTTP server and the event consumers and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	consumerCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()

	var wg sync.WaitGroup
	for _, c := range a.consumers {
		wg.Add(1)
		go func(c *pkgkafka.Consumer) {
			defer wg.Done()
			if err := c.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("kafka consumer stopped", slog.String("error", err.Error()))
			}
		}(c)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopConsumers()
	wg.Wait()

	if err := a.Shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.stop()

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("kafka dlq close error", slog.String("error", err.Error()))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	a.pool.Close()

	if err := a.traceShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
