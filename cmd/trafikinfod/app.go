package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Minglarn/trafikinfo-sub001/internal/api"
	"github.com/Minglarn/trafikinfo-sub001/internal/broker"
	"github.com/Minglarn/trafikinfo-sub001/internal/config"
	"github.com/Minglarn/trafikinfo-sub001/internal/constants"
	"github.com/Minglarn/trafikinfo-sub001/internal/fetcher"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
	"github.com/Minglarn/trafikinfo-sub001/internal/prefs"
	"github.com/Minglarn/trafikinfo-sub001/internal/receiver"
	"github.com/Minglarn/trafikinfo-sub001/internal/reconciler"
	"github.com/Minglarn/trafikinfo-sub001/pkg/health"
	"github.com/Minglarn/trafikinfo-sub001/pkg/metrics"
	"github.com/Minglarn/trafikinfo-sub001/pkg/middleware"
	"github.com/Minglarn/trafikinfo-sub001/pkg/ratelimit"
	"github.com/Minglarn/trafikinfo-sub001/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	redisClient    *redis.Client
	store          prefs.Store
	rec            *reconciler.Service
	refresher      *fetcher.Refresher
	receiver       *receiver.Receiver
	producer       broker.Producer
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("trafikinfod")
	}
	return &App{
		config: cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initPreferences(ctx); err != nil {
		return fmt.Errorf("failed to initialize preference store: %w", err)
	}

	if err := a.initReconciler(ctx); err != nil {
		return fmt.Errorf("failed to initialize reconciler: %w", err)
	}

	a.initFetcher()
	a.initReceiver()

	tp, err := tracing.Init(a.config.Tracing, "trafikinfod")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterReconcilerMetrics()
	metrics.RegisterFetcherMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterAPIMetrics()
	if a.config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Server.Port),
		Handler: a.router,
	}

	return nil
}

func (a *App) initPreferences(ctx context.Context) error {
	switch a.config.Preferences.Backend {
	case "memory":
		a.store = prefs.NewMemoryStore()
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", a.config.Database.Redis.Host, a.config.Database.Redis.Port),
			Password: a.config.Database.Redis.Password,
			DB:       a.config.Database.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		a.redisClient = client
		a.store = prefs.NewRedisStore(client, a.config.Preferences.Key)
	}
	return nil
}

func (a *App) initReconciler(ctx context.Context) error {
	counties, err := a.store.Load(ctx)
	if err != nil {
		a.logger.WarnwCtx(ctx, "Failed to load monitored counties, starting unfiltered",
			"error", err,
		)
		counties = nil
	}

	a.rec = reconciler.New(counties, a.logger)
	a.logger.InfowCtx(ctx, "Reconciler initialized", "monitored_counties", counties)
	return nil
}

func (a *App) initFetcher() {
	var client fetcher.Client = fetcher.NewHTTPClient(a.config.Upstream)
	if a.config.CircuitBreaker.Enabled {
		client = fetcher.NewBreakerClient(client, a.config.CircuitBreaker)
	}
	a.refresher = fetcher.NewRefresher(client, a.rec, a.config.Reconciler, a.logger)
}

func (a *App) initReceiver() {
	consumer := broker.NewConsumer(a.config.Broker, a.logger)
	consumer.SetServiceName("trafikinfod")

	if a.config.Broker.Kafka.SinkTopic != "" {
		a.producer = broker.NewProducer(a.config.Broker, a.logger)
	}

	a.receiver = receiver.New(consumer, a.producer, a.rec, a.config.Broker.Kafka, a.logger)
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("trafikinfod"))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.config.RateLimit.RPS,
			Burst:           a.config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	handler := api.NewHandler(a.rec, a.store, a.refresher, a.logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}
	healthRegistry.Register(health.NewUpstreamChecker(a.config.Upstream.BaseURL, a.config.Upstream.RequestTimeout))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "HTTP server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.InfowCtx(gCtx, "Starting snapshot refresh loop",
			"interval", a.config.Reconciler.RefreshInterval,
		)
		return a.refresher.Run(gCtx)
	})

	g.Go(func() error {
		a.logger.InfowCtx(gCtx, "Starting delta consumer",
			"topic", a.config.Broker.Kafka.DeltaTopic,
		)
		return a.receiver.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down trafikinfod")

	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
		}
	}

	if a.receiver != nil {
		if err := a.receiver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("receiver close error: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Shutdown complete")
	return nil
}
