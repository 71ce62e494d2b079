package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/alerts"
	"github.com/kosmed/glucose-monitoring-service/internal/analytics"
	"github.com/kosmed/glucose-monitoring-service/internal/api"
	"github.com/kosmed/glucose-monitoring-service/internal/cache"
	"github.com/kosmed/glucose-monitoring-service/internal/config"
	"github.com/kosmed/glucose-monitoring-service/internal/db"
	"github.com/kosmed/glucose-monitoring-service/internal/metrics"
	"github.com/kosmed/glucose-monitoring-service/internal/mq"
	"github.com/kosmed/glucose-monitoring-service/internal/ratelimit"
	"github.com/kosmed/glucose-monitoring-service/internal/repository"
	"github.com/kosmed/glucose-monitoring-service/internal/service"
	"github.com/kosmed/glucose-monitoring-service/internal/validator"
)

func startServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	router *chi.Mux,
	requestLimiter *api.RequestLimiter,
	logger *zap.Logger,
) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServicePort),
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.RunMigrations(logger, cfg.Database.URL); err != nil {
				return err
			}

			logger.Info("starting http server", zap.Int("port", cfg.ServicePort))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			requestLimiter.Stop()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("failed to shut down http server", zap.Error(err))
				return err
			}
			logger.Info("http server stopped gracefully")
			return nil
		},
	})
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideCacheClient creates the Redis client backing the rate-limit gate
func ProvideCacheClient(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*cache.Client, error) {
	return cache.NewClient(lc, logger, cfg.Redis.URL)
}

// ProvideDeviceLimiter creates the per-device submission gate
func ProvideDeviceLimiter(client *cache.Client, cfg *config.Config, logger *zap.Logger) *ratelimit.DeviceLimiter {
	return ratelimit.NewDeviceLimiter(client, cfg.RateLimit.DeviceWindow, logger)
}

// ProvideValidator creates a new reading validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.FutureTolerance, cfg.Validation.MaxReadingAge)
}

// ProvideAlertEvaluator creates the alert evaluator with configured thresholds
func ProvideAlertEvaluator(cfg *config.Config) *alerts.Evaluator {
	return alerts.NewEvaluator(cfg.Alerts.Defaults, cfg.Alerts.UserOverrides)
}

// ProvideAggregator creates the analytics aggregator
func ProvideAggregator(repo *repository.Repository) *analytics.Aggregator {
	return analytics.NewAggregator(repo)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvideAlertPublisher creates the alert event publisher
func ProvideAlertPublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.AlertPublisher, error) {
	return mq.NewAlertPublisher(conn, cfg.RabbitMQ.AlertExchange, cfg.RabbitMQ.AlertRoutingPrefix, logger)
}

// ProvideMetricsRegistry creates the Prometheus registry
func ProvideMetricsRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetricsCollector creates the metrics collector
func ProvideMetricsCollector(reg *prometheus.Registry) *metrics.Collector {
	return metrics.NewCollector(reg)
}

// ProvideIngestService creates the ingestion pipeline
func ProvideIngestService(
	repo *repository.Repository,
	limiter *ratelimit.DeviceLimiter,
	v *validator.Validator,
	evaluator *alerts.Evaluator,
	publisher *mq.AlertPublisher,
	collector *metrics.Collector,
	logger *zap.Logger,
) *service.IngestService {
	return service.NewIngestService(repo, limiter, v, evaluator, publisher, collector, logger, time.Now)
}

// ProvideQueryService creates the query service
func ProvideQueryService(
	repo *repository.Repository,
	aggregator *analytics.Aggregator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.QueryService {
	return service.NewQueryService(
		repo,
		aggregator,
		cfg.Query.DefaultPeriod,
		cfg.Query.MaxPageSize,
		cfg.Query.DefaultPageSize,
		logger,
		time.Now,
	)
}

// ProvideRequestLimiter creates the per-caller API request limiter
func ProvideRequestLimiter(cfg *config.Config, logger *zap.Logger) *api.RequestLimiter {
	return api.NewRequestLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.Burst, logger)
}

// ProvideHandler creates the API handler set
func ProvideHandler(ingest *service.IngestService, query *service.QueryService, cfg *config.Config, logger *zap.Logger) *api.Handler {
	return api.NewHandler(ingest, query, cfg.ServiceName, logger)
}

// ProvideRouter assembles the HTTP router
func ProvideRouter(
	cfg *config.Config,
	handler *api.Handler,
	requestLimiter *api.RequestLimiter,
	collector *metrics.Collector,
	reg *prometheus.Registry,
	logger *zap.Logger,
) *chi.Mux {
	return api.NewRouter(cfg, handler, requestLimiter, collector, metrics.Handler(reg), logger)
}
