package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/config"
	"github.com/kosmed/glucose-monitoring-service/internal/logging"
	"github.com/kosmed/glucose-monitoring-service/internal/metrics"
)

// NewRouter assembles the HTTP routes and middleware chain.
func NewRouter(
	cfg *config.Config,
	handler *Handler,
	requestLimiter *RequestLimiter,
	collector *metrics.Collector,
	metricsHandler http.Handler,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger, collector))

	r.Get("/health", handler.Health)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requestLimiter.Middleware)

		// Device endpoints authenticate with API keys.
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(cfg.Auth.APIKeys))
			r.Post("/devices/{deviceID}/readings", handler.CreateReading)
			r.Get("/devices/{deviceID}/readings", handler.ListDeviceReadings)
		})

		// User endpoints authenticate with bearer tokens.
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.Auth.MinTokenLength))
			r.Get("/users/{userID}/glucose/current", handler.CurrentGlucose)
			r.Get("/users/{userID}/glucose/history", handler.GlucoseHistory)
			r.Get("/users/{userID}/glucose/summary", handler.GlucoseSummary)
		})
	})

	return r
}

// requestLogger logs each request and records its duration.
func requestLogger(logger *zap.Logger, collector *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			collector.RecordRequestDuration(route, strconv.Itoa(status), elapsed)

			log := logging.WithRequestID(logger, middleware.GetReqID(r.Context()))
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", elapsed),
			)
		})
	}
}
