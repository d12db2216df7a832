package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/otp-account-service/internal/health"
	"github.com/sandeepkv93/otp-account-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-account-service/internal/http/response"
)

type Dependencies struct {
	GraphQL           http.Handler
	Tokens            middleware.TokenVerifier
	Logger            *slog.Logger
	CORSOrigins       []string
	GlobalRateLimiter GlobalRateLimiterFunc
	Readiness         *health.ProbeRunner
	// Metrics is nil when the Prometheus endpoint is disabled.
	Metrics        *middleware.HTTPMetrics
	MaxBodyBytes   int64
	EnableOTelHTTP bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	if dep.Metrics != nil {
		r.Use(dep.Metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, results := dep.Readiness.Ready(r.Context())
		if results == nil {
			results = []health.CheckResult{}
		}
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics.Handler())
	}

	maxBody := dep.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(dep.Tokens))
		r.Use(middleware.StructuredRequestLogger(dep.Logger))
		r.Use(middleware.BodyLimit(maxBody))
		if dep.GlobalRateLimiter != nil {
			r.Use(dep.GlobalRateLimiter)
		}
		r.Method(http.MethodPost, "/graphql", dep.GraphQL)
		r.Method(http.MethodGet, "/graphql", dep.GraphQL)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
