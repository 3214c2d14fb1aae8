package api

import (
	"encoding/json"
	"net/http"

	"socialdash/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

const apiPrefix = "/api/v1"

type routeConfig struct {
	otelService string
	rateLimiter mux.MiddlewareFunc
	auth        mux.MiddlewareFunc
}

// RouteOption configures optional route behavior.
type RouteOption func(*routeConfig)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(c *routeConfig) {
		c.otelService = serviceName
	}
}

// WithRateLimiter guards every data route. It runs before authentication so
// unauthenticated floods are rejected without verifying tokens.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(c *routeConfig) {
		c.rateLimiter = middleware
	}
}

// WithAuth sets the middleware that resolves the request's user id.
func WithAuth(middleware func(http.Handler) http.Handler) RouteOption {
	return func(c *routeConfig) {
		c.auth = middleware
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	cfg := &routeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	router := mux.NewRouter()

	router.Use(recoveryMiddleware)
	router.Use(requestIDMiddleware)
	if cfg.otelService != "" {
		router.Use(otelmux.Middleware(cfg.otelService,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/api/v1/openapi.yaml" &&
					r.URL.Path != "/api/v1/docs"
			}),
		))
	}
	router.Use(loggingMiddleware)
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc(apiPrefix+"/health", handlers.HealthCheck).Methods("GET")

	// Preflight requests never reach the limiter or auth. A matcher func is used
	// instead of Methods so other verbs on unknown paths still get a 404.
	router.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return r.Method == http.MethodOptions
	}).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.HandleFunc(openAPIPath, handlers.ServeOpenAPISpec).Methods("GET")
	router.HandleFunc(apiPrefix+"/docs", handlers.ServeSwaggerUI).Methods("GET")

	// Full paths on the root router: subrouter routes inherit the prefix matcher,
	// which clears a sibling's method mismatch and turns a 405 into a 404.
	router.Handle(apiPrefix+"/analytics/summary", cfg.guard(handlers.GetSummary)).Methods("GET")
	router.Handle(apiPrefix+"/metrics/daily", cfg.guard(handlers.GetDailyMetrics)).Methods("GET")
	router.Handle(apiPrefix+"/posts", cfg.guard(handlers.ListPosts)).Methods("GET")
	router.Handle(apiPrefix+"/posts/{post_id}", cfg.guard(handlers.GetPost)).Methods("GET")

	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	return router
}

// guard wraps a data handler so the limiter runs first, then auth.
func (c *routeConfig) guard(h http.HandlerFunc) http.Handler {
	var next http.Handler = h
	if c.auth != nil {
		next = c.auth(next)
	}
	if c.rateLimiter != nil {
		next = c.rateLimiter(next)
	}
	return next
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	json.NewEncoder(w).Encode(models.NewErrorResponse("Method not allowed", models.ErrorCodeInvalidRequest))
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(models.NewErrorResponse("Route not found", models.ErrorCodeNotFound))
}
