package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"socialdash/internal/analytics"
	"socialdash/internal/auth"
	"socialdash/internal/models"
	"socialdash/internal/version"

	"github.com/gorilla/mux"
)

// healthCheckTimeout bounds each dependency ping in HealthCheck.
const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is reported by HealthCheck.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP handlers for the dashboard API
type Handlers struct {
	analytics    analytics.ServiceInterface
	storage      Pinger
	limiterStore Pinger
	version      version.Info
	startTime    time.Time
}

// HandlerOption configures optional dependencies of Handlers.
type HandlerOption func(*Handlers)

// WithStorage reports the post store in health checks.
func WithStorage(s Pinger) HandlerOption {
	return func(h *Handlers) {
		h.storage = s
	}
}

// WithLimiterStore reports the shared rate limit counter store in health checks.
// A failing limiter store degrades health but does not fail it, since the
// limiter keeps serving under its failure mode.
func WithLimiterStore(s Pinger) HandlerOption {
	return func(h *Handlers) {
		h.limiterStore = s
	}
}

func WithVersion(info version.Info) HandlerOption {
	return func(h *Handlers) {
		h.version = info
	}
}

func NewHandlers(svc analytics.ServiceInterface, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		analytics: svc,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetSummary handles analytics summary requests
// GET /api/v1/analytics/summary
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	summary, err := h.analytics.Summary(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, summary)
}

// GetDailyMetrics handles daily metric range requests
// GET /api/v1/metrics/daily?days=N
func (h *Handlers) GetDailyMetrics(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	days, err := models.ParseDays(r.URL.Query().Get("days"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, err.Error())
		return
	}

	metrics, err := h.analytics.DailyMetrics(r.Context(), &models.DailyMetricsRequest{
		UserID: userID,
		Days:   days,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if metrics == nil {
		metrics = []*models.DailyMetric{}
	}

	h.writeJSONResponse(w, http.StatusOK, metrics)
}

// ListPosts handles post list requests
// GET /api/v1/posts?platform=instagram|tiktok|all
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	posts, err := h.analytics.Posts(r.Context(), &models.ListPostsRequest{
		UserID:   userID,
		Platform: r.URL.Query().Get("platform"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	h.writeJSONResponse(w, http.StatusOK, posts)
}

// GetPost handles single post requests
// GET /api/v1/posts/{post_id}
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	post, err := h.analytics.Post(r.Context(), userID, mux.Vars(r)["post_id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, post)
}

// HealthCheck handles health check requests
// GET /health
//
// Storage failure makes the service unhealthy (503). A failing rate limit store
// only degrades it.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse()
	response.Version = h.version.Version
	response.InstanceID = h.version.InstanceID
	response.Uptime = time.Since(h.startTime).Round(time.Second).String()

	if h.storage != nil {
		latency, err := ping(r.Context(), h.storage)
		if err != nil {
			slog.WarnContext(r.Context(), "Health check: storage ping failed", "error", err)
			response.AddComponent("storage", models.StatusUnhealthy, err.Error(), latency)
		} else {
			response.AddComponent("storage", models.StatusHealthy, "Storage is operational", latency)
		}
	}

	if h.limiterStore != nil {
		latency, err := ping(r.Context(), h.limiterStore)
		if err != nil {
			slog.WarnContext(r.Context(), "Health check: rate limit store ping failed", "error", err)
			response.AddComponent("rate_limit_store", models.StatusDegraded, err.Error(), latency)
		} else {
			response.AddComponent("rate_limit_store", models.StatusHealthy, "Rate limit store is reachable", latency)
		}
	}

	response.AddComponent("api", models.StatusHealthy, "API is operational", 0)

	h.writeJSONResponse(w, response.HTTPStatus(), response)
}

func ping(ctx context.Context, p Pinger) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	start := time.Now()
	err := p.Ping(ctx)
	return time.Since(start), err
}

// writeServiceError maps service errors to their HTTP status. Anything that is not a
// ServiceError is treated as internal and its detail is kept out of the response.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var serviceErr *analytics.ServiceError
	if errors.As(err, &serviceErr) {
		if serviceErr.StatusCode >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		}
		h.writeErrorResponse(w, serviceErr.StatusCode, serviceErr.Code, serviceErr.Message)
		return
	}

	slog.ErrorContext(r.Context(), "Unexpected error", "path", r.URL.Path, "error", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
}

func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing more can be sent.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}
