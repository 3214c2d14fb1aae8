package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the Prometheus registry on its own port so scrapes
// never pass through the API's rate limiter or auth.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer mounts the provider's registry at path. With a nil provider,
// or metrics disabled, every path is 404.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()

	if g := provider.Gatherer(); g != nil {
		// promhttp_metric_handler_* series count the scrapes themselves.
		handler := promhttp.InstrumentMetricHandler(provider.registerer(), promhttp.HandlerFor(g, promhttp.HandlerOpts{
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
			Timeout:           10 * time.Second,
		}))
		mux.Handle(path, handler)
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (ms *MetricsServer) Handler() http.Handler {
	return ms.server.Handler
}

// Start blocks until Shutdown, then returns http.ErrServerClosed.
func (ms *MetricsServer) Start() error {
	slog.Info("Starting metrics server", "addr", ms.server.Addr)
	return ms.server.ListenAndServe()
}

func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}
