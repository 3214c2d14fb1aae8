package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialdash/internal/analytics"
	"socialdash/internal/api"
	"socialdash/internal/auth"
	"socialdash/internal/config"
	"socialdash/internal/logger"
	"socialdash/internal/models"
	"socialdash/internal/observability"
	"socialdash/internal/storage"
	"socialdash/internal/version"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var (
	configFile   = flag.String("config", "", "Path to configuration file")
	writeExample = flag.String("write-example-config", "", "Write an example configuration file to this path and exit")
	showVersion  = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()
	ver := version.GetInfo()

	switch {
	case *showVersion:
		fmt.Println(ver.String())
		return
	case *writeExample != "":
		if err := config.SaveExample(*writeExample); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, ver)
	stop()

	if closer != nil {
		_ = closer.Close()
	}
	if err != nil {
		slog.Error("socialdash exited with error", "error", err)
		os.Exit(1)
	}
}

// run wires every component from cfg and serves until ctx is cancelled or a
// listener fails. Cleanup runs in reverse order of construction.
func run(ctx context.Context, cfg *models.Config, ver version.Info) error {
	if !ver.IsRelease() {
		slog.Info("Running a development build", "version", ver.Version, "commit", ver.GitCommit)
	}

	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(flushCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	handlerOpts := []api.HandlerOption{api.WithStorage(store), api.WithVersion(ver)}
	routeOpts := []api.RouteOption{api.WithAuth(auth.FromConfig(cfg.Auth))}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	if cfg.RateLimit.Enabled {
		rl, err := buildRateLimit(ctx, cfg)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		defer rl.Close()

		routeOpts = append(routeOpts, api.WithRateLimiter(rl.middleware))
		if rl.store != nil {
			handlerOpts = append(handlerOpts, api.WithLimiterStore(rl.store))
		}
	} else {
		slog.Warn("Rate limiting is disabled")
	}

	if !cfg.Auth.Enabled {
		slog.Warn("Authentication is disabled; all requests use the development user", "user_id", cfg.Auth.DevUserID)
	}

	handlers := api.NewHandlers(analytics.NewService(store), handlerOpts...)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.SetupRoutes(handlers, cfg, routeOpts...),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", server.Addr, "tls", cfg.Server.TLSEnabled, "version", ver.Version)
		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api listener: %w", err)
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	// Runs on a signal or when either listener fails.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("Metrics server forced to shutdown", "error", err)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("Server shutdown complete")
	return err
}

// openStorage opens the configured backend, wrapped with spans and metrics
// when metrics are on.
func openStorage(cfg *models.Config) (storage.Storage, error) {
	base, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if !cfg.Metrics.Enabled {
		return base, nil
	}

	instrumented, err := observability.NewInstrumentedStorage(base)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("instrument storage: %w", err)
	}
	return instrumented, nil
}
