package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/extranet-gate/config"
	httpx "github.com/target/extranet-gate/internal/http"
	"github.com/target/extranet-gate/internal/observability/statsd"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler assembles the router from the service container.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	return httpx.NewRouter(httpx.RouterServices{
		Auth:   cfg.Services.Auth,
		Policy: cfg.Services.Policy,
		Cookies: httpx.CookieConfig{
			Name:     appCfg.Auth.CookieName,
			Domain:   appCfg.Auth.CookieDomain,
			Insecure: appCfg.Auth.CookieInsecure,
		},
		ProtectedDomain: appCfg.Auth.ProtectedDomain,
		PortalURL:       appCfg.HTTP.BaseURL,
		Metrics:         metricsSink(cfg.Services.Metrics),
		Logger:          logger,
	})
}

// metricsSink adapts the client to the sink interface. The nil client is
// a no-op, so this is safe even when metrics are disabled.
func metricsSink(c *statsd.Client) statsd.Sink {
	return c
}

// StartHTTPServer starts the HTTP server in the background and returns
// the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := BuildHTTPHandler(cfg)

	addr := cfg.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownServer gracefully shuts the HTTP server down within timeout.
func ShutdownServer(ctx context.Context, server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		if logger != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		return err
	}
	if logger != nil {
		logger.Info("HTTP server stopped")
	}
	return nil
}
