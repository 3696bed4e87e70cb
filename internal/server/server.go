package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/middleware"
)

var routes = []string{
	"/api/v1/search",
	"/api/v1/index/stats",
	"/health/live",
	"/health/ready",
	"/metrics",
}

// Routes builds the HTTP handler. m may be nil, in which case /metrics and
// the metrics middleware are left out.
func Routes(h *Handler, checker *health.Checker, m *metrics.Metrics, cfg config.ServerConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m, routes...)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}

// Serve listens on cfg.Port until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func Serve(ctx context.Context, handler http.Handler, cfg config.ServerConfig) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", cfg.Port, err)
	}
	return serve(ctx, ln, handler, cfg)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, cfg config.ServerConfig) error {
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	slog.Info("search service listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	slog.Info("search service stopped")
	return nil
}
