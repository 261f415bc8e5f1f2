// Package server exposes the observability HTTP surface: liveness, watcher
// status, and Prometheus metrics. It injects correlation IDs into request
// contexts for consistent logging.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/stream-herald/status"
	"github.com/onnwee/stream-herald/telemetry"
)

// NewMux returns the HTTP handler with all routes.
func NewMux(st *status.Tracker) http.Handler {
	handlers := &Handlers{status: st}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/status", handlers.HandleStatus)

	// Wrap with correlation ID injector.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start runs the server until ctx is cancelled, then shuts it down.
func Start(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown failed", slog.Any("err", err))
		}
	}()
	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
	}
}
