// Package ops serves the operational HTTP endpoints: Prometheus metrics, liveness and
// readiness.
package ops

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"govportal/backend/internal/metrics"
)

// ReadyFunc reports whether the process can serve traffic.
type ReadyFunc func() bool

// NewRouter returns the ops router. ready may be nil; then /readyz always succeeds.
func NewRouter(ready ReadyFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})
	return r
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, ready ReadyFunc) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(ready),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
