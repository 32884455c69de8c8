package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frezcirno/rpx/rpxmetrics"
)

// newAdminRouter builds the chi mux serving Prometheus metrics and a
// liveness probe; chi stays confined to cmd/rpx and never touches the
// reactor core.
func newAdminRouter(collector *rpxmetrics.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", collector.Handler())
	return r
}

// startMetricsServer serves the admin router on addr. It runs on a
// standard net/http server since it is an out-of-band admin surface, not
// part of the non-blocking reactor path.
func startMetricsServer(addr string, collector *rpxmetrics.Collector) {
	r := newAdminRouter(collector)
	go func() {
		if err := http.ListenAndServe(addr, r); err != nil {
			fatal(err)
		}
	}()
}
