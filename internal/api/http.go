// Package api exposes the pipeline's small admin HTTP surface:
// Prometheus metrics and a liveness probe, grounded on the teacher's
// HTTPAPI.SetupRoutes (internal/api/http.go) pared down to what a
// batch pipeline run actually needs.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the admin routes on mux.
func SetupRoutes(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealth)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
