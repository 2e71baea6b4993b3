package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/citewatch/citewatch/internal/api/recovery"
	"github.com/citewatch/citewatch/internal/api/respond"
)

// NewRouter wires the control API: one action-dispatched monitor endpoint,
// health, and metrics.
func NewRouter(h *MonitorHandler, apiToken string) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	root.Handle("/api/citation-monitor",
		RequireToken(apiToken)(http.HandlerFunc(h.HandleAction))).Methods("POST")

	root.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	root.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return root
}
