// Package web serves the daemon's operational endpoints: liveness,
// the current offline set, and Prometheus-format metrics. This is a
// machine-readable surface for operators, not a dashboard.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkarpov/chargewatch/internal/config"
	"github.com/mkarpov/chargewatch/internal/monitor"
)

var startTime = time.Now()

const version = "0.1.0"

// NewRouter builds the operational HTTP handler. /healthz is always
// open; the state and metrics endpoints require basic auth when a
// password hash is configured.
func NewRouter(cfg config.ServerConfig, tracker *monitor.Tracker) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler(tracker))

	r.Group(func(r chi.Router) {
		r.Use(basicAuth(cfg))
		r.Get("/api/offline", offlineHandler(tracker))
		r.Get("/metrics", metricsHandler)
	})

	return r
}

func healthHandler(tracker *monitor.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := tracker.Snapshot()
		resp := map[string]interface{}{
			"status":         "ok",
			"version":        version,
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"cycles":         st.Cycles,
			"offline_count":  len(st.Offline),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func offlineHandler(tracker *monitor.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tracker.Snapshot())
	}
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}

// basicAuth verifies credentials against the configured bcrypt hash.
// With no hash configured the endpoints are open (trusted network).
func basicAuth(cfg config.ServerConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.PasswordHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || user != cfg.Username ||
				bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="chargewatch"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
