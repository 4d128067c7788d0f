package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds what NewRouter mounts
type RouterConfig struct {
	Service  Identifier
	DB       Pinger
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter mounts /identify, /health and, when a gatherer is set, /metrics
func NewRouter(cfg RouterConfig) http.Handler {
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(RequestID, Logging(lg))

	identifyHandler := NewIdentifyHandler(cfg.Service, lg)
	router.HandleFunc("/identify", identifyHandler.Handle).Methods(http.MethodPost)

	// Health check endpoint
	router.HandleFunc("/health", healthHandler(cfg.DB, lg)).Methods(http.MethodGet)

	if cfg.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return router
}

func healthHandler(db Pinger, lg *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				lg.Warn("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
