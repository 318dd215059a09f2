// Package adsbweb serves the readsb-compatible aircraft snapshot over HTTP.
// The data surface exposes exactly one route, GET /data/aircraft.json, so
// feed scanners that probe other paths get the 404 they expect from a real
// readsb instance. Health and metrics live on a separate ops router.
package adsbweb

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/signalsfoundry/dragonsim/internal/logging"
)

// SnapshotSource produces an encoded aircraft.json body for an instant.
type SnapshotSource interface {
	SnapshotJSON(at time.Time) ([]byte, error)
}

// Handler owns the data surface.
type Handler struct {
	src SnapshotSource
	log logging.Logger
	now func() time.Time
}

// New builds a handler around src.
func New(src SnapshotSource, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Noop()
	}
	return &Handler{src: src, log: log, now: time.Now}
}

// Routes returns the data router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/data/aircraft.json", h.serveAircraft)
	return r
}

func (h *Handler) serveAircraft(w http.ResponseWriter, r *http.Request) {
	body, err := h.src.SnapshotJSON(h.now())
	if err != nil {
		log := logging.LoggerFromContext(r.Context())
		if log == nil {
			log = h.log
		}
		log.Error(r.Context(), "encode fleet snapshot failed", logging.Err(err))
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// requestLogger tags each request with a request_id and stashes the tagged
// logger on the context for handlers.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, reqLog := logging.WithRequestLogger(r.Context(), h.log)
		ctx = logging.ContextWithLogger(ctx, reqLog)
		reqLog.Debug(ctx, "request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OpsRoutes returns the ops router: GET /healthz and, when a metrics
// handler is supplied, GET /metrics.
func OpsRoutes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}
