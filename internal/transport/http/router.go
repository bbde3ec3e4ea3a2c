// Package httptransport wires the public HTTP surface.
package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	notifyhandler "newswire/internal/notify/handler"
	ratelimithandler "newswire/internal/ratelimit/handler"
	ratelimitmw "newswire/internal/ratelimit/middleware"
	"newswire/internal/ratelimit/models"
	"newswire/pkg/platform/httputil"
)

type RouterConfig struct {
	Notify    *notifyhandler.Handler
	RateLimit *ratelimithandler.Handler
	Limiter   *ratelimitmw.Middleware

	// StreamConnect upgrades a client to the live item stream. Optional;
	// the route is omitted when nil.
	StreamConnect http.HandlerFunc

	// Health reports dependency health for the readiness probe. Optional.
	Health func() map[string]string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		status := map[string]string{"status": "ok"}
		if cfg.Health != nil {
			for name, state := range cfg.Health() {
				status[name] = state
			}
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(cfg.Limiter.RateLimit(models.CategoryBroadcast)).
			Post("/items", cfg.Notify.Ingest)
		r.With(cfg.Limiter.RateLimit(models.CategoryGeneral)).
			Get("/users/{userID}/stats", cfg.Notify.UserStats)
		r.With(cfg.Limiter.RateLimit(models.CategoryGeneral)).
			Get("/ratelimit/status", cfg.RateLimit.Status)
	})

	if cfg.StreamConnect != nil {
		r.With(cfg.Limiter.RateLimit(models.CategoryChannelConnect)).
			Get("/ws/connect", cfg.StreamConnect)
	}

	return r
}
