package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestLogger(s.logger, s.config.Verbose))
	r.Use(recoverer(s.logger))
	r.Use(prometheusMiddleware)

	r.Route("/api/alerts", func(r chi.Router) {
		r.Get("/rules", s.listRules)
		r.Patch("/rules/{id}", s.toggleRule)
		r.Get("/events", s.listEvents)

		// Scheduled trigger, guarded by the shared cron secret.
		r.Group(func(r chi.Router) {
			r.Use(cronAuth(s.config.CronSecret))
			r.Post("/run", s.runAlerts)
		})

		// Dashboard trigger; same pipeline, no secret in the request.
		r.Post("/run-manual", s.runAlerts)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, map[string]string{"status": "ok"})
	})

	return r
}
