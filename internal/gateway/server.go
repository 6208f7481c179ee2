package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.metrics.instrument)

	// Public.
	r.Get("/health", g.handleHealth())
	r.Method(http.MethodGet, "/metrics", g.handleMetrics())

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.audit))
		}

		r.Route("/api", func(r chi.Router) {
			r.Get("/agents", g.handleListAgents())
			r.Route("/agents/{name}", func(r chi.Router) {
				r.Get("/", g.handleGetAgent())
				r.Put("/status", g.handleSetStatus())
				r.Post("/chat", g.handleChat())
				r.Post("/tasks", g.handleTask())
				r.Post("/heartbeat", g.handleHeartbeat())
				r.Get("/runs", g.handleListRuns())
			})
			r.Get("/runs/{id}", g.handleGetRun())
		})

		r.Get("/ws/agents/{name}", g.handleChatStream())
	})

	return r
}
