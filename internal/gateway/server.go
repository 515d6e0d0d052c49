package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(corsMiddleware(g.config.AllowedOrigin))

	r.Get("/health", g.handleHealth())
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(g.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/session/new", g.handleNewSession())
		r.Post("/session/reset", g.handleReset())
		r.Post("/session/history", g.handleHistory())
		r.Post("/chat", g.handleChat())
	})

	return r
}
