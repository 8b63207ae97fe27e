package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
)

// NewRouter assembles the full HTTP surface: public account endpoints,
// the authenticated fallback API, the websocket endpoint, and the
// Prometheus scrape target.
func NewRouter(
	handlers *Handlers,
	channelHandler http.Handler,
	verifier contract.Verifier,
	rateLimitPerMin int,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", handlers.Register)
		r.Post("/auth/login", handlers.Login)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(verifier))
			r.Use(RateLimit(rateLimitPerMin))

			r.Get("/conversations", handlers.ListConversations)
			r.Post("/conversations", handlers.CreateConversation)
			r.Get("/conversations/{id}/messages", handlers.ListMessages)
			r.Post("/conversations/{id}/messages", handlers.PostMessage)
			r.Put("/messages/{id}/read", handlers.MarkMessageRead)
			r.Get("/attachments/{id}", handlers.GetAttachment)
		})
	})

	// The websocket handshake carries its own credential; auth happens
	// inside the handler, before the upgrade.
	r.Handle("/ws", channelHandler)

	return r
}
