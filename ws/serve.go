package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
	"github.com/Trabajadores202/work-flow-connect-80-89/observability"
	"github.com/Trabajadores202/work-flow-connect-80-89/runtime/workers"
)

// Handler owns the channel lifecycle: authenticate, upgrade, register,
// pump, and on teardown unregister with the presence side effects the
// transition demands.
type Handler struct {
	log      *slog.Logger
	verifier contract.Verifier
	registry contract.Registry
	presence *workers.PresenceBroadcaster
	router   *Router
	metrics  *observability.Collector
	upgrader websocket.Upgrader
	buffer   int
}

func NewHandler(
	log *slog.Logger,
	verifier contract.Verifier,
	registry contract.Registry,
	presence *workers.PresenceBroadcaster,
	router *Router,
	metrics *observability.Collector,
	buffer int,
) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		registry: registry,
		presence: presence,
		router:   router,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		buffer: buffer,
	}
}

// ServeHTTP opens one live channel. Authentication happens exactly once,
// before the upgrade; the resulting principal is bound to the channel for
// its whole lifetime.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := h.verifier.Verify(credentialFrom(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "principal_id", principal.ID, "error", err)
		return
	}

	channel := NewChannel(h.log, conn, principal, h.buffer)
	h.registry.Register(principal.ID, channel)
	h.metrics.ChannelOpened()

	// Every channel open announces the principal, even when other
	// channels of the same principal are already up.
	h.presence.PrincipalOnline(principal.ID)
	h.log.Info("Channel opened", "principal_id", principal.ID)

	go channel.writePump()
	channel.readPump(r.Context(), h.router)

	lastGone := h.registry.Unregister(principal.ID, channel)
	channel.close()
	h.metrics.ChannelClosed()
	h.log.Info("Channel closed", "principal_id", principal.ID, "last_gone", lastGone)

	if lastGone {
		h.metrics.PresenceTransition()
		h.presence.PrincipalOffline(principal.ID)
	}
}

// credentialFrom accepts the token as a bearer header or, for clients
// that cannot set headers on a websocket dial, a query parameter.
func credentialFrom(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
