package clientsync

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// orderedServer records the order in which the channel endpoint and the
// conversation reload are hit.
type orderedServer struct {
	*httptest.Server
	mu    sync.Mutex
	calls []string
}

func (s *orderedServer) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *orderedServer) order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newOrderedServer(t *testing.T) *orderedServer {
	t.Helper()
	server := &orderedServer{}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		server.record("channel")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	mux.HandleFunc("/api/conversations", func(w http.ResponseWriter, r *http.Request) {
		server.record("reload")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	})

	server.Server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestEngine_ConnectOpensChannelBeforeReload(t *testing.T) {
	req := require.New(t)
	server := newOrderedServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	engine := NewEngine(slog.Default(), wsURL, "test-token",
		NewCache("self"), NewFallback(server.URL, "test-token"))
	t.Cleanup(func() { _ = engine.Close() })

	req.NoError(engine.Connect(context.Background()))
	req.Equal(StateConnected, engine.State())

	// The channel must be open before the authoritative reload runs, or
	// a message created in between would never reach the cache.
	req.Equal([]string{"channel", "reload"}, server.order())
}

func TestEngine_ConnectFailedDialSkipsReload(t *testing.T) {
	req := require.New(t)
	server := newOrderedServer(t)

	// A dead channel endpoint fails the connect outright; no reload runs
	// against a channel that never opened.
	engine := NewEngine(slog.Default(), "ws://127.0.0.1:1/ws", "test-token",
		NewCache("self"), NewFallback(server.URL, "test-token"))
	t.Cleanup(func() { _ = engine.Close() })

	req.Error(engine.Connect(context.Background()))
	req.Equal(StateDisconnected, engine.State())
	req.Empty(server.order())
}
