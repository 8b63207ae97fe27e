package clientsync

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

// State describes the engine's connection to the live channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Engine keeps the local cache consistent with the server. While the
// channel is up, events drive the cache; while it is down, the REST
// fallback carries reads and writes and a full resync runs on reconnect.
type Engine struct {
	log      *slog.Logger
	wsURL    string
	token    string
	cache    *Cache
	fallback *Fallback

	reconnectDelay time.Duration
	maxReconnects  int

	// OnChange, when set, fires after every cache mutation so a UI can
	// re-render. Never called after Close.
	OnChange func()

	mu           sync.Mutex
	state        State
	conn         *websocket.Conn
	closed       bool
	reconnecting bool
	cancel       context.CancelFunc
}

func NewEngine(log *slog.Logger, wsURL, token string, cache *Cache, fallback *Fallback) *Engine {
	return &Engine{
		log:            log,
		wsURL:          wsURL,
		token:          token,
		cache:          cache,
		fallback:       fallback,
		reconnectDelay: 2 * time.Second,
		maxReconnects:  5,
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Cache() *Cache { return e.cache }

// Connect dials the channel, starts the read loop, and then reloads the
// authoritative state. The channel must be open before the reload so
// that nothing created in between is missed; a duplicate delivered both
// ways reconciles in the cache.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return apperrors.ErrEngineClosed
	}
	e.state = StateConnecting
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	if err := e.dial(ctx); err != nil {
		return err
	}
	return e.resync()
}

// Send delivers a message: over the channel when it is up, over the REST
// fallback otherwise. Channel sends are appended optimistically; fallback
// sends reload the conversation instead.
func (e *Engine) Send(conversationID, body string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return apperrors.ErrEngineClosed
	}
	conn := e.conn
	connected := e.state == StateConnected
	e.mu.Unlock()

	if connected {
		payload, err := json.Marshal(event.SendPayload{ConversationID: conversationID, Body: body})
		if err != nil {
			return err
		}
		frame, err := json.Marshal(event.Envelope{Type: event.KindSend, Payload: payload})
		if err != nil {
			return err
		}
		e.cache.AddPending(conversationID, body)
		e.notifyChange()
		return conn.WriteMessage(websocket.TextMessage, frame)
	}

	if _, err := e.fallback.PostMessage(conversationID, body); err != nil {
		return err
	}
	return e.reloadConversation(conversationID)
}

// Close tears the engine down. Any pending reconnect attempt is
// abandoned and OnChange never fires again.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.state = StateDisconnected
	if e.cancel != nil {
		e.cancel()
	}
	if e.conn != nil {
		_ = e.conn.Close()
	}
	return nil
}

func (e *Engine) dial(ctx context.Context) error {
	header := map[string][]string{"Authorization": {"Bearer " + e.token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, e.wsURL, header)
	if err != nil {
		e.setState(StateDisconnected)
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = conn.Close()
		return apperrors.ErrEngineClosed
	}
	e.conn = conn
	e.state = StateConnected
	e.mu.Unlock()

	go e.readLoop(ctx, conn)
	return nil
}

// readLoop consumes the event stream until the connection drops, then
// hands over to the reconnect path.
func (e *Engine) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var envelope event.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			e.log.Warn("Undecodable frame dropped", "error", err)
			continue
		}
		e.apply(envelope)
	}

	e.mu.Lock()
	if e.closed || ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.conn = nil
	e.state = StateReconnecting
	alreadyRunning := e.reconnecting
	e.reconnecting = true
	e.mu.Unlock()

	// One reconnect loop in flight at a time.
	if !alreadyRunning {
		go e.reconnect(ctx)
	}
}

// reconnect retries with a fixed delay up to the attempt cap, resyncing
// through the fallback on success. Exhaustion leaves the engine
// disconnected; the fallback still works.
func (e *Engine) reconnect(ctx context.Context) {
	defer func() {
		e.mu.Lock()
		e.reconnecting = false
		e.mu.Unlock()
	}()

	for attempt := 1; attempt <= e.maxReconnects; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.reconnectDelay):
		}

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()

		e.log.Info("Reconnecting", "attempt", attempt, "max", e.maxReconnects)
		if err := e.dial(ctx); err != nil {
			e.log.Warn("Dial failed", "attempt", attempt, "error", err)
			continue
		}
		// The channel is live again; the reload fills in what was missed
		// while offline. Overlap with fresh events reconciles in the
		// cache.
		if err := e.resync(); err != nil {
			e.log.Warn("Resync failed after reconnect", "attempt", attempt, "error", err)
		}
		e.notifyChange()
		return
	}

	e.log.Warn("Reconnect attempts exhausted, staying on fallback")
	e.setState(StateDisconnected)
}

// resync replaces the cache with the authoritative server state. Events
// missed while offline (including deletions) are reconciled here.
func (e *Engine) resync() error {
	conversations, err := e.fallback.Conversations()
	if err != nil {
		return err
	}
	e.cache.ReplaceConversations(conversations)
	for _, conversation := range conversations {
		messages, err := e.fallback.Messages(conversation.ID)
		if err != nil {
			return err
		}
		e.cache.ReplaceMessages(conversation.ID, messages)
	}
	e.notifyChange()
	return nil
}

func (e *Engine) reloadConversation(conversationID string) error {
	messages, err := e.fallback.Messages(conversationID)
	if err != nil {
		return err
	}
	e.cache.ReplaceMessages(conversationID, messages)
	e.notifyChange()
	return nil
}

func (e *Engine) apply(envelope event.Envelope) {
	switch envelope.Type {
	case event.KindMessageCreated:
		var m domain.Message
		if json.Unmarshal(envelope.Payload, &m) == nil {
			e.cache.ApplyCreated(m)
		}
	case event.KindMessageUpdated:
		var m domain.Message
		if json.Unmarshal(envelope.Payload, &m) == nil {
			e.cache.ApplyUpdated(m)
		}
	case event.KindMessageDeleted:
		var p event.MessageDeletedPayload
		if json.Unmarshal(envelope.Payload, &p) == nil {
			e.cache.ApplyDeleted(p.ConversationID, p.MessageID)
		}
	case event.KindPrincipalOnline:
		var p event.PresencePayload
		if json.Unmarshal(envelope.Payload, &p) == nil {
			e.cache.ApplyPresence(p.PrincipalID, true)
		}
	case event.KindPrincipalOffline:
		var p event.PresencePayload
		if json.Unmarshal(envelope.Payload, &p) == nil {
			e.cache.ApplyPresence(p.PrincipalID, false)
		}
	case event.KindError:
		var p event.ErrorPayload
		if json.Unmarshal(envelope.Payload, &p) == nil {
			e.log.Warn("Server rejected an event", "message", p.Message)
		}
	default:
		e.log.Warn("Unknown event kind ignored", "kind", envelope.Type)
	}
	e.notifyChange()
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.state = s
	}
}

func (e *Engine) notifyChange() {
	e.mu.Lock()
	callback := e.OnChange
	closed := e.closed
	e.mu.Unlock()
	if callback != nil && !closed {
		callback()
	}
}
