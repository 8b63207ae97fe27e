// Package ws hosts the live channels: the websocket endpoint, the
// per-channel pumps, and the router that maps inbound events to domain
// operations.
package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
)

// Channel is one authenticated websocket connection. It is the
// contract.EventSink registered for its principal: the fan-out loop hands
// events to Consume, the write pump serializes them onto the wire.
type Channel struct {
	log       *slog.Logger
	conn      *websocket.Conn
	principal domain.Principal

	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewChannel(log *slog.Logger, conn *websocket.Conn, principal domain.Principal, buffer int) *Channel {
	return &Channel{
		log:       log.With("principal_id", principal.ID),
		conn:      conn,
		principal: principal,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

func (c *Channel) Principal() domain.Principal { return c.principal }

// Consume queues an outbound event for this channel. It returns once the
// event is queued, the channel is gone, or the caller's context expires,
// whichever comes first.
func (c *Channel) Consume(ctx context.Context, e event.Outbound) error {
	frame, err := e.Encode()
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return apperrors.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close tears the channel down exactly once. Pending sends unblock via
// the done channel.
func (c *Channel) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump consumes inbound frames until the peer goes away, handing each
// one to the router. It owns the read side of the connection.
func (c *Channel) readPump(ctx context.Context, router *Router) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Channel read failed", "error", err)
			}
			return
		}
		router.Handle(ctx, c.principal, raw, c)
	}
}

// writePump serializes queued frames onto the wire and keeps the
// connection alive with pings. It owns the write side of the connection.
func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
