package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/session"
)

// Conn adapts a websocket to session.Conn. Sends are queued on a bounded
// buffer drained by a single writer goroutine.
type Conn struct {
	id     string
	ws     *websocket.Conn
	cfg    Config
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Ensure Conn implements session.Conn
var _ session.Conn = (*Conn)(nil)

func newConn(ws *websocket.Conn, cfg Config, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:     id,
		ws:     ws,
		cfg:    cfg,
		logger: logger.With(slog.String("conn_id", id)),
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Send queues msg for the writer. A full buffer closes the connection.
func (c *Conn) Send(msg model.ServerMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to encode message", slog.String("event", msg.Event), slog.Any("error", err))
		return true
	}

	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.Close()
		return false
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// writeLoop writes queued frames and keepalive pings until the connection closes
func (c *Conn) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			c.Close()
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			err := c.ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.Debug("write failed", slog.Any("error", err))
				c.Close()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			err := c.ws.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Debug("keepalive failed", slog.Any("error", err))
				c.Close()
				return
			}
		}
	}
}

// readLoop decodes inbound frames onto inbound until the peer goes away.
// Frames that are not JSON text messages are skipped.
func (c *Conn) readLoop(ctx context.Context, inbound chan<- model.ClientMessage) {
	defer close(inbound)
	defer c.Close()

	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					c.logger.Debug("read failed", slog.Any("error", err))
				}
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg model.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			c.logger.Debug("ignoring unparseable frame")
			continue
		}

		select {
		case inbound <- msg:
		case <-c.done:
			return
		}
	}
}
