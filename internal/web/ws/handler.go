// Package ws serves the draft protocol over websockets.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/session"
)

// Config holds websocket transport settings
type Config struct {
	// SendBuffer is the number of outbound messages queued before a client is dropped
	SendBuffer int

	// WriteTimeout bounds each frame write and keepalive ping
	WriteTimeout time.Duration

	// PingInterval is the time between keepalive pings
	PingInterval time.Duration

	// ReadLimit is the maximum inbound frame size in bytes
	ReadLimit int64

	// OriginPatterns lists additional origins allowed to connect from browsers
	OriginPatterns []string
}

// DefaultConfig returns the default transport settings
func DefaultConfig() Config {
	return Config{
		SendBuffer:   64,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		ReadLimit:    32 * 1024,
	}
}

// Server runs connections for one connection protocol
type Server interface {
	Serve(ctx context.Context, conn session.Conn, inbound <-chan model.ClientMessage)
}

// Handler upgrades HTTP requests to websockets and hands them to a Server
type Handler struct {
	server Server
	cfg    Config
	logger *slog.Logger
}

// NewHandler creates a websocket Handler
func NewHandler(server Server, cfg Config, logger *slog.Logger) *Handler {
	defaults := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.ReadLimit == 0 {
		cfg.ReadLimit = defaults.ReadLimit
	}
	return &Handler{
		server: server,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ws")),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Server-wide deadlines would otherwise cut long-lived connections
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	wsConn.SetReadLimit(h.cfg.ReadLimit)

	conn := newConn(wsConn, h.cfg, h.logger)
	conn.logger.Debug("websocket connected", slog.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan model.ClientMessage)
	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.writeLoop(ctx)
	}()
	go func() {
		defer close(readerDone)
		conn.readLoop(ctx, inbound)
	}()

	h.server.Serve(ctx, conn, inbound)

	conn.Close()
	<-writerDone
	_ = wsConn.Close(websocket.StatusNormalClosure, "")
	cancel()
	<-readerDone
	conn.logger.Debug("websocket disconnected")
}
