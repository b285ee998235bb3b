// Package realtime runs the per-connection protocol: handshake, role binding,
// action dispatch and fan-out of the resulting state.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/captain-draft/internal/dependencies/clock"
	"github.com/mcoot/captain-draft/internal/metrics"
	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/session"
)

// Config holds connection protocol settings
type Config struct {
	// HandshakeTimeout bounds the wait for selectMatch and selectRole
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the default protocol settings
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 30 * time.Second,
	}
}

// Coordinator serves connections against a session registry
type Coordinator struct {
	registry *session.Registry
	clock    clock.Clock
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator
func NewCoordinator(
	registry *session.Registry,
	clock clock.Clock,
	cfg Config,
	metrics *metrics.Metrics,
	logger *slog.Logger,
) *Coordinator {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = DefaultConfig().HandshakeTimeout
	}
	return &Coordinator{
		registry: registry,
		clock:    clock,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "realtime")),
	}
}

// Serve runs one connection until it closes, ctx is cancelled or inbound is
// closed. Inbound carries the decoded client frames in arrival order.
func (c *Coordinator) Serve(ctx context.Context, conn session.Conn, inbound <-chan model.ClientMessage) {
	log := c.logger.With(slog.String("conn_id", conn.ID()))

	sess, role, err := c.handshake(ctx, conn, inbound, log)
	if err != nil {
		reason := failureReason(err)
		c.metrics.HandshakeFailures.WithLabelValues(reason).Inc()
		log.Debug("handshake failed", slog.String("reason", reason), slog.Any("error", err))
		conn.Close()
		return
	}

	log = log.With(
		slog.String("session_id", string(sess.ID())),
		slog.String("role", role.Label()))
	defer c.unbind(sess, role, conn, log)

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			if err := c.dispatch(sess, role, msg, log); errors.Is(err, model.ErrSessionClosing) {
				return
			}
		}
	}
}

func (c *Coordinator) unbind(sess *session.Session, role model.Role, conn session.Conn, log *slog.Logger) {
	err := sess.Exec(func(tx *session.Tx) error {
		if tx.Unbind(role, conn) {
			tx.Broadcast(model.NewMessage(model.EventConnection, tx.Connectivity()))
		}
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrSessionClosing) {
		log.Warn("failed to unbind connection", slog.Any("error", err))
	}
	log.Debug("connection finished")
}

// snapshot sends the binding connection the full state of the session and
// announces the new connectivity to everyone.
func snapshot(tx *session.Tx, role model.Role, conn session.Conn) {
	d := tx.Draft()
	tx.Send(conn, model.NewMessage(model.EventCaptainIDs, d.CaptainInfos(role.Kind == model.RoleHost)))
	tx.Send(conn, model.NewMessage(model.EventNewList, d.Entries()))
	tx.Send(conn, model.NewMessage(model.EventRoleID, role.Label()))
	tx.Send(conn, model.NewMessage(model.EventPicking, d.Turn()))
	tx.Send(conn, model.NewMessage(model.EventPermission, string(role.Kind)))
	if role.IsPrivileged() {
		tx.Send(conn, model.NewMessage(model.EventSpectatorSecret, tx.SpectatorSecret()))
	}
	tx.Broadcast(model.NewMessage(model.EventConnection, tx.Connectivity()))
}
