package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/session"
)

var (
	errMalformed        = errors.New("malformed payload")
	errHandshakeTimeout = errors.New("handshake timed out")
	errDisconnected     = errors.New("connection closed during handshake")
)

// handshakeState tracks the two single-use handshake messages. Either may
// arrive first; a role selected before its session is held until the session
// resolves.
type handshakeState struct {
	matchSeen bool
	roleSeen  bool
	session   *session.Session
	secret    string
}

func (h *handshakeState) ready() bool {
	return h.session != nil && h.roleSeen
}

func (c *Coordinator) handshake(
	ctx context.Context,
	conn session.Conn,
	inbound <-chan model.ClientMessage,
	log *slog.Logger,
) (*session.Session, model.Role, error) {
	expired := make(chan struct{})
	timer := c.clock.AfterFunc(c.cfg.HandshakeTimeout, func() { close(expired) })
	defer timer.Stop()

	var h handshakeState
	for !h.ready() {
		select {
		case <-ctx.Done():
			return nil, model.Role{}, ctx.Err()
		case <-conn.Done():
			return nil, model.Role{}, errDisconnected
		case <-expired:
			return nil, model.Role{}, errHandshakeTimeout
		case msg, ok := <-inbound:
			if !ok {
				return nil, model.Role{}, errDisconnected
			}
			if err := h.accept(c, msg); err != nil {
				return nil, model.Role{}, err
			}
		}
	}

	var role model.Role
	err := h.session.Exec(func(tx *session.Tx) error {
		var err error
		role, err = tx.ResolveRole(h.secret)
		if err != nil {
			return err
		}
		tx.Bind(role, conn)
		snapshot(tx, role, conn)
		return nil
	})
	if err != nil {
		return nil, model.Role{}, err
	}
	log.Debug("handshake complete",
		slog.String("session_id", string(h.session.ID())),
		slog.String("role", role.Label()))
	return h.session, role, nil
}

// accept consumes one inbound message during the handshake. Messages other
// than the first selectMatch and first selectRole are ignored.
func (h *handshakeState) accept(c *Coordinator, msg model.ClientMessage) error {
	switch msg.Event {
	case model.EventSelectMatch:
		if h.matchSeen {
			return nil
		}
		h.matchSeen = true
		id, ok := msg.StringData()
		if !ok {
			return fmt.Errorf("selectMatch: %w", errMalformed)
		}
		sess, err := c.registry.Get(model.SessionID(id))
		if err != nil {
			return err
		}
		h.session = sess
	case model.EventSelectRole:
		if h.roleSeen {
			return nil
		}
		h.roleSeen = true
		secret, ok := msg.StringData()
		if !ok {
			return fmt.Errorf("selectRole: %w", errMalformed)
		}
		h.secret = secret
	}
	return nil
}

// failureReason labels a handshake error for metrics
func failureReason(err error) string {
	switch {
	case errors.Is(err, errMalformed):
		return "malformed"
	case errors.Is(err, model.ErrSessionNotFound):
		return "unknown_session"
	case errors.Is(err, model.ErrSessionClosing):
		return "session_closing"
	case errors.Is(err, model.ErrSecretNotFound):
		return "unknown_secret"
	case errors.Is(err, errHandshakeTimeout):
		return "timeout"
	case errors.Is(err, errDisconnected), errors.Is(err, context.Canceled):
		return "disconnected"
	default:
		return "other"
	}
}
