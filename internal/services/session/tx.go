package session

import (
	"log/slog"

	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/draft"
	"github.com/mcoot/captain-draft/internal/services/secrets"
)

// Tx is exclusive access to a session for the duration of one Exec call.
// It must not be retained after the callback returns.
type Tx struct {
	s     *Session
	after []func()
}

// ID returns the session id
func (tx *Tx) ID() model.SessionID {
	return tx.s.id
}

// Draft returns the session's draft state
func (tx *Tx) Draft() *draft.State {
	return tx.s.draft
}

// SpectatorSecret returns the bearer secret shared with spectators
func (tx *Tx) SpectatorSecret() string {
	return tx.s.spectatorSecret
}

// ResolveRole maps a presented secret to a role in this session
func (tx *Tx) ResolveRole(secret string) (model.Role, error) {
	return secrets.Resolve(tx.s.credentials(), secret)
}

// Bind attaches conn to the role's slot. A connection already holding a host or
// captain slot is closed and replaced. Binding the host cancels any pending timer.
func (tx *Tx) Bind(role model.Role, conn Conn) {
	s := tx.s
	log := s.logger.With(slog.String("conn_id", conn.ID()), slog.String("role", role.Label()))

	switch role.Kind {
	case model.RoleHost:
		if s.host != nil && s.host != conn {
			log.Info("host connection taken over", slog.String("previous_conn_id", s.host.ID()))
			s.host.Close()
		} else if s.host == nil {
			s.registry.metrics.ActiveConnections.WithLabelValues(string(role.Kind)).Inc()
		}
		s.host = conn
		s.cancelTimerLocked()
	case model.RoleCaptain:
		prev := s.captains[role.CaptainID]
		if prev != nil && prev != conn {
			log.Info("captain connection taken over", slog.String("previous_conn_id", prev.ID()))
			prev.Close()
		} else if prev == nil {
			s.registry.metrics.ActiveConnections.WithLabelValues(string(role.Kind)).Inc()
		}
		s.captains[role.CaptainID] = conn
	case model.RoleSpectator:
		if _, ok := s.spectators[conn.ID()]; !ok {
			s.registry.metrics.ActiveConnections.WithLabelValues(string(role.Kind)).Inc()
		}
		s.spectators[conn.ID()] = conn
	}
	log.Info("connection bound")
}

// Unbind detaches conn from the role's slot if it still holds it, reporting
// whether anything changed. Unbinding the host starts the grace timer.
func (tx *Tx) Unbind(role model.Role, conn Conn) bool {
	s := tx.s
	switch role.Kind {
	case model.RoleHost:
		if s.host != conn {
			return false
		}
		s.host = nil
		s.armGraceLocked()
	case model.RoleCaptain:
		if s.captains[role.CaptainID] != conn {
			return false
		}
		delete(s.captains, role.CaptainID)
	case model.RoleSpectator:
		if _, ok := s.spectators[conn.ID()]; !ok {
			return false
		}
		delete(s.spectators, conn.ID())
	default:
		return false
	}
	s.registry.metrics.ActiveConnections.WithLabelValues(string(role.Kind)).Dec()
	s.logger.Info("connection unbound",
		slog.String("conn_id", conn.ID()),
		slog.String("role", role.Label()))
	return true
}

// Connectivity summarises which slots are bound
func (tx *Tx) Connectivity() model.Connectivity {
	s := tx.s
	c := model.Connectivity{
		Host:       s.host != nil,
		Captains:   make(map[model.CaptainID]bool),
		Spectators: len(s.spectators),
	}
	for _, captain := range s.draft.Captains() {
		c.Captains[captain.ID] = s.captains[captain.ID] != nil
	}
	return c
}

// Send delivers a message to a single connection
func (tx *Tx) Send(conn Conn, msg model.ServerMessage) {
	if !conn.Send(msg) {
		tx.s.registry.metrics.DroppedMessages.Inc()
		tx.s.logger.Warn("message dropped - connection buffer full",
			slog.String("conn_id", conn.ID()),
			slog.String("event", msg.Event))
	}
}

// Broadcast delivers a message to every bound connection. A connection that
// cannot keep up is dropped without affecting the others.
func (tx *Tx) Broadcast(msg model.ServerMessage) {
	s := tx.s
	if s.host != nil {
		tx.Send(s.host, msg)
	}
	for _, captain := range s.draft.Captains() {
		if conn := s.captains[captain.ID]; conn != nil {
			tx.Send(conn, msg)
		}
	}
	for _, conn := range s.spectators {
		tx.Send(conn, msg)
	}
}

// SendToCaptain delivers a message to a captain's bound connection, if any
func (tx *Tx) SendToCaptain(id model.CaptainID, msg model.ServerMessage) bool {
	conn := tx.s.captains[id]
	if conn == nil {
		return false
	}
	tx.Send(conn, msg)
	return true
}

// Teardown closes the session. Every bound connection is closed and, once the
// lock is released, the draft result is archived before the session leaves the
// registry, so a session that Get no longer finds always has a readable result.
func (tx *Tx) Teardown(reason model.TeardownReason) {
	s := tx.s
	if s.closing {
		return
	}
	s.closing = true
	s.cancelTimerLocked()

	conns := s.registry.metrics.ActiveConnections
	closed := 0
	for id, conn := range s.captains {
		conn.Close()
		delete(s.captains, id)
		conns.WithLabelValues(string(model.RoleCaptain)).Dec()
		closed++
	}
	for id, conn := range s.spectators {
		conn.Close()
		delete(s.spectators, id)
		conns.WithLabelValues(string(model.RoleSpectator)).Dec()
		closed++
	}
	if s.host != nil {
		s.host.Close()
		s.host = nil
		conns.WithLabelValues(string(model.RoleHost)).Dec()
		closed++
	}
	s.registry.metrics.Teardowns.WithLabelValues(string(reason)).Inc()

	captains, unselected := s.draft.Result()
	result := &model.DraftResult{
		SessionID:      s.id,
		Captains:       captains,
		Unselected:     unselected,
		Reason:         reason,
		CreatedAt:      s.createdAt,
		ClosedAt:       s.registry.clock.Now(),
		HostSecretHash: s.hostSecretHash,
	}
	tx.after = append(tx.after, func() {
		s.registry.archive(result)
		s.registry.remove(s.id)
	})

	s.logger.Info("session torn down",
		slog.String("reason", string(reason)),
		slog.Int("closed_connections", closed))
}
