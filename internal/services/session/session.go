package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/captain-draft/internal/dependencies/clock"
	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/draft"
	"github.com/mcoot/captain-draft/internal/services/secrets"
)

// Session is one live draft. All state below mu is only touched through Exec.
type Session struct {
	id              model.SessionID
	hostSecret      string
	hostSecretHash  []byte
	spectatorSecret string
	createdAt       time.Time
	registry        *Registry
	logger          *slog.Logger

	mu         sync.Mutex
	draft      *draft.State
	host       Conn
	captains   map[model.CaptainID]Conn
	spectators map[string]Conn
	closing    bool

	// idle and grace timers share one slot; timerGen drops stale fires
	timer    clock.Timer
	timerGen uint64
}

// ID returns the session id
func (s *Session) ID() model.SessionID {
	return s.id
}

// HostSecret returns the bearer secret for the host role
func (s *Session) HostSecret() string {
	return s.hostSecret
}

// Exec runs fn with exclusive access to the session. It returns
// model.ErrSessionClosing without calling fn once the session is closing.
// Work deferred by fn runs after the lock is released.
func (s *Session) Exec(fn func(tx *Tx) error) error {
	after, err := s.exec(fn)
	for _, f := range after {
		f()
	}
	return err
}

func (s *Session) exec(fn func(tx *Tx) error) ([]func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return nil, model.ErrSessionClosing
	}
	tx := &Tx{s: s}
	err := fn(tx)
	return tx.after, err
}

func (s *Session) armIdleLocked() {
	s.armTimerLocked(s.registry.cfg.IdleTimeout, func(tx *Tx) {
		if s.host != nil {
			return
		}
		s.logger.Info("session idle with no host, tearing down")
		tx.Teardown(model.ReasonIdle)
	})
}

func (s *Session) armGraceLocked() {
	s.armTimerLocked(s.registry.cfg.GracePeriod, func(tx *Tx) {
		if s.host != nil {
			return
		}
		s.logger.Info("host did not return within grace period, tearing down")
		tx.Teardown(model.ReasonHostTimeout)
	})
}

func (s *Session) armTimerLocked(d time.Duration, fire func(tx *Tx)) {
	s.cancelTimerLocked()
	gen := s.timerGen
	s.timer = s.registry.clock.AfterFunc(d, func() {
		s.fireTimer(gen, fire)
	})
}

// fireTimer runs a timer callback unless the timer was cancelled or replaced
// after it was armed
func (s *Session) fireTimer(gen uint64, fire func(tx *Tx)) {
	_ = s.Exec(func(tx *Tx) error {
		if gen != s.timerGen {
			return nil
		}
		s.timer = nil
		fire(tx)
		return nil
	})
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) credentials() secrets.Credentials {
	return secrets.Credentials{
		HostSecret:      s.hostSecret,
		SpectatorSecret: s.spectatorSecret,
		Captains:        s.draft.Captains(),
	}
}
