// Package session owns live draft sessions, their role slots and lifecycle timers.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/captain-draft/internal/dependencies/clock"
	"github.com/mcoot/captain-draft/internal/metrics"
	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/services/draft"
	"github.com/mcoot/captain-draft/internal/services/secrets"
	"github.com/mcoot/captain-draft/internal/storage"
)

// Registry holds every live session. A closing session stays registered only
// until its result is archived; Exec on it fails with model.ErrSessionClosing.
type Registry struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*Session

	cfg     Config
	clock   clock.Clock
	tokens  *secrets.Generator
	storage storage.Storage
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(
	cfg Config,
	clock clock.Clock,
	tokens *secrets.Generator,
	storage storage.Storage,
	metrics *metrics.Metrics,
	logger *slog.Logger,
) *Registry {
	defaults := DefaultConfig()
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaults.IdleTimeout
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = defaults.GracePeriod
	}
	if cfg.ArchiveTimeout == 0 {
		cfg.ArchiveTimeout = defaults.ArchiveTimeout
	}
	return &Registry{
		sessions: make(map[model.SessionID]*Session),
		cfg:      cfg,
		clock:    clock,
		tokens:   tokens,
		storage:  storage,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "session")),
	}
}

// Create starts a session for the named captains. The first captain holds the
// first turn and the idle timer starts immediately.
func (r *Registry) Create(ctx context.Context, names []string) (*Session, error) {
	if len(names) < 2 {
		return nil, model.ErrInsufficientCaptains
	}

	captains := make([]model.Captain, len(names))
	seen := make(map[model.CaptainID]bool, len(names))
	for i, name := range names {
		id := model.CaptainID(r.tokens.Token())
		for seen[id] || id == model.Unselected {
			id = model.CaptainID(r.tokens.Token())
		}
		seen[id] = true
		captains[i] = model.Captain{ID: id, Name: name, Secret: r.tokens.Token()}
	}

	state, err := draft.New(captains)
	if err != nil {
		return nil, err
	}

	hostSecret := r.tokens.Token()
	hostSecretHash, err := secrets.HashSecret(hostSecret)
	if err != nil {
		return nil, err
	}

	s := &Session{
		registry:        r,
		hostSecret:      hostSecret,
		hostSecretHash:  hostSecretHash,
		spectatorSecret: r.tokens.Token(),
		createdAt:       r.clock.Now(),
		draft:           state,
		captains:        make(map[model.CaptainID]Conn, len(captains)),
		spectators:      make(map[string]Conn),
	}

	r.mu.Lock()
	id := model.SessionID(r.tokens.Token())
	for r.sessions[id] != nil {
		id = model.SessionID(r.tokens.Token())
	}
	s.id = id
	s.logger = r.logger.With(slog.String("session_id", string(id)))
	r.sessions[id] = s
	count := len(r.sessions)
	r.mu.Unlock()

	s.mu.Lock()
	s.armIdleLocked()
	s.mu.Unlock()

	r.metrics.SessionsCreated.Inc()
	r.metrics.ActiveSessions.Set(float64(count))
	s.logger.Info("session created", slog.Int("captains", len(captains)))
	return s, nil
}

// Get returns a live session
func (r *Registry) Get(id model.SessionID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown tears down every live session, archiving their results
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = s.Exec(func(tx *Tx) error {
			tx.Teardown(model.ReasonShutdown)
			return nil
		})
	}
	r.logger.Info("sessions shut down", slog.Int("count", len(sessions)))
	return nil
}

func (r *Registry) remove(id model.SessionID) {
	r.mu.Lock()
	delete(r.sessions, id)
	count := len(r.sessions)
	r.mu.Unlock()
	r.metrics.ActiveSessions.Set(float64(count))
}

func (r *Registry) archive(result *model.DraftResult) {
	log := r.logger.With(slog.String("session_id", string(result.SessionID)))

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ArchiveTimeout)
	defer cancel()
	if err := r.storage.SaveResult(ctx, result); err != nil {
		log.Error("failed to archive draft result", slog.Any("error", err))
		return
	}
	log.Debug("draft result archived")
}
