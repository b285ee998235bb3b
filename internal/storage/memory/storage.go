package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/captain-draft/internal/dependencies/clock"
	"github.com/mcoot/captain-draft/internal/model"
	"github.com/mcoot/captain-draft/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu      sync.RWMutex
	clock   clock.Clock
	ttl     time.Duration
	results map[model.SessionID]entry
}

type entry struct {
	result    *model.DraftResult
	expiresAt time.Time
}

// New creates a new in-memory storage instance. Results expire after ttl; zero keeps them forever.
func New(clock clock.Clock, ttl time.Duration) *Storage {
	return &Storage{
		clock:   clock,
		ttl:     ttl,
		results: make(map[model.SessionID]entry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveResult(ctx context.Context, result *model.DraftResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{result: result}
	if s.ttl > 0 {
		e.expiresAt = s.clock.Now().Add(s.ttl)
	}
	s.results[result.SessionID] = e
	return nil
}

func (s *Storage) GetResult(ctx context.Context, id model.SessionID) (*model.DraftResult, error) {
	s.mu.RLock()
	e, ok := s.results[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrResultNotFound
	}
	if !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.results, id)
		s.mu.Unlock()
		return nil, model.ErrResultNotFound
	}
	return e.result, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}
