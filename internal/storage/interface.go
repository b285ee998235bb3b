package storage

import (
	"context"

	"github.com/mcoot/captain-draft/internal/model"
)

// Storage archives the results of sessions that have been torn down.
// Live sessions are never persisted.
type Storage interface {
	SaveResult(ctx context.Context, result *model.DraftResult) error
	GetResult(ctx context.Context, id model.SessionID) (*model.DraftResult, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
