package session

import "time"

// Config holds session lifecycle settings
type Config struct {
	// IdleTimeout is how long a new session waits for its host before being reaped
	IdleTimeout time.Duration

	// GracePeriod is how long a session survives after its host disconnects
	GracePeriod time.Duration

	// ArchiveTimeout bounds writing a draft result to storage on teardown
	ArchiveTimeout time.Duration
}

// DefaultConfig returns the default lifecycle settings
func DefaultConfig() Config {
	return Config{
		IdleTimeout:    60 * time.Second,
		GracePeriod:    10 * time.Second,
		ArchiveTimeout: 5 * time.Second,
	}
}
