package session

import "github.com/mcoot/captain-draft/internal/model"

// Conn is a live client connection as seen by a session. The transport owns
// the connection; sessions only hold a reference while it is bound.
type Conn interface {
	// ID uniquely identifies the connection for logging and spectator bookkeeping
	ID() string

	// Send queues a message without blocking. It returns false if the message was
	// dropped, in which case the connection closes itself.
	Send(msg model.ServerMessage) bool

	// Close terminates the connection. It must not block and may be called more than once.
	Close()

	// Done is closed once the connection has been closed by either side
	Done() <-chan struct{}
}
