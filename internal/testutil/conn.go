package testutil

import (
	"sync"

	"github.com/mcoot/captain-draft/internal/model"
)

// FakeConn is an in-memory connection that records what it is sent
type FakeConn struct {
	id   string
	done chan struct{}

	mu       sync.Mutex
	messages []model.ServerMessage
	closed   bool
	full     bool
	notify   chan struct{}
}

// NewFakeConn creates an open FakeConn
func NewFakeConn(id string) *FakeConn {
	return &FakeConn{
		id:     id,
		done:   make(chan struct{}),
		notify: make(chan struct{}, 1),
	}
}

func (c *FakeConn) ID() string {
	return c.id
}

// Send records msg. A connection marked full drops the message and closes itself.
func (c *FakeConn) Send(msg model.ServerMessage) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return true
	}
	if c.full {
		c.mu.Unlock()
		c.Close()
		return false
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true
}

func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *FakeConn) Done() <-chan struct{} {
	return c.done
}

// SetFull makes subsequent sends fail as if the outbound buffer were full
func (c *FakeConn) SetFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

// Closed reports whether Close has been called
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages returns a copy of everything sent so far
func (c *FakeConn) Messages() []model.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ServerMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Events returns the event names sent so far, in order
func (c *FakeConn) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]string, len(c.messages))
	for i, m := range c.messages {
		events[i] = m.Event
	}
	return events
}

// Last returns the most recent message for event
func (c *FakeConn) Last(event string) (model.ServerMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Event == event {
			return c.messages[i], true
		}
	}
	return model.ServerMessage{}, false
}

// Reset forgets recorded messages
func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// Count returns how many messages have been recorded
func (c *FakeConn) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Notify signals (coalesced) whenever a message is recorded
func (c *FakeConn) Notify() <-chan struct{} {
	return c.notify
}
