package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/captain-draft/internal/dependencies/random"
)

// MockRandom hands out queued strings, then distinct counters
type MockRandom struct {
	mu      sync.Mutex
	queued  []string
	counter int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a MockRandom with an empty queue
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued value. Once the queue is drained it returns
// zero-padded counters of the requested length, so ids never collide.
func (r *MockRandom) String(length int, _ string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) > 0 {
		next := r.queued[0]
		r.queued = r.queued[1:]
		return next
	}
	r.counter++
	return fmt.Sprintf("%0*d", length, r.counter)
}

// QueueString queues values to be returned by String in order
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, values...)
}
