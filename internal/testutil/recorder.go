// Package testutil provides shared test utilities and mocks for unit testing.
package testutil

import (
	"sync"
)

// Recorder is a broadcaster callback that records every message it
// receives. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []any

	// OnCall, if set, runs before the message is recorded. A non-nil error
	// is returned to the caller and the message is not recorded.
	OnCall func(message any) error
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Call records message.
func (r *Recorder) Call(message any) error {
	if r.OnCall != nil {
		if err := r.OnCall(message); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of the recorded messages in arrival order.
func (r *Recorder) Messages() []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]any, len(r.messages))
	copy(out, r.messages)
	return out
}

// Count returns the number of recorded messages.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// Reset drops all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
