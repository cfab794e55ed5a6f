package notify

import (
	"context"
	"sync"
)

// Recorder is a Notifier that keeps every message. Tests use it to assert
// what was sent. Messages are recorded even when an error is injected.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Fail makes later sends return err. Pass nil to clear.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Messages returns a copy of all sent messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Len returns the number of sends.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.err
}

func (r *Recorder) Close() error { return nil }
