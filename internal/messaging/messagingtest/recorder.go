// Package messagingtest provides an in-memory messaging client for tests.
package messagingtest

import (
	"context"
	"sync"

	"github.com/Rockthor1106/restaurant-management-api/internal/messaging"
)

// Recorder is a messaging.Client that keeps every published message.
type Recorder struct {
	mu       sync.Mutex
	messages []messaging.Message

	// Err, when set, is returned by Publish and nothing is recorded.
	Err error
}

var _ messaging.Client = (*Recorder)(nil)

// Publish records the message.
func (r *Recorder) Publish(_ context.Context, key []byte, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, messaging.Message{
		Topic: r.Topic(),
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
	})
	return nil
}

// Consume blocks until ctx is done.
func (r *Recorder) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

// Topic returns the fixed test topic.
func (r *Recorder) Topic() string { return "restaurant.orders" }

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []messaging.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]messaging.Message(nil), r.messages...)
}
