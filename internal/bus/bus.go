package bus

import (
	"context"
	"sync"

	"github.com/karalama/karalama/internal/model"
)

// Handler receives decoded events for a subscribed topic. Handlers are
// invoked from transport goroutines and must not block; enqueue onto your
// own loop and return.
type Handler func(ev model.Event)

// Bus is a named-topic publish/subscribe transport. Delivery is
// at-most-once; ordering is preserved only among messages from the same
// publisher on the same topic.
type Bus interface {
	// Publish sends an event to every current subscriber of the topic.
	// Fire-and-forget: a failed publish is not retried, and callers must
	// self-heal from the next durable-state read.
	Publish(ctx context.Context, topic string, ev model.Event) error

	// Subscribe registers a handler for a topic. The returned subscription's
	// Unsubscribe guarantees zero further callbacks once it returns.
	Subscribe(ctx context.Context, topic string, h Handler) (*Subscription, error)

	// Close tears down every subscription
	Close() error
}

// Subscription is a handle to one active topic subscription
type Subscription struct {
	topic  string
	once   sync.Once
	cancel func()
}

// Topic returns the subscribed topic name
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe detaches the handler. Safe to call more than once, including
// from concurrent goroutines; after the first call returns, the handler
// will never fire again.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Topic names, scoped per room and per purpose

func PresenceTopic(code model.RoomCode) string {
	return "presence:" + string(code)
}

func DrawingTopic(code model.RoomCode) string {
	return "drawing:" + string(code)
}

func ChatTopic(code model.RoomCode) string {
	return "chat:" + string(code)
}

func RoomChangeTopic(code model.RoomCode) string {
	return "roomChange:" + string(code)
}

func PlayerChangeTopic(code model.RoomCode) string {
	return "playerChange:" + string(code)
}

// RoomTopics lists every topic a session subscribes to for a room
func RoomTopics(code model.RoomCode) []string {
	return []string{
		PresenceTopic(code),
		DrawingTopic(code),
		ChatTopic(code),
		RoomChangeTopic(code),
		PlayerChangeTopic(code),
	}
}
