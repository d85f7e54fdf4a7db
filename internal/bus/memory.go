package bus

import (
	"context"
	"sync"

	"github.com/karalama/karalama/internal/model"
)

// MemoryBus is an in-process bus for tests and single-process deployments.
// Events still round-trip through the wire encoding so malformed payloads
// are rejected exactly as they would be over redis.
type MemoryBus struct {
	mu     sync.RWMutex
	topics map[string]map[int]Handler
	nextID int
	closed bool
}

// NewMemory creates a new in-process bus
func NewMemory() *MemoryBus {
	return &MemoryBus{
		topics: make(map[string]map[int]Handler),
	}
}

var _ Bus = (*MemoryBus)(nil)

func (b *MemoryBus) Publish(ctx context.Context, topic string, ev model.Event) error {
	data, err := model.EncodeEvent(ev)
	if err != nil {
		return err
	}
	decoded, err := model.DecodeEvent(data)
	if err != nil {
		return err
	}

	// Delivery happens on the publisher's goroutine while holding the read
	// lock: same-publisher ordering falls out for free, and Unsubscribe's
	// write lock cannot return while a callback is mid-flight.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return model.ErrBusClosed
	}
	for _, h := range b.topics[topic] {
		h(decoded)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string, h Handler) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, model.ErrBusClosed
	}

	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.topics[topic][id] = h

	return &Subscription{
		topic: topic,
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.topics[topic], id)
		},
	}, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.topics = make(map[string]map[int]Handler)
	return nil
}
