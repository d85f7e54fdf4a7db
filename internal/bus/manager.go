package bus

import (
	"context"
	"sync"

	"github.com/karalama/karalama/internal/model"
)

// ChannelManager owns one session's subscriptions. It replaces a shared
// process-wide channel cache: each active room membership constructs its own
// manager and tears it down on leave, so subscriptions never leak across
// unrelated sessions.
//
// Subscriptions are reference-counted per topic: subscribing twice to the
// same topic is a no-op that keeps the first handler, and the underlying
// subscription survives until every reference is released.
type ChannelManager struct {
	bus Bus

	mu     sync.Mutex
	subs   map[string]*managedSub
	closed bool
}

type managedSub struct {
	sub  *Subscription
	refs int
}

// NewChannelManager creates a manager over the given bus
func NewChannelManager(b Bus) *ChannelManager {
	return &ChannelManager{
		bus:  b,
		subs: make(map[string]*managedSub),
	}
}

// Subscribe attaches a handler to a topic. A repeated subscribe to an
// already-held topic increments its reference count without registering a
// second handler, so no duplicate deliveries can occur.
func (m *ChannelManager) Subscribe(ctx context.Context, topic string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return model.ErrBusClosed
	}

	if existing, ok := m.subs[topic]; ok {
		existing.refs++
		return nil
	}

	sub, err := m.bus.Subscribe(ctx, topic, h)
	if err != nil {
		return err
	}
	m.subs[topic] = &managedSub{sub: sub, refs: 1}
	return nil
}

// Unsubscribe releases one reference to a topic; the underlying
// subscription is cancelled when the last reference goes. Unsubscribing a
// topic that is not held is a no-op.
func (m *ChannelManager) Unsubscribe(topic string) {
	m.mu.Lock()
	ms, ok := m.subs[topic]
	if !ok {
		m.mu.Unlock()
		return
	}
	ms.refs--
	if ms.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.subs, topic)
	m.mu.Unlock()

	// Cancel outside the lock: redis unsubscribe blocks until the receive
	// loop drains
	ms.sub.Unsubscribe()
}

// Subscribed reports whether the manager currently holds the topic
func (m *ChannelManager) Subscribed(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[topic]
	return ok
}

// Publish forwards to the underlying bus
func (m *ChannelManager) Publish(ctx context.Context, topic string, ev model.Event) error {
	return m.bus.Publish(ctx, topic, ev)
}

// Close cancels every held subscription regardless of reference counts.
// After Close returns, no handler registered through this manager fires.
func (m *ChannelManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	subs := make([]*Subscription, 0, len(m.subs))
	for _, ms := range m.subs {
		subs = append(subs, ms.sub)
	}
	m.subs = make(map[string]*managedSub)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
