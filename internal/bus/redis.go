package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/karalama/karalama/internal/model"
)

// RedisBus carries events over redis pub/sub, one PubSub connection per
// subscription. Redis delivers at-most-once to live subscribers, which is
// exactly the contract the coordinator is built around.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	subs   map[*Subscription]func()
}

// NewRedis creates a bus on an existing redis client
func NewRedis(client *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		logger: logger.With(slog.String("component", "bus")),
		subs:   make(map[*Subscription]func()),
	}
}

var _ Bus = (*RedisBus)(nil)

func (b *RedisBus) Publish(ctx context.Context, topic string, ev model.Event) error {
	data, err := model.EncodeEvent(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string, h Handler) (*Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, model.ErrBusClosed
	}
	b.mu.Unlock()

	pubsub := b.client.Subscribe(ctx, topic)

	// Force the subscription handshake so events published after Subscribe
	// returns are not lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			ev, err := model.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				// Malformed messages are rejected at the boundary, never
				// handed to subscribers
				b.logger.Warn("dropping malformed event",
					slog.String("topic", topic),
					slog.String("error", err.Error()))
				continue
			}
			h(ev)
		}
	}()

	sub := &Subscription{topic: topic}
	var once sync.Once
	cancelFn := func() {
		once.Do(func() {
			_ = pubsub.Close()
			// Wait for the receive loop to drain so no callback fires
			// after Unsubscribe returns
			<-done
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		})
	}
	sub.cancel = cancelFn

	b.mu.Lock()
	b.subs[sub] = cancelFn
	b.mu.Unlock()

	return sub, nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancels := make([]func(), 0, len(b.subs))
	for _, cancel := range b.subs {
		cancels = append(cancels, cancel)
	}
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}
