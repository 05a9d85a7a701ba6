// Package eventbus is the in-process publish/subscribe channel between the
// flash-sale core and its observers. Delivery is synchronous, volatile and
// best-effort; nothing survives a restart.
package eventbus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type Handler func(payload any)

type subscription struct {
	id      uint64
	handler Handler
	active  atomic.Bool
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription
	nextID uint64
	closed bool
	logger *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[string][]*subscription),
		logger: logger,
	}
}

// Subscribe registers handler for topic. The returned func removes it and is
// safe to call more than once, including from inside the handler.
func (b *Bus) Subscribe(topic string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler}
	sub.active.Store(true)
	b.subs[topic] = append(b.subs[topic], sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, sub) })
	}
}

func (b *Bus) remove(topic string, sub *subscription) {
	sub.active.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[topic]
	kept := make([]*subscription, 0, len(current))
	for _, s := range current {
		if s.id != sub.id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(b.subs, topic)
		return
	}
	b.subs[topic] = kept
}

// Emit calls every handler subscribed to topic, in subscription order, on the
// caller's goroutine. Handlers may emit or (un)subscribe re-entrantly.
func (b *Bus) Emit(topic string, payload any) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	snapshot := b.subs[topic]
	b.mu.RUnlock()

	// remove builds a new slice, so snapshot is never mutated underneath us
	for _, sub := range snapshot {
		if !sub.active.Load() {
			continue
		}
		b.deliver(topic, sub, payload)
	}
}

func (b *Bus) deliver(topic string, sub *subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", topic),
				zap.Uint64("subscription", sub.id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.handler(payload)
}

func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close drops every subscription. Later Emit calls do nothing and later
// Subscribe calls return a no-op unsubscribe.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, s := range subs {
			s.active.Store(false)
		}
	}
	b.subs = make(map[string][]*subscription)
}
