package core

import "sync"

// Listener is called without payload; it re-reads whatever state it cares about.
type Listener func()

type subscription struct {
	id       uint64
	listener Listener
}

// Broadcaster is a registry of listeners notified synchronously, in registration order.
// The zero value is ready to use.
type Broadcaster struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

// Subscribe registers l and returns the func removing exactly that registration.
// Calling the returned func more than once is a no-op. A nil l is not registered.
func (b *Broadcaster) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, listener: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Notify calls every listener registered at call time.
// Listeners run outside the registry lock and may (un)subscribe.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.listener()
	}
}

// Len returns the number of active subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
