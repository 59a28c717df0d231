package observable

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Subscription is a handle returned by Feed.Subscribe.
type Subscription struct {
	cancel func()
	once   sync.Once
	active atomic.Bool
}

// Cancel stops delivery. Safe to call multiple times.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.active.Store(false)
		s.cancel()
	})
}

// Active returns true until Cancel is called.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

type feedEntry[E any] struct {
	sub     *Subscription
	handler func(E)
}

// Feed delivers events of type E to subscribers in subscription order.
// The zero value is ready to use.
type Feed[E any] struct {
	mu       sync.RWMutex
	handlers map[uint64]feedEntry[E]
	nextID   uint64
}

// Subscribe registers handler and returns its subscription.
func (f *Feed[E]) Subscribe(handler func(E)) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handlers == nil {
		f.handlers = make(map[uint64]feedEntry[E])
	}
	f.nextID++
	id := f.nextID

	sub := &Subscription{}
	sub.active.Store(true)
	sub.cancel = func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
	f.handlers[id] = feedEntry[E]{sub: sub, handler: handler}
	return sub
}

// Publish delivers e to every active subscriber.
// Handlers run on the caller's goroutine without the feed lock held, so
// they may subscribe, cancel or publish again.
func (f *Feed[E]) Publish(e E) {
	f.mu.RLock()
	ids := make([]uint64, 0, len(f.handlers))
	for id := range f.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	entries := make([]feedEntry[E], len(ids))
	for i, id := range ids {
		entries[i] = f.handlers[id]
	}
	f.mu.RUnlock()

	for _, entry := range entries {
		if entry.sub.Active() {
			entry.handler(e)
		}
	}
}

// Len returns the number of active subscribers.
func (f *Feed[E]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}
