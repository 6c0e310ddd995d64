package theme

import "sync"

// Ambient reports the platform-level light/dark preference.
type Ambient interface {
	// Current returns the preference and whether the signal is available.
	Current() (dark bool, ok bool)
	// Subscribe registers fn for change notifications. ok is false when the
	// platform offers no notifications, in which case cancel is a no-op.
	Subscribe(fn func(dark bool)) (cancel func(), ok bool)
}

// NoAmbient is an unavailable ambient signal.
type NoAmbient struct{}

func (NoAmbient) Current() (bool, bool) { return false, false }

func (NoAmbient) Subscribe(func(bool)) (func(), bool) { return func() {}, false }

// StaticAmbient reports a fixed preference and never changes.
type StaticAmbient struct {
	Dark bool
}

func (s StaticAmbient) Current() (bool, bool) { return s.Dark, true }

func (StaticAmbient) Subscribe(func(bool)) (func(), bool) { return func() {}, false }

// Broadcaster is a push-driven ambient signal. Whoever observes the platform
// preference calls Publish; subscribers are notified synchronously.
type Broadcaster struct {
	mu     sync.Mutex
	known  bool
	dark   bool
	subs   []subscription
	nextID uint64
}

type subscription struct {
	id uint64
	fn func(bool)
}

// NewBroadcaster returns a Broadcaster with no known value.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Current returns the last published value.
func (b *Broadcaster) Current() (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dark, b.known
}

// Seed records a value without notifying subscribers.
func (b *Broadcaster) Seed(dark bool) {
	b.mu.Lock()
	b.dark, b.known = dark, true
	b.mu.Unlock()
}

// Publish records a new value and notifies every subscriber in
// registration order.
func (b *Broadcaster) Publish(dark bool) {
	b.mu.Lock()
	b.dark, b.known = dark, true
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(dark)
	}
}

// Subscribe registers fn and returns its cancel function.
func (b *Broadcaster) Subscribe(fn func(bool)) (func(), bool) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}, true
}

// Subscribers returns the number of registered listeners.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
