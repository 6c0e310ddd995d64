package theme

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Resolver owns the ThemeState. It is the only writer: the state changes
// through Toggle or, while no preference is persisted, through ambient
// change events.
type Resolver struct {
	storage Storage
	ambient Ambient
	key     string
	logger  *zap.Logger

	mu       sync.Mutex
	state    State
	watchers []watcher
	nextID   uint64
}

type watcher struct {
	id uint64
	fn func(State)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKey overrides the storage key (default DefaultKey).
func WithKey(key string) Option {
	return func(r *Resolver) {
		if key != "" {
			r.key = key
		}
	}
}

// WithLogger sets the logger used for degraded storage reads and writes.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver. A nil ambient is treated as unavailable.
func NewResolver(storage Storage, ambient Ambient, opts ...Option) *Resolver {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if ambient == nil {
		ambient = NoAmbient{}
	}
	r := &Resolver{
		storage: storage,
		ambient: ambient,
		key:     DefaultKey,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the storage key.
func (r *Resolver) Key() string { return r.key }

// State returns the current value.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ResolveInitial decides the starting state: a parseable persisted value
// wins, then the ambient signal, then Light. Storage problems are never
// returned to the caller.
func (r *Resolver) ResolveInitial(ctx context.Context) State {
	st := Light
	if persisted, ok := r.persisted(ctx); ok {
		st = persisted
	} else if dark, ok := r.ambient.Current(); ok {
		st = State(dark)
	}

	r.mu.Lock()
	r.state = st
	r.mu.Unlock()
	return st
}

// Toggle flips the state, persists it and notifies watchers. A failed
// write is logged; the in-memory state still changes.
func (r *Resolver) Toggle(ctx context.Context) State {
	r.mu.Lock()
	r.state = r.state.Toggle()
	next := r.state
	r.mu.Unlock()

	if err := r.storage.Set(ctx, r.key, next.Format()); err != nil {
		r.logger.Warn("persisting theme preference failed",
			zap.String("key", r.key), zap.Stringer("theme", next), zap.Error(err))
	}

	r.publish(next)
	return next
}

// SubscribeToAmbientChanges follows the ambient signal for as long as no
// preference is persisted. The returned release function unregisters the
// listener; it is idempotent and also runs when ctx is done.
func (r *Resolver) SubscribeToAmbientChanges(ctx context.Context) (release func()) {
	storageCtx := context.WithoutCancel(ctx)
	cancel, ok := r.ambient.Subscribe(func(dark bool) {
		r.onAmbient(storageCtx, dark)
	})
	if !ok {
		return func() {}
	}

	var once sync.Once
	unsubscribe := func() { once.Do(cancel) }
	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}
}

// Watch registers fn to receive every state change. The returned function
// removes it.
func (r *Resolver) Watch(fn func(State)) (cancel func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.watchers = append(r.watchers, watcher{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, w := range r.watchers {
			if w.id == id {
				r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
				return
			}
		}
	}
}

func (r *Resolver) onAmbient(ctx context.Context, dark bool) {
	// Checked on every event: an explicit choice may have been persisted
	// since the subscription started.
	if _, ok := r.persisted(ctx); ok {
		return
	}

	next := State(dark)
	r.mu.Lock()
	changed := r.state != next
	r.state = next
	r.mu.Unlock()

	if changed {
		r.publish(next)
	}
}

// persisted returns the stored state. Read errors and malformed values
// count as absent.
func (r *Resolver) persisted(ctx context.Context) (State, bool) {
	v, ok, err := r.storage.Get(ctx, r.key)
	if err != nil {
		r.logger.Debug("reading theme preference failed", zap.String("key", r.key), zap.Error(err))
		return Light, false
	}
	if !ok {
		return Light, false
	}
	st, ok := ParseState(v)
	if !ok {
		r.logger.Debug("ignoring malformed theme preference", zap.String("key", r.key), zap.String("value", v))
	}
	return st, ok
}

func (r *Resolver) publish(st State) {
	r.mu.Lock()
	ws := make([]watcher, len(r.watchers))
	copy(ws, r.watchers)
	r.mu.Unlock()

	for _, w := range ws {
		w.fn(st)
	}
}
