package content

import (
	"context"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aaronparisi/technoblog/internal/theme"
)

// Phase is the state of a View.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseRendered
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseRendered:
		return "rendered"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of a View's state.
type Snapshot struct {
	Phase      Phase
	Ref        string
	Theme      theme.State
	HTML       template.HTML
	Document   *Document
	Err        error
	Generation uint64
}

// View displays one post at a time. Showing a new ref starts an
// asynchronous fetch; a result is committed only if no later Show or
// Refresh superseded it, so out-of-order completions never overwrite the
// current post.
type View struct {
	fetcher  Fetcher
	parser   *Parser
	renderer *Renderer
	logger   *zap.Logger
	timeout  time.Duration
	onChange func(Snapshot)

	base     context.Context
	stopBase context.CancelFunc
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
	gen    uint64
	ref    string
	phase  Phase
	doc    *Document
	html   template.HTML
	err    error
	theme  theme.State
	cancel context.CancelFunc
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithOnChange registers fn for every state transition. fn runs with the
// view locked, in transition order, and must not call back into the View.
func WithOnChange(fn func(Snapshot)) ViewOption {
	return func(v *View) { v.onChange = fn }
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) ViewOption {
	return func(v *View) { v.timeout = d }
}

// WithTheme sets the initial theme.
func WithTheme(st theme.State) ViewOption {
	return func(v *View) { v.theme = st }
}

// WithViewLogger sets the logger.
func WithViewLogger(logger *zap.Logger) ViewOption {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewView returns an idle View.
func NewView(f Fetcher, p *Parser, r *Renderer, opts ...ViewOption) *View {
	v := &View{
		fetcher:  f,
		parser:   p,
		renderer: r,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.base, v.stopBase = context.WithCancel(context.Background())
	return v
}

// Show switches the view to ref. Showing the ref already displayed or
// being fetched is a no-op; a failed ref is retried.
func (v *View) Show(ref string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || (ref == v.ref && v.phase != PhaseIdle && v.phase != PhaseFailed) {
		return
	}
	v.startLocked(ref, false)
}

// Refresh fetches the current ref again, keeping the rendered post on
// screen until the new text arrives.
func (v *View) Refresh() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.phase == PhaseIdle {
		return
	}
	v.startLocked(v.ref, true)
}

// SetTheme re-renders the held document with the palette for st. It never
// fetches.
func (v *View) SetTheme(st theme.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.theme == st {
		return
	}
	v.theme = st
	if v.doc == nil {
		return
	}
	v.html = v.renderer.Render(v.doc, st)
	v.emitLocked()
}

// Clear drops the current post and any in-flight fetch and returns the view
// to Idle with no ref, so a later Show of the same ref fetches again. Clear
// does not notify.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	v.ref = ""
	v.phase = PhaseIdle
	v.doc = nil
	v.html = ""
	v.err = nil
}

// Ref returns the ref currently shown.
func (v *View) Ref() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ref
}

// Snapshot returns the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Close cancels any in-flight fetch and waits for it to return. Results
// arriving after Close are discarded.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.mu.Unlock()

	v.stopBase()
	v.wg.Wait()
}

func (v *View) startLocked(ref string, keep bool) {
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen

	v.ref = ref
	v.phase = PhaseFetching
	v.err = nil
	if !keep {
		v.doc = nil
		v.html = ""
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if v.timeout > 0 {
		ctx, cancel = context.WithTimeout(v.base, v.timeout)
	} else {
		ctx, cancel = context.WithCancel(v.base)
	}
	v.cancel = cancel

	v.wg.Add(1)
	go v.fetch(ctx, cancel, gen, ref)

	v.emitLocked()
}

func (v *View) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, ref string) {
	defer v.wg.Done()
	defer cancel()

	start := time.Now()
	raw, err := v.fetcher.Fetch(ctx, ref)
	var doc *Document
	if err == nil {
		doc = v.parser.Parse(ref, raw)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.gen {
		v.logger.Debug("discarding superseded fetch",
			zap.String("ref", ref), zap.Uint64("generation", gen), zap.Uint64("current", v.gen))
		return
	}
	v.cancel = nil

	if err != nil {
		v.logger.Warn("fetching post failed", zap.String("ref", ref), zap.Error(err))
		v.phase = PhaseFailed
		v.err = err
		v.doc = nil
		v.html = ""
	} else {
		v.logger.Debug("post fetched", zap.String("ref", ref), zap.Duration("elapsed", time.Since(start)))
		v.phase = PhaseRendered
		v.doc = doc
		v.html = v.renderer.Render(doc, v.theme)
	}
	v.emitLocked()
}

func (v *View) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:      v.phase,
		Ref:        v.ref,
		Theme:      v.theme,
		HTML:       v.html,
		Document:   v.doc,
		Err:        v.err,
		Generation: v.gen,
	}
}

func (v *View) emitLocked() {
	if v.onChange != nil {
		v.onChange(v.snapshotLocked())
	}
}
