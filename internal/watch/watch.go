// Package watch reports edits to post files so open pages can refresh.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/aaronparisi/technoblog/internal/walker"
)

// DefaultDebounce coalesces the burst of events an editor produces on save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a content directory tree and calls onChange with the
// slash-separated ref of each file whose content changed.
type Watcher struct {
	root     string
	include  []string
	exclude  []string
	debounce time.Duration
	onChange func(ref string)
	logger   *zap.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	closed  bool
	pending map[string]*pending
	hashes  map[string]string
}

type pending struct {
	path  string
	timer *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithInclude limits reports to files matching the glob patterns.
func WithInclude(patterns ...string) Option {
	return func(w *Watcher) { w.include = patterns }
}

// WithExclude drops files matching the glob patterns, even when included.
func WithExclude(patterns ...string) Option {
	return func(w *Watcher) { w.exclude = patterns }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New starts watching root and every directory below it.
func New(root string, onChange func(ref string), opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	w := &Watcher{
		root:     abs,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   zap.NewNop(),
		pending:  make(map[string]*pending),
		hashes:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}

	files, err := walker.Walk(walker.WalkerConfig{RootDir: abs, Include: w.include, Exclude: w.exclude})
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	for _, f := range files {
		w.hashes[f.RelPath] = f.ContentHash
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.addTree(abs); err != nil {
		w.fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers events until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	w.logger.Info("watching content", zap.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	dirs, err := walker.Dirs(dir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return fmt.Errorf("watch: add %s: %w", d, err)
		}
	}
	return nil
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if walker.ExcludedDir(info.Name()) {
				return
			}
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watching new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	ref := filepath.ToSlash(rel)
	if !walker.MatchesInclude(ref, w.include) || walker.MatchesExclude(ref, w.exclude) {
		return
	}
	w.schedule(ref, ev.Name)
}

func (w *Watcher) schedule(ref, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if p, ok := w.pending[ref]; ok && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}
	p := &pending{path: path}
	p.timer = time.AfterFunc(w.debounce, func() { w.fire(ref, p) })
	w.pending[ref] = p
}

func (w *Watcher) fire(ref string, p *pending) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if w.pending[ref] == p {
		delete(w.pending, ref)
	}

	hash, err := walker.HashFile(p.path)
	if err == nil && w.hashes[ref] == hash {
		w.mu.Unlock()
		return
	}
	if err != nil {
		delete(w.hashes, ref)
	} else {
		w.hashes[ref] = hash
	}
	w.mu.Unlock()

	w.logger.Debug("post changed", zap.String("ref", ref))
	w.onChange(ref)
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.closed = true
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("closing watcher", zap.Error(err))
	}
}
