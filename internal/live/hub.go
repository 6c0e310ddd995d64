package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/db"
	"github.com/aaronparisi/technoblog/internal/posts"
	"github.com/aaronparisi/technoblog/internal/theme"
)

// Options configures a Hub.
type Options struct {
	Registry     *posts.Registry
	Fetcher      content.Fetcher
	Parser       *content.Parser
	Renderer     *content.Renderer
	FetchTimeout time.Duration
	Key          string // preference key, theme.DefaultKey when empty
	DB           *db.DB // per-visitor storage; nil mirrors cookies instead
	Logger       *zap.Logger
}

// Hub accepts websocket connections and tracks their sessions.
type Hub struct {
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	sessions map[string]*Session
}

// NewHub returns a Hub ready to serve.
func NewHub(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Key == "" {
		opts.Key = theme.DefaultKey
	}
	if opts.Parser == nil {
		opts.Parser = content.NewParser()
	}
	if opts.Renderer == nil {
		opts.Renderer = content.NewRenderer(content.DefaultPalette(), opts.Logger)
	}
	h := &Hub{
		opts:   opts,
		logger: opts.Logger.Named("live"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}
	h.base, h.stop = context.WithCancel(context.Background())
	return h
}

// ServeHTTP upgrades the request and runs a session until it ends. The
// query may carry the page's route and the browser's color scheme
// ("ambient=dark"); without it the client hint header is used.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	header := http.Header{}
	s := h.newSession(r, header)

	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	s.conn = conn

	if !h.add(s) {
		return
	}
	defer h.remove(s)

	h.logger.Debug("session started", zap.String("session", s.id), zap.String("route", s.route))
	if err := s.Run(h.base); err != nil {
		h.logger.Warn("session ended", zap.String("session", s.id), zap.Error(err))
		return
	}
	h.logger.Debug("session ended", zap.String("session", s.id))
}

func (h *Hub) newSession(r *http.Request, header http.Header) *Session {
	s := &Session{
		id:       uuid.NewString(),
		registry: h.opts.Registry,
		ambient:  theme.NewBroadcaster(),
		out:      make(chan Outbound, outboxSize),
	}
	if route := r.URL.Query().Get("route"); route != "" {
		s.route = posts.NormalizeRoute(route)
	}
	s.logger = h.logger.With(zap.String("session", s.id))

	if st, ok := theme.ParseName(r.URL.Query().Get("ambient")); ok {
		s.ambient.Seed(bool(st))
	} else if dark, ok := theme.NewHintAmbient(r).Current(); ok {
		s.ambient.Seed(dark)
	}

	var storage theme.Storage
	if h.opts.DB != nil {
		id, cookie := theme.Visitor(r)
		if cookie != nil {
			header.Add("Set-Cookie", cookie.String())
		}
		storage = theme.NewDBStorage(h.opts.DB, id)
	} else {
		storage = newCookieMirror(r, s.persist)
	}

	s.resolver = theme.NewResolver(storage, s.ambient,
		theme.WithKey(h.opts.Key),
		theme.WithLogger(s.logger))
	s.view = content.NewView(h.opts.Fetcher, h.opts.Parser, h.opts.Renderer,
		content.WithOnChange(s.onView),
		content.WithFetchTimeout(h.opts.FetchTimeout),
		content.WithViewLogger(s.logger))
	return s
}

// add registers s unless the hub is closed. The closed check and wg.Add
// happen under h.mu.
func (h *Hub) add(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	h.sessions[s.id] = s
	return true
}

func (h *Hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	h.wg.Done()
}

// Len returns the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Refresh re-fetches ref in every session currently showing it and
// returns how many were refreshed.
func (h *Hub) Refresh(ref string) int {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	n := 0
	for _, s := range sessions {
		if sameRef(s.view.Ref(), ref) {
			s.view.Refresh()
			n++
		}
	}
	if n > 0 {
		h.logger.Info("refreshed post", zap.String("ref", ref), zap.Int("sessions", n))
	}
	return n
}

// sameRef treats local refs that name the same file as equal, so
// "file://a.md" and "/a.md" both match a watcher's "a.md".
func sameRef(a, b string) bool {
	if a == b {
		return true
	}
	if content.IsRemote(a) || content.IsRemote(b) {
		return false
	}
	name := content.LocalName(a)
	return name != "" && name == content.LocalName(b)
}

// Close ends every session and waits for them to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.stop()
	h.wg.Wait()
}
