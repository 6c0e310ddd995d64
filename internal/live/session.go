package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/posts"
	"github.com/aaronparisi/technoblog/internal/theme"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	maxFrameBytes = 4096
	outboxSize    = 16
)

// errClientGone ends a session whose peer closed the connection.
var errClientGone = errors.New("client closed connection")

// Session is one connected page.
type Session struct {
	id       string
	conn     *websocket.Conn
	registry *posts.Registry
	resolver *theme.Resolver
	ambient  *theme.Broadcaster
	view     *content.View
	logger   *zap.Logger

	out  chan Outbound
	halt <-chan struct{}

	mu    sync.Mutex
	route string
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Run serves the session until the client leaves, a write fails or ctx is
// done. The ambient subscription, the resolver watch and the view are
// released on every path out.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	s.halt = gctx.Done()

	initial := s.resolver.ResolveInitial(gctx)
	s.view.SetTheme(initial)

	release := s.resolver.SubscribeToAmbientChanges(gctx)
	unwatch := s.resolver.Watch(s.onTheme)
	defer func() {
		unwatch()
		release()
		s.view.Close()
	}()

	g.Go(func() error { return s.writeLoop(gctx) })
	g.Go(func() error { return s.readLoop(gctx) })

	s.send(themeFrame(initial))
	if route := s.currentRoute(); route != "" {
		s.navigate(route)
	}

	err := g.Wait()
	if errors.Is(err, errClientGone) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	s.conn.SetReadLimit(maxFrameBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read", zap.Error(err))
			}
			return errClientGone
		}

		var in Inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			s.send(errorFrame("invalid frame"))
			continue
		}
		s.handle(ctx, in)
	}
}

func (s *Session) handle(ctx context.Context, in Inbound) {
	switch in.Type {
	case FrameNavigate:
		s.navigate(in.Route)
	case FrameToggle:
		s.resolver.Toggle(ctx)
	case FrameAmbient:
		if in.Dark == nil {
			s.send(errorFrame("ambient frame needs a dark field"))
			return
		}
		s.ambient.Publish(*in.Dark)
	default:
		s.send(errorFrame("unknown frame type: " + in.Type))
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	defer s.conn.Close()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return ctx.Err()
		case m := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(m); err != nil {
				return fmt.Errorf("writing %s frame: %w", m.Type, err)
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("writing ping: %w", err)
			}
		}
	}
}

func (s *Session) navigate(route string) {
	route = posts.NormalizeRoute(route)
	info, ok := s.registry.Lookup(route)

	s.mu.Lock()
	s.route = route
	s.mu.Unlock()

	if !ok {
		s.view.Clear()
		s.send(Outbound{
			Type:  FrameContent,
			Route: route,
			Phase: PhaseNotFound,
			Error: "There is no post at " + route + ".",
		})
		return
	}
	s.view.Show(info.ContentRef)
}

func (s *Session) currentRoute() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// routeFor maps a content ref back to the route it is shown under.
func (s *Session) routeFor(ref string) string {
	route := s.currentRoute()
	if info, ok := s.registry.Lookup(route); ok && info.ContentRef == ref {
		return route
	}
	for _, info := range s.registry.All() {
		if info.ContentRef == ref {
			return info.Route
		}
	}
	return route
}

func (s *Session) onTheme(st theme.State) {
	s.view.SetTheme(st)
	s.send(themeFrame(st))
}

func (s *Session) onView(snap content.Snapshot) {
	s.send(contentFrame(s.routeFor(snap.Ref), snap))
}

func (s *Session) persist(key, value string) {
	s.send(Outbound{Type: FramePersist, Key: key, Value: value})
}

// send queues m for the writer. It gives up once the session is ending.
func (s *Session) send(m Outbound) {
	select {
	case s.out <- m:
	case <-s.halt:
	}
}
