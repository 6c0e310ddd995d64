// Package site serves the blog's pages: the navigation shell, one page per
// registered post and the live session that keeps an open page current.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/db"
	"github.com/aaronparisi/technoblog/internal/live"
	"github.com/aaronparisi/technoblog/internal/posts"
	"github.com/aaronparisi/technoblog/internal/theme"
)

// Options configures a Site.
type Options struct {
	Title        string
	Registry     *posts.Registry
	Fetcher      content.Fetcher
	Renderer     *content.Renderer
	FetchTimeout time.Duration
	Key          string // preference key, theme.DefaultKey when empty
	DB           *db.DB // per-visitor preferences; nil keeps them in cookies
	DisableLive  bool
	Logger       *zap.Logger
}

// Site renders pages for a post registry.
type Site struct {
	opts   Options
	parser *content.Parser
	tmpl   *template.Template
	hub    *live.Hub
	logger *zap.Logger
}

// pageData is the template input for every view.
type pageData struct {
	View        string
	SiteTitle   string
	Title       string
	Theme       string
	ToggleLabel string
	Route       string
	Return      string
	Phase       string
	Live        bool
	Posts       []posts.PostInfo
	Content     template.HTML
	Outline     []content.Block
	Message     string
}

// New prepares templates and the live hub.
func New(opts Options) (*Site, error) {
	if opts.Registry == nil {
		return nil, errors.New("site: registry is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("site: fetcher is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Renderer == nil {
		opts.Renderer = content.NewRenderer(content.DefaultPalette(), opts.Logger)
	}
	if opts.Key == "" {
		opts.Key = theme.DefaultKey
	}

	tmpl, err := template.New("site").Parse(pageTemplates)
	if err != nil {
		return nil, fmt.Errorf("site: parsing templates: %w", err)
	}

	s := &Site{
		opts:   opts,
		parser: content.NewParser(),
		tmpl:   tmpl,
		logger: opts.Logger.Named("site"),
	}
	if !opts.DisableLive {
		s.hub = live.NewHub(live.Options{
			Registry:     opts.Registry,
			Fetcher:      opts.Fetcher,
			Parser:       s.parser,
			Renderer:     opts.Renderer,
			FetchTimeout: opts.FetchTimeout,
			Key:          opts.Key,
			DB:           opts.DB,
			Logger:       opts.Logger,
		})
	}
	return s, nil
}

// Register mounts the site. Page handlers go on pages; the websocket goes
// on root so it is not bound by the page timeout.
func (s *Site) Register(root, pages chi.Router) {
	if s.hub != nil {
		root.Handle("/ws/live", s.hub)
	}
	pages.Get("/", s.handleIndex)
	pages.Get("/api/posts", s.handlePosts)
	pages.Post("/theme/toggle", s.handleToggle)
	pages.Get("/static/style.css", serveStatic("text/css; charset=utf-8", cssContent))
	pages.Get("/static/app.js", serveStatic("text/javascript; charset=utf-8", jsContent))
	pages.Get("/*", s.handlePost)
}

// Refresh re-fetches ref in every open page showing it.
func (s *Site) Refresh(ref string) int {
	if s.hub == nil {
		return 0
	}
	return s.hub.Refresh(ref)
}

// Close ends every live session.
func (s *Site) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
}

// resolverFor builds the per-request resolver: the preference comes from
// the visitor's cookie or database row, the ambient value from the client
// hint.
func (s *Site) resolverFor(w http.ResponseWriter, r *http.Request) *theme.Resolver {
	var storage theme.Storage
	if s.opts.DB != nil {
		storage = theme.NewDBStorage(s.opts.DB, theme.VisitorID(w, r))
	} else {
		storage = theme.NewCookieStorage(w, r)
	}
	return theme.NewResolver(storage, theme.NewHintAmbient(r),
		theme.WithKey(s.opts.Key),
		theme.WithLogger(s.logger))
}

func (s *Site) page(w http.ResponseWriter, r *http.Request, view, route string) (pageData, theme.State) {
	w.Header().Set("Accept-CH", theme.HintHeader)
	w.Header().Add("Vary", theme.HintHeader+", Cookie")

	st := s.resolverFor(w, r).ResolveInitial(r.Context())
	ret := route
	if ret == "" {
		ret = "/"
	}
	return pageData{
		View:        view,
		SiteTitle:   s.opts.Title,
		Theme:       st.String(),
		ToggleLabel: ToggleLabel(st),
		Route:       route,
		Return:      ret,
		Phase:       content.PhaseIdle.String(),
		Live:        s.hub != nil,
		Posts:       s.opts.Registry.All(),
	}, st
}

func (s *Site) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, _ := s.page(w, r, "index", "")
	s.render(w, http.StatusOK, data)
}

func (s *Site) handlePost(w http.ResponseWriter, r *http.Request) {
	route := posts.NormalizeRoute(chi.URLParam(r, "*"))
	info, ok := s.opts.Registry.Lookup(route)
	if !ok {
		data, _ := s.page(w, r, "notfound", route)
		data.Title = "Not found"
		data.Message = "There is no post at " + route + "."
		s.render(w, http.StatusNotFound, data)
		return
	}

	data, st := s.page(w, r, "post", route)
	data.Title = info.Title

	ctx := r.Context()
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	doc, err := content.Load(ctx, s.opts.Fetcher, s.parser, info.ContentRef)
	if err != nil {
		s.logger.Warn("loading post failed",
			zap.String("route", route), zap.String("ref", info.ContentRef), zap.Error(err))
		data.View = "failed"
		data.Phase = content.PhaseFailed.String()
		data.Message = live.FailureMessage(err)
		s.render(w, http.StatusBadGateway, data)
		return
	}

	data.Phase = content.PhaseRendered.String()
	data.Content = s.opts.Renderer.Render(doc, st)
	data.Outline = doc.Outline()
	s.render(w, http.StatusOK, data)
}

func (s *Site) handleToggle(w http.ResponseWriter, r *http.Request) {
	resolver := s.resolverFor(w, r)
	resolver.ResolveInitial(r.Context())
	resolver.Toggle(r.Context())
	http.Redirect(w, r, safeReturn(r.FormValue("return")), http.StatusSeeOther)
}

func (s *Site) handlePosts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.opts.Registry.All()); err != nil {
		s.logger.Warn("encoding post list", zap.Error(err))
	}
}

func (s *Site) render(w http.ResponseWriter, status int, data pageData) {
	var buf strings.Builder
	if err := s.tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("rendering page", zap.String("view", data.View), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, buf.String())
}

func serveStatic(contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		fmt.Fprint(w, body)
	}
}

// ToggleLabel names the action the theme button performs from st.
func ToggleLabel(st theme.State) string {
	if st == theme.Dark {
		return "Turn on Light Mode"
	}
	return "Turn on Dark Mode"
}

// safeReturn keeps redirects on this site.
func safeReturn(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
