package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/db"
	"github.com/aaronparisi/technoblog/internal/live"
	"github.com/aaronparisi/technoblog/internal/posts"
	"github.com/aaronparisi/technoblog/internal/theme"
)

var errUpstream = errors.New("upstream unavailable")

func testSite(t *testing.T, database *db.DB) (*Site, http.Handler) {
	t.Helper()
	reg, err := posts.NewRegistry(
		posts.PostInfo{Route: "/vanilla-reflections", Title: "Vanilla Reflections", ContentRef: "vanilla.md"},
		posts.PostInfo{Route: "/skillset", Title: "The Skillset", ContentRef: "skillset.md"},
		posts.PostInfo{Route: "/broken", Title: "Broken", ContentRef: "broken.md"},
		posts.PostInfo{Route: "/gone", Title: "Gone", ContentRef: "gone.md"},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	fetch := content.FetcherFunc(func(_ context.Context, ref string) (string, error) {
		switch ref {
		case "skillset.md":
			return "# Skillset\n\nSome text.\n```js\nconsole.log(1)\n```", nil
		case "vanilla.md":
			return "# Vanilla Reflections\n\nUse `document.querySelector`.\n\n## Themes\n\nA cookie.\n\n## Media queries\n\nmatchMedia.\n", nil
		case "broken.md":
			return "", errUpstream
		}
		return "", content.ErrNotFound
	})

	s, err := New(Options{Title: "Test Blog", Registry: reg, Fetcher: fetch, DB: database})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)

	r := chi.NewRouter()
	s.Register(r, r)
	return s, r
}

func get(t *testing.T, h http.Handler, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func TestPostPageUsesStoredPreference(t *testing.T) {
	_, h := testSite(t, nil)
	w := get(t, h, "/skillset", withCookie(theme.DefaultKey, "true"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`data-theme="dark"`,
		"Turn on Light Mode",
		`<h1 id="skillset">Skillset</h1>`,
		"<p>Some text.</p>",
		`data-phase="rendered"`,
		"<title>The Skillset · Test Blog</title>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if !strings.Contains(body, "style=") {
		t.Error("js fence not highlighted")
	}
}

func TestPostPageFollowsClientHint(t *testing.T) {
	_, h := testSite(t, nil)

	tests := []struct {
		name  string
		setup func(*http.Request)
		theme string
		label string
	}{
		{"hint dark", func(r *http.Request) { r.Header.Set(theme.HintHeader, `"dark"`) }, "dark", "Turn on Light Mode"},
		{"no signal", nil, "light", "Turn on Dark Mode"},
		{"malformed cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: theme.DefaultKey, Value: "maybe"})
			r.Header.Set(theme.HintHeader, "dark")
		}, "dark", "Turn on Light Mode"},
		{"cookie beats hint", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: theme.DefaultKey, Value: "false"})
			r.Header.Set(theme.HintHeader, "dark")
		}, "light", "Turn on Dark Mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, "/skillset", tt.setup)
			body := w.Body.String()
			if !strings.Contains(body, `data-theme="`+tt.theme+`"`) {
				t.Errorf("want theme %s", tt.theme)
			}
			if !strings.Contains(body, tt.label) {
				t.Errorf("want label %q", tt.label)
			}
			if w.Header().Get("Accept-CH") != theme.HintHeader {
				t.Errorf("Accept-CH = %q", w.Header().Get("Accept-CH"))
			}
		})
	}
}

func TestPostPageThemeChangesHighlighting(t *testing.T) {
	_, h := testSite(t, nil)
	dark := get(t, h, "/skillset", withCookie(theme.DefaultKey, "true")).Body.String()
	light := get(t, h, "/skillset", withCookie(theme.DefaultKey, "false")).Body.String()

	darkCode := dark[strings.Index(dark, "<pre"):]
	lightCode := light[strings.Index(light, "<pre"):]
	if darkCode == lightCode {
		t.Error("code block styling should differ between themes")
	}
}

func TestInlineCodeIsPlain(t *testing.T) {
	_, h := testSite(t, nil)
	body := get(t, h, "/vanilla-reflections", nil).Body.String()
	if !strings.Contains(body, "<code>document.querySelector</code>") {
		t.Error("inline code should render as plain monospaced text")
	}
}

func TestPostPageOutline(t *testing.T) {
	_, h := testSite(t, nil)
	body := get(t, h, "/vanilla-reflections", nil).Body.String()

	for _, want := range []string{
		`<nav class="outline" id="outline">`,
		`<a href="#themes">Themes</a>`,
		`<a href="#media-queries">Media queries</a>`,
		`<h2 id="media-queries">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %s", want)
		}
	}

	body = get(t, h, "/skillset", nil).Body.String()
	if !strings.Contains(body, `<nav class="outline" id="outline" hidden>`) {
		t.Error("a post without sections should hide the outline")
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	_, h := testSite(t, nil)
	w := get(t, h, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "There is no post at /nope.") {
		t.Error("missing not-found message")
	}
}

func TestFetchFailures(t *testing.T) {
	_, h := testSite(t, nil)

	w := get(t, h, "/broken", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-phase="failed"`) || !strings.Contains(body, "could not be loaded") {
		t.Errorf("failed view missing:\n%s", body)
	}
	if strings.Contains(body, errUpstream.Error()) {
		t.Error("internal error text leaked to the page")
	}

	w = get(t, h, "/gone", nil)
	if w.Code != http.StatusBadGateway || !strings.Contains(w.Body.String(), "could not be found") {
		t.Errorf("missing content: status %d", w.Code)
	}
}

func TestIndexListsPosts(t *testing.T) {
	_, h := testSite(t, nil)
	body := get(t, h, "/", nil).Body.String()

	first := strings.Index(body, `<li><a href="/vanilla-reflections"`)
	second := strings.Index(body, `<li><a href="/skillset"`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("index should list posts in registry order:\n%s", body)
	}
}

func TestToggleSetsCookieAndRedirects(t *testing.T) {
	_, h := testSite(t, nil)

	form := url.Values{"return": {"/skillset"}}
	req := httptest.NewRequest("POST", "/theme/toggle", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/skillset" {
		t.Errorf("Location = %q", loc)
	}
	if c := w.Header().Get("Set-Cookie"); !strings.Contains(c, theme.DefaultKey+"=true") {
		t.Errorf("Set-Cookie = %q, want darkMode=true", c)
	}
}

func TestToggleFromDark(t *testing.T) {
	_, h := testSite(t, nil)
	req := httptest.NewRequest("POST", "/theme/toggle", nil)
	req.AddCookie(&http.Cookie{Name: theme.DefaultKey, Value: "true"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if c := w.Header().Get("Set-Cookie"); !strings.Contains(c, theme.DefaultKey+"=false") {
		t.Errorf("Set-Cookie = %q, want darkMode=false", c)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestSafeReturn(t *testing.T) {
	tests := map[string]string{
		"/skillset":            "/skillset",
		"":                     "/",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"https://evil.example": "/",
	}
	for in, want := range tests {
		if got := safeReturn(in); got != want {
			t.Errorf("safeReturn(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPostsAPI(t *testing.T) {
	_, h := testSite(t, nil)
	w := get(t, h, "/api/posts", nil)

	var got []posts.PostInfo
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 4 || got[1].Route != "/skillset" || got[1].ContentRef != "skillset.md" {
		t.Errorf("posts = %+v", got)
	}
}

func TestStaticAssets(t *testing.T) {
	_, h := testSite(t, nil)

	css := get(t, h, "/static/style.css", nil)
	if !strings.HasPrefix(css.Header().Get("Content-Type"), "text/css") {
		t.Errorf("css Content-Type = %q", css.Header().Get("Content-Type"))
	}
	js := get(t, h, "/static/app.js", nil)
	if !strings.Contains(js.Body.String(), "/ws/live") {
		t.Error("app.js should open the live session")
	}
}

func TestSQLitePreferences(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()
	_, h := testSite(t, database)

	req := httptest.NewRequest("POST", "/theme/toggle", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var visitor *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == theme.VisitorCookie {
			visitor = c
		}
		if c.Name == theme.DefaultKey {
			t.Error("sqlite storage should not set a preference cookie")
		}
	}
	if visitor == nil {
		t.Fatal("no visitor cookie issued")
	}

	body := get(t, h, "/skillset", withCookie(theme.VisitorCookie, visitor.Value)).Body.String()
	if !strings.Contains(body, `data-theme="dark"`) {
		t.Error("returning visitor should get the stored dark theme")
	}
}

func TestLiveEndpoint(t *testing.T) {
	s, h := testSite(t, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/live?route=/skillset&ambient=dark", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	var m live.Outbound
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if m.Type != live.FrameTheme || m.Theme != "dark" {
		t.Errorf("first frame = %+v", m)
	}

	for m.Phase != "rendered" {
		m = live.Outbound{}
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
	}
	if n := s.Refresh("skillset.md"); n != 1 {
		t.Errorf("Refresh = %d, want 1", n)
	}
}

func TestDisableLive(t *testing.T) {
	reg := posts.Default()
	s, err := New(Options{Registry: reg, Fetcher: content.FetcherFunc(func(context.Context, string) (string, error) {
		return "", content.ErrNotFound
	}), DisableLive: true})
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	s.Register(r, r)

	if w := get(t, r, "/ws/live", nil); w.Code == http.StatusSwitchingProtocols {
		t.Error("live endpoint should be absent")
	}
	if !strings.Contains(get(t, r, "/", nil).Body.String(), `data-live="false"`) {
		t.Error("page should not start the live client")
	}
	if s.Refresh("x") != 0 {
		t.Error("Refresh without a hub should be a no-op")
	}
}
