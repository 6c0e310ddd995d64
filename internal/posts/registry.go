// Package posts holds the fixed, ordered table of publishable posts.
package posts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateRoute is returned when two registry entries share a route.
var ErrDuplicateRoute = errors.New("duplicate post route")

// PostInfo maps a route to a post's display title and content locator.
type PostInfo struct {
	Route      string `json:"route"`
	Title      string `json:"title"`
	ContentRef string `json:"content_ref"`
}

// Registry is an immutable, ordered sequence of PostInfo entries with
// pairwise distinct routes.
type Registry struct {
	entries []PostInfo
	byRoute map[string]int
}

// NewRegistry validates the entries and builds a Registry. Routes are
// normalised to carry a single leading slash.
func NewRegistry(entries ...PostInfo) (*Registry, error) {
	r := &Registry{
		entries: make([]PostInfo, 0, len(entries)),
		byRoute: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		e.Route = NormalizeRoute(e.Route)
		e.Title = strings.TrimSpace(e.Title)
		e.ContentRef = strings.TrimSpace(e.ContentRef)

		if e.Route == "/" {
			return nil, fmt.Errorf("post %d: route is required and may not be the index", i)
		}
		if e.ContentRef == "" {
			return nil, fmt.Errorf("post %d (%s): content ref is required", i, e.Route)
		}
		if prev, ok := r.byRoute[e.Route]; ok {
			return nil, fmt.Errorf("posts %d and %d: %w %q", prev, i, ErrDuplicateRoute, e.Route)
		}
		if e.Title == "" {
			e.Title = e.Route[1:]
		}
		r.byRoute[e.Route] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := NewRegistry(defaultPosts...)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultPosts = []PostInfo{
	{Route: "/vanilla-reflections", Title: "Vanilla Reflections", ContentRef: "vanilla-reflections.md"},
	{Route: "/skillset", Title: "The Skillset", ContentRef: "skillset.md"},
}

// All returns the entries in registration order.
func (r *Registry) All() []PostInfo {
	out := make([]PostInfo, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered posts.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup returns the entry registered for route.
func (r *Registry) Lookup(route string) (PostInfo, bool) {
	i, ok := r.byRoute[NormalizeRoute(route)]
	if !ok {
		return PostInfo{}, false
	}
	return r.entries[i], true
}

// NormalizeRoute trims whitespace and surrounding slashes and returns the
// route with exactly one leading slash.
func NormalizeRoute(route string) string {
	return "/" + strings.Trim(strings.TrimSpace(route), "/")
}
