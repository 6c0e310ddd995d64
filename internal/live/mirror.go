package live

import (
	"context"
	"net/http"
	"sync"
)

// cookieMirror reads preferences from the cookies sent with the upgrade
// request. A hijacked connection cannot set cookies, so writes are pushed
// to the page, which stores them in document.cookie.
type cookieMirror struct {
	mu     sync.Mutex
	values map[string]string
	push   func(key, value string)
}

func newCookieMirror(r *http.Request, push func(key, value string)) *cookieMirror {
	m := &cookieMirror{values: make(map[string]string), push: push}
	for _, c := range r.Cookies() {
		m.values[c.Name] = c.Value
	}
	return m
}

func (m *cookieMirror) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *cookieMirror) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.push(key, value)
	return nil
}
