package theme

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HintHeader is the client hint carrying the browser's color scheme.
const HintHeader = "Sec-CH-Prefers-Color-Scheme"

// cookieMaxAge keeps the preference for a year.
const cookieMaxAge = 365 * 24 * time.Hour

// CookieStorage persists values as cookies on one request/response pair.
type CookieStorage struct {
	r *http.Request
	w http.ResponseWriter

	mu      sync.Mutex
	written map[string]string
}

// NewCookieStorage wraps the request cookies and the response writer.
func NewCookieStorage(w http.ResponseWriter, r *http.Request) *CookieStorage {
	return &CookieStorage{r: r, w: w, written: make(map[string]string)}
}

func (c *CookieStorage) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	v, ok := c.written[key]
	c.mu.Unlock()
	if ok {
		return v, true, nil
	}

	cookie, err := c.r.Cookie(key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return cookie.Value, true, nil
}

func (c *CookieStorage) Set(_ context.Context, key, value string) error {
	http.SetCookie(c.w, PreferenceCookie(key, value))
	c.mu.Lock()
	c.written[key] = value
	c.mu.Unlock()
	return nil
}

// PreferenceCookie builds the cookie used to persist a preference.
func PreferenceCookie(key, value string) *http.Cookie {
	return &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
}

// HintAmbient reads the ambient preference from a request's client hint.
// A request cannot report later changes, so Subscribe is a no-op.
type HintAmbient struct {
	value string
}

// NewHintAmbient captures the client hint of r.
func NewHintAmbient(r *http.Request) HintAmbient {
	return HintAmbient{value: r.Header.Get(HintHeader)}
}

func (h HintAmbient) Current() (bool, bool) {
	st, ok := ParseName(strings.Trim(h.value, `"`))
	return bool(st), ok
}

func (HintAmbient) Subscribe(func(bool)) (func(), bool) { return func() {}, false }
