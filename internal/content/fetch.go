// Package content retrieves a post's raw text, parses it into a Document and
// renders it to HTML with theme-aware code highlighting.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a content ref resolves to nothing.
var ErrNotFound = errors.New("content not found")

// ErrTooLarge is returned when a post exceeds maxContentBytes.
var ErrTooLarge = errors.New("content too large")

// maxContentBytes caps a single post.
const maxContentBytes = 5 * 1024 * 1024

// Fetcher resolves a content ref to raw text.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, ref string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref string) (string, error) { return f(ctx, ref) }

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// HTTPFetcher retrieves refs over plain HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.1")
	req.Header.Set("User-Agent", "technoblog/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("fetch %s: %w", ref, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", ref, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxContentBytes {
		return "", fmt.Errorf("fetch %s: body exceeds %d bytes: %w", ref, maxContentBytes, ErrTooLarge)
	}
	return string(body), nil
}

// FileFetcher reads refs as slash-separated paths inside fsys. Refs cannot
// escape the root.
type FileFetcher struct {
	fsys fs.FS
}

// NewFileFetcher returns a FileFetcher rooted at fsys.
func NewFileFetcher(fsys fs.FS) *FileFetcher {
	return &FileFetcher{fsys: fsys}
}

func (f *FileFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := LocalName(ref)
	if name == "" {
		return "", fmt.Errorf("read %q: %w", ref, ErrNotFound)
	}

	data, err := fs.ReadFile(f.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxContentBytes {
		return "", fmt.Errorf("read %s: %d bytes: %w", name, len(data), ErrTooLarge)
	}
	return string(data), nil
}

// LocalName maps a local ref to its fs.FS path, or "" when it names the root.
func LocalName(ref string) string {
	ref = strings.TrimPrefix(ref, "file://")
	name := strings.TrimPrefix(path.Clean("/"+ref), "/")
	if !fs.ValidPath(name) || name == "." {
		return ""
	}
	return name
}

// Mux dispatches remote refs to Remote and everything else to Local.
type Mux struct {
	Remote Fetcher
	Local  Fetcher
}

func (m *Mux) Fetch(ctx context.Context, ref string) (string, error) {
	target := m.Local
	if IsRemote(ref) {
		target = m.Remote
	}
	if target == nil {
		return "", fmt.Errorf("no fetcher for %q", ref)
	}
	return target.Fetch(ctx, ref)
}
