// Package live serves the websocket session behind a rendered page: it
// keeps one theme resolver and one content view per connection and streams
// their state to the browser.
package live

import (
	"errors"

	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/theme"
)

// Inbound frame types.
const (
	FrameNavigate = "navigate"
	FrameToggle   = "toggle"
	FrameAmbient  = "ambient"
)

// Outbound frame types.
const (
	FrameTheme   = "theme"
	FrameContent = "content"
	FramePersist = "persist"
	FrameError   = "error"
)

// Inbound is a frame sent by the browser.
type Inbound struct {
	Type  string `json:"type"`
	Route string `json:"route,omitempty"`
	Dark  *bool  `json:"dark,omitempty"`
}

// Outbound is a frame sent to the browser.
type Outbound struct {
	Type    string    `json:"type"`
	Theme   string    `json:"theme,omitempty"`
	Route   string    `json:"route,omitempty"`
	Title   string    `json:"title,omitempty"`
	Phase   string    `json:"phase,omitempty"`
	HTML    string    `json:"html,omitempty"`
	Outline []Section `json:"outline,omitempty"`
	Error   string    `json:"error,omitempty"`
	Key     string    `json:"key,omitempty"`
	Value   string    `json:"value,omitempty"`
}

// Section is one entry of a post's outline.
type Section struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// PhaseNotFound is reported for routes missing from the registry.
const PhaseNotFound = "not_found"

func themeFrame(st theme.State) Outbound {
	return Outbound{Type: FrameTheme, Theme: st.String()}
}

func contentFrame(route string, snap content.Snapshot) Outbound {
	m := Outbound{
		Type:  FrameContent,
		Theme: snap.Theme.String(),
		Route: route,
		Phase: snap.Phase.String(),
		HTML:  string(snap.HTML),
	}
	if snap.Document != nil {
		m.Title = snap.Document.Title
		for _, h := range snap.Document.Outline() {
			m.Outline = append(m.Outline, Section{Level: h.Level, Text: h.Text, ID: h.ID})
		}
	}
	if snap.Err != nil {
		m.Error = FailureMessage(snap.Err)
	}
	return m
}

func errorFrame(msg string) Outbound {
	return Outbound{Type: FrameError, Error: msg}
}

// FailureMessage is the reader-facing text for a retrieval error.
func FailureMessage(err error) string {
	if errors.Is(err, content.ErrNotFound) {
		return "This post could not be found."
	}
	return "This post could not be loaded. Try again in a moment."
}
