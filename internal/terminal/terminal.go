// Package terminal renders posts for reading in a terminal.
package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/aaronparisi/technoblog/internal/content"
	"github.com/aaronparisi/technoblog/internal/posts"
	"github.com/aaronparisi/technoblog/internal/theme"
)

// DefaultWidth is the word-wrap column.
const DefaultWidth = 80

// Ambient reports the terminal's background as the ambient preference.
func Ambient() theme.Ambient {
	return theme.StaticAmbient{Dark: lipgloss.HasDarkBackground()}
}

// StyleName returns the glamour standard style for st.
func StyleName(st theme.State) string {
	if st == theme.Dark {
		return "dark"
	}
	return "light"
}

// Render renders doc's markup with the style for st.
func Render(doc *content.Document, st theme.State, width int) (string, error) {
	if doc == nil {
		return "", nil
	}
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(StyleName(st)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(string(doc.Source()))
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", doc.Ref, err)
	}
	return out, nil
}

var (
	lightPalette = palette{accent: "#228be6", muted: "#868e96"}
	darkPalette  = palette{accent: "#7aa2f7", muted: "#565f89"}
)

type palette struct {
	accent lipgloss.Color
	muted  lipgloss.Color
}

// TOC lists the registered posts, marking current.
func TOC(title string, entries []posts.PostInfo, current string, st theme.State) string {
	p := lightPalette
	if st == theme.Dark {
		p = darkPalette
	}
	heading := lipgloss.NewStyle().Bold(true).Foreground(p.accent).MarginBottom(1)
	active := lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	route := lipgloss.NewStyle().Foreground(p.muted)

	var sb strings.Builder
	sb.WriteString(heading.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		marker, name := "  ", e.Title
		if e.Route == current {
			marker, name = "> ", active.Render(e.Title)
		}
		fmt.Fprintf(&sb, "%s%s %s\n", marker, name, route.Render(e.Route))
	}
	return sb.String()
}
