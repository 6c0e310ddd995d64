// Package theme resolves, persists and publishes the reader's light/dark
// presentation preference.
package theme

import "strings"

// DefaultKey is the storage key holding the serialised preference.
const DefaultKey = "darkMode"

// State is the application's current presentation mode.
type State bool

const (
	Light State = false
	Dark  State = true
)

// String returns "dark" or "light".
func (s State) String() string {
	if s == Dark {
		return "dark"
	}
	return "light"
}

// Format serialises the state for storage.
func (s State) Format() string {
	if s == Dark {
		return "true"
	}
	return "false"
}

// Toggle returns the opposite state.
func (s State) Toggle() State { return !s }

// ParseState decodes a stored value. Only "true" and "false" are accepted;
// anything else reports ok == false.
func ParseState(v string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true":
		return Dark, true
	case "false":
		return Light, true
	default:
		return Light, false
	}
}

// ParseName decodes "dark" or "light".
func ParseName(v string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "dark":
		return Dark, true
	case "light":
		return Light, true
	default:
		return Light, false
	}
}
