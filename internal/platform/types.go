package platform

import (
	"fmt"
	"strings"
)

// MouseButton represents a mouse button.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// Key names understood by Inputter.KeyCombo.
const (
	KeyEnter     = "enter"
	KeyTab       = "tab"
	KeyBackspace = "backspace"
	KeyEscape    = "escape"

	KeyShift = "shift"
	KeyCtrl  = "ctrl"
	KeyAlt   = "alt"
	KeyCmd   = "cmd"
)

var modifiers = map[string]bool{KeyShift: true, KeyCtrl: true, KeyAlt: true, KeyCmd: true}

// ParseKeyCombo splits "ctrl+shift+c" into its lowercase key names. Every
// key but the last must be a modifier and the last must not be one.
func ParseKeyCombo(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty key combo")
	}
	parts := strings.Split(s, "+")
	keys := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return nil, fmt.Errorf("invalid key combo %q", s)
		}
		last := i == len(parts)-1
		if modifiers[p] == last {
			if last {
				return nil, fmt.Errorf("key combo %q ends in a modifier", s)
			}
			return nil, fmt.Errorf("key combo %q: %q is not a modifier", s, p)
		}
		keys = append(keys, p)
	}
	return keys, nil
}

// Chord joins modifiers and a key into the form ParseKeyCombo accepts.
func Chord(keys ...string) string {
	return strings.Join(keys, "+")
}
