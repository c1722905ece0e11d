package platform

import (
	"reflect"
	"testing"
)

func TestParseKeyCombo(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Ctrl+Shift+C", []string{"ctrl", "shift", "c"}},
		{" enter ", []string{"enter"}},
		{Chord(KeyShift, KeyTab), []string{"shift", "tab"}},
		{"cmd+alt+k", []string{"cmd", "alt", "k"}},
	}
	for _, tt := range tests {
		got, err := ParseKeyCombo(tt.in)
		if err != nil {
			t.Fatalf("ParseKeyCombo(%q): %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseKeyCombo(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseKeyCombo_Invalid(t *testing.T) {
	for _, s := range []string{"", "ctrl+", "+c", "ctrl++c", "ctrl+shift", "a+b", "shift"} {
		if _, err := ParseKeyCombo(s); err == nil {
			t.Errorf("ParseKeyCombo(%q) should fail", s)
		}
	}
}
