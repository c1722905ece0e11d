package model

import "testing"

func TestMapRole_KnownRoles(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ButtonControl", "btn"},
		{"EditControl", "input"},
		{"DocumentControl", "doc"},
		{"TextControl", "txt"},
		{"ListItemControl", "row"},
		{"AXButton", "btn"},
		{"AXTextArea", "input"},
		{"AXWebArea", "doc"},
		{"AXWindow", "window"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := MapRole(tt.input)
			if got != tt.want {
				t.Errorf("MapRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMapRole_UnknownFallback(t *testing.T) {
	for _, role := range []string{"SliderControl", "AXSlider", ""} {
		if got := MapRole(role); got != "other" {
			t.Errorf("MapRole(%q) = %q, want %q", role, got, "other")
		}
	}
}

func TestIsTextEntry(t *testing.T) {
	if !IsTextEntry("input") || !IsTextEntry("doc") {
		t.Error("input and doc should accept text")
	}
	if IsTextEntry("btn") {
		t.Error("btn should not accept text")
	}
}
