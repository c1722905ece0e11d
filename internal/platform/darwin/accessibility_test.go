//go:build darwin && cgo

package darwin

import (
	"reflect"
	"testing"

	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/platform"
)

func TestBuildElementTree(t *testing.T) {
	entries := []axEntry{
		{parent: 0, elem: model.Element{ID: 1, Role: "window"}},
		{parent: 1, elem: model.Element{ID: 2, Role: "group"}},
		{parent: 2, elem: model.Element{ID: 3, Role: "btn", Name: "Copy"}},
		{parent: 2, elem: model.Element{ID: 4, Role: "btn", Name: "Like"}},
		{parent: 1, elem: model.Element{ID: 5, Role: "input"}},
	}
	tree := buildElementTree(entries)
	if len(tree) != 1 {
		t.Fatalf("roots = %d, want 1", len(tree))
	}
	root := tree[0]
	if len(root.Children) != 2 || root.Children[0].ID != 2 || root.Children[1].ID != 5 {
		t.Fatalf("root children = %+v", root.Children)
	}
	var names []string
	for _, c := range root.Children[0].Children {
		names = append(names, c.Name)
	}
	if want := []string{"Copy", "Like"}; !reflect.DeepEqual(names, want) {
		t.Errorf("group children = %v, want %v", names, want)
	}

	el, ok := model.FindFirst(tree, []string{"btn"}, "copy")
	if !ok || el.ID != 3 {
		t.Errorf("FindFirst = %+v, %v", el, ok)
	}
	if got := buildElementTree(nil); got == nil || len(got) != 0 {
		t.Errorf("empty walk = %v, want empty slice", got)
	}
}

func TestActionNames(t *testing.T) {
	tests := []struct{ short, ax string }{
		{"press", "AXPress"},
		{"Press", "AXPress"},
		{"showmenu", "AXShowMenu"},
		{"focus", "focus"},
		{"AXCustom", "AXCustom"},
	}
	for _, tt := range tests {
		if got := mapActionName(tt.short); got != tt.ax {
			t.Errorf("mapActionName(%q) = %q, want %q", tt.short, got, tt.ax)
		}
	}
	if got := mapAction("AXPress"); got != "press" {
		t.Errorf("mapAction(AXPress) = %q", got)
	}
	if got := mapAction("AXScrollToVisible"); got != "scrolltovisible" {
		t.Errorf("mapAction(AXScrollToVisible) = %q", got)
	}
}

func TestParseKeyCombo(t *testing.T) {
	for _, combo := range []string{"cmd+a", "cmd+shift+c", "shift+tab", "enter", "ctrl+alt+backspace"} {
		keys, err := platform.ParseKeyCombo(combo)
		if err != nil {
			t.Fatalf("ParseKeyCombo(%q): %v", combo, err)
		}
		if _, _, err := parseKeyCombo(keys); err != nil {
			t.Errorf("parseKeyCombo(%v): %v", keys, err)
		}
	}
	if _, _, err := parseKeyCombo([]string{"cmd"}); err == nil {
		t.Error("modifier-only combo accepted")
	}
	if _, _, err := parseKeyCombo([]string{"hyper"}); err == nil {
		t.Error("unknown key accepted")
	}
}
