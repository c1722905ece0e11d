//go:build darwin && cgo

package darwin

import (
	"fmt"
	"strings"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// Accessibility implements platform.Accessibility with the AX API.
type Accessibility struct{}

func NewAccessibility() *Accessibility {
	return &Accessibility{}
}

// ReadElements reads the accessibility tree of the window.
func (a *Accessibility) ReadElements(handle int) ([]model.Element, error) {
	if err := CheckAccessibilityPermission(); err != nil {
		return nil, err
	}
	w, ok := windowInfo(handle)
	if !ok {
		return nil, fmt.Errorf("no window with ID %d", handle)
	}
	entries, err := axReadElements(w.pid, handle)
	if err != nil {
		return nil, err
	}
	return buildElementTree(entries), nil
}

// FocusedElement returns the control of the window's app that has keyboard
// focus.
func (a *Accessibility) FocusedElement(handle int) (model.Element, error) {
	if err := CheckAccessibilityPermission(); err != nil {
		return model.Element{}, err
	}
	w, ok := windowInfo(handle)
	if !ok {
		return model.Element{}, fmt.Errorf("no window with ID %d", handle)
	}
	return axFocusedElement(w.pid)
}

// PerformAction runs action on element id, numbered as by ReadElements.
func (a *Accessibility) PerformAction(handle, id int, action string) error {
	if id <= 0 {
		return fmt.Errorf("element id is required")
	}
	if action == "" {
		return fmt.Errorf("action is required")
	}
	if err := CheckAccessibilityPermission(); err != nil {
		return err
	}
	w, ok := windowInfo(handle)
	if !ok {
		return fmt.Errorf("no window with ID %d", handle)
	}
	return axPerformAction(w.pid, handle, id, mapActionName(action))
}

// FocusWindow makes the window its app's main and focused window.
func (a *Accessibility) FocusWindow(handle int) error {
	if err := CheckAccessibilityPermission(); err != nil {
		return err
	}
	w, ok := windowInfo(handle)
	if !ok {
		return fmt.Errorf("no window with ID %d", handle)
	}
	return axFocusWindow(w.pid, handle)
}

// actionMap maps AX action names to short names.
var actionMap = map[string]string{
	"AXPress":    "press",
	"AXCancel":   "cancel",
	"AXPick":     "pick",
	"AXConfirm":  "confirm",
	"AXShowMenu": "showmenu",
	"AXRaise":    "raise",
}

func mapAction(axAction string) string {
	if short, ok := actionMap[axAction]; ok {
		return short
	}
	return strings.ToLower(strings.TrimPrefix(axAction, "AX"))
}

// mapActionName is the inverse of mapAction. "focus" is not an AX action
// and is passed through for the focused attribute.
func mapActionName(short string) string {
	s := strings.ToLower(short)
	if s == "focus" {
		return s
	}
	for ax, name := range actionMap {
		if name == s {
			return ax
		}
	}
	return short
}

// buildElementTree nests a depth-first walk. Entries with parent 0 are
// roots; every other parent precedes its children.
func buildElementTree(entries []axEntry) []model.Element {
	if len(entries) == 0 {
		return []model.Element{}
	}
	index := make(map[int]int, len(entries))
	children := make(map[int][]int, len(entries))
	var roots []int
	for i, e := range entries {
		index[e.elem.ID] = i
		if e.parent == 0 {
			roots = append(roots, i)
			continue
		}
		children[e.parent] = append(children[e.parent], i)
	}

	var build func(i int) model.Element
	build = func(i int) model.Element {
		el := entries[i].elem
		for _, c := range children[el.ID] {
			el.Children = append(el.Children, build(c))
		}
		return el
	}
	out := make([]model.Element, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}
