package simdesk

import (
	"strings"

	"github.com/mj1618/desktop-escalate/internal/fuzzy"
	"github.com/mj1618/desktop-escalate/internal/platform"
)

// focusRing lists keyboard focus stops in Tab order.
func (d *Desktop) focusRing() []string {
	ring := []string{}
	if d.hasResponse() {
		ring = append(ring, "message", "Copy", "Like", "Dislike", "Regenerate")
	}
	return append(ring, "Voice mode", "Dictate", "Add attachment", "input")
}

func (d *Desktop) moveFocus(step int) {
	ring := d.focusRing()
	idx := -1
	for i, f := range ring {
		if f == d.focus {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && step > 0:
		idx = 0
	case idx < 0:
		idx = len(ring) - 1
	default:
		idx = (idx + step + len(ring)) % len(ring)
	}
	d.focus = ring[idx]
}

// accepts reports whether input events reach the app window.
func (d *Desktop) accepts() bool {
	return d.visible() && d.foreground == d.handle && !d.locked
}

// Click implements platform.Inputter.
func (d *Desktop) Click(x, y int, _ platform.MouseButton, _ int) error {
	d.Clicks++
	d.settle()
	if !d.visible() || !d.Geometry.Contains(x, y) {
		if !d.locked {
			d.foreground = 0
		}
		return nil
	}
	if d.locked {
		return nil
	}
	d.foreground = d.handle
	w := d.Geometry

	if y < w.Top+titleBarHeight {
		return nil
	}

	tx, ty := d.togglePoint()
	if !d.panelOpen && abs(x-tx) <= 8 && abs(y-ty) <= 8 {
		d.panelOpen = true
		d.event("panel opened")
		return nil
	}

	if d.panelOpen && d.panelRect().Contains(x, y) {
		if i, ok := d.panelItemAt(y + d.PanelClickSkew); ok {
			d.project = d.Projects[i]
			d.selectedRow = i
			d.thread = nil
			d.listOffset = 0
			d.event("selected project %q", d.project)
		}
		return nil
	}

	if d.inputRect().Contains(x, y) || d.buttonRect().Contains(x, y) {
		if !d.InputClickDead {
			d.focus = "input"
		}
		return nil
	}

	if d.listView() {
		if i, ok := d.listItemAt(x, y); ok {
			d.openThread(d.listItems()[i])
			d.focus = ""
			return nil
		}
	}
	d.focus = ""
	return nil
}

// MoveMouse implements platform.Inputter.
func (d *Desktop) MoveMouse(x, y int) error { return nil }

// Scroll implements platform.Inputter. Negative dy scrolls content up,
// revealing later items.
func (d *Desktop) Scroll(x, y int, _, dy int) error {
	if !d.visible() || !d.Geometry.Contains(x, y) {
		return nil
	}
	switch {
	case d.panelOpen && d.panelRect().Contains(x, y):
		d.PanelScrolls++
		d.panelOffset = clamp(d.panelOffset-dy, 0, len(d.Projects)-1)
	case d.listView():
		d.ListScrolls++
		limit := len(d.listItems()) - listRows
		if limit < 0 {
			limit = 0
		}
		d.listOffset = clamp(d.listOffset-dy, 0, limit)
	default:
		d.ChatScrolls++
	}
	return nil
}

// TypeText implements platform.Inputter.
func (d *Desktop) TypeText(text string, _ int) error {
	if !d.accepts() {
		return nil
	}
	switch {
	case d.searching:
		d.query += text
	case d.focus == "input":
		d.insert(text)
	}
	return nil
}

func (d *Desktop) insert(text string) {
	if d.selectAll {
		d.input = ""
		d.selectAll = false
	}
	d.input += text
}

// KeyCombo implements platform.Inputter.
func (d *Desktop) KeyCombo(keys []string) error {
	if !d.accepts() {
		return nil
	}
	d.settle()
	combo := strings.Join(keys, "+")
	switch combo {
	case platform.KeyTab:
		d.moveFocus(1)
	case "shift+tab":
		d.moveFocus(-1)
	case "ctrl+a", "cmd+a":
		if d.focus == "input" {
			d.selectAll = true
		}
	case platform.KeyBackspace, "delete":
		if d.focus != "input" {
			return nil
		}
		if d.selectAll {
			d.input = ""
			d.selectAll = false
		} else if n := len(d.input); n > 0 {
			d.input = d.input[:n-1]
		}
	case "ctrl+v", "cmd+v":
		if d.searching {
			d.query += d.clipboard
		} else if d.focus == "input" {
			d.insert(d.clipboard)
		}
	case "ctrl+c", "cmd+c":
		if d.focus == "input" && d.selectAll {
			d.clipboard = d.input
		}
	case "ctrl+shift+c", "cmd+shift+c":
		if d.hasResponse() {
			d.clipboard = d.thread.LastResponse
		}
	case "ctrl+k", "cmd+k":
		d.searching = true
		d.query = ""
	case platform.KeyEscape:
		d.searching = false
	case platform.KeyEnter:
		d.enter()
	}
	return nil
}

func (d *Desktop) enter() {
	if d.searching {
		d.searching = false
		for _, project := range append([]string{""}, d.Projects...) {
			for _, c := range d.Conversations[project] {
				if fuzzy.Contains(c.Name, d.query, fuzzy.DefaultContainsThreshold) {
					d.openThread(c)
					return
				}
			}
		}
		return
	}
	switch d.focus {
	case "input":
		if strings.TrimSpace(d.input) != "" {
			d.submit()
		}
	case "Copy":
		if d.hasResponse() {
			d.clipboard = d.thread.LastResponse
		}
	case "", "message":
	default:
		if d.dangerous(d.focus) {
			d.DangerousPushes = append(d.DangerousPushes, d.focus)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
