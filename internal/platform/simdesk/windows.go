package simdesk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// ErrNoWindow is returned for operations on a handle that does not exist.
var ErrNoWindow = errors.New("invalid window handle")

// FindProcesses implements platform.ProcessManager.
func (d *Desktop) FindProcesses(exe string) ([]int, error) {
	if d.running && strings.EqualFold(exe, d.Exe) {
		return []int{d.pid}, nil
	}
	return nil, nil
}

// Terminate implements platform.ProcessManager.
func (d *Desktop) Terminate(pid int) error {
	if d.TerminateFails {
		return fmt.Errorf("terminate %d: access denied", pid)
	}
	if !d.running || pid != d.pid {
		return nil
	}
	d.Terminations++
	d.running = false
	d.foreground = 0
	d.event("terminated pid=%d", pid)
	return nil
}

// Launch implements platform.ProcessManager.
func (d *Desktop) Launch(app string) error {
	if d.LaunchFails {
		return fmt.Errorf("launch %s: not installed", app)
	}
	if d.running {
		return nil
	}
	d.launch()
	return nil
}

func (d *Desktop) imeHandle() int { return d.handle + 1 }

// ListWindows implements platform.WindowManager. The app owns a hidden IME
// helper window next to its main window.
func (d *Desktop) ListWindows(pid int) ([]model.Window, error) {
	if !d.windowShown() || pid != d.pid {
		return nil, nil
	}
	return []model.Window{
		{Handle: d.imeHandle(), PID: d.pid, Title: "Default IME", Rect: model.Rect{}},
		{Handle: d.handle, PID: d.pid, Title: d.title, Rect: d.Geometry},
	}, nil
}

func (d *Desktop) ForegroundWindow() (int, error) { return d.foreground, nil }

func (d *Desktop) IsWindow(h int) bool {
	return d.windowShown() && (h == d.handle || h == d.imeHandle())
}

func (d *Desktop) IsMinimized(h int) bool { return h == d.handle && d.minimized }

func (d *Desktop) IsVisible(h int) bool { return d.windowShown() && h == d.handle }

// WindowRect implements platform.WindowManager.
func (d *Desktop) WindowRect(h int) (model.Rect, error) {
	if !d.IsWindow(h) {
		return model.Rect{}, ErrNoWindow
	}
	if h != d.handle {
		return model.Rect{}, nil
	}
	return d.Geometry, nil
}

// WindowTitle implements platform.WindowManager.
func (d *Desktop) WindowTitle(h int) (string, error) {
	if !d.IsWindow(h) {
		return "", ErrNoWindow
	}
	if h != d.handle {
		return "Default IME", nil
	}
	return d.title, nil
}

// Restore implements platform.WindowManager.
func (d *Desktop) Restore(h int) error {
	if !d.IsWindow(h) {
		return ErrNoWindow
	}
	d.minimized = false
	return nil
}

// SetForeground implements platform.WindowManager. Like the real call it
// fails silently when the OS refuses the request.
func (d *Desktop) SetForeground(h int) error {
	if !d.IsWindow(h) {
		return ErrNoWindow
	}
	if d.locked || d.PlainFocusBlocked || d.minimized {
		return nil
	}
	d.foreground = h
	return nil
}

// BringToTop implements platform.WindowManager.
func (d *Desktop) BringToTop(h int) error {
	return d.SetForeground(h)
}

// CanStealFocus implements platform.Privileges.
func (d *Desktop) CanStealFocus() bool { return d.CanSteal }

// StealFocus implements platform.Privileges.
func (d *Desktop) StealFocus(h int) error {
	if !d.CanSteal {
		return errors.New("steal focus: not permitted")
	}
	if !d.IsWindow(h) {
		return ErrNoWindow
	}
	if !d.locked && !d.minimized {
		d.foreground = h
	}
	return nil
}

// CanBlockInput implements platform.Privileges.
func (d *Desktop) CanBlockInput() bool { return d.CanBlock }

// BlockInput implements platform.Privileges.
func (d *Desktop) BlockInput(block bool) error {
	d.BlockCalls = append(d.BlockCalls, block)
	if !d.CanBlock {
		return errors.New("block input: access denied")
	}
	d.blocked = block
	return nil
}

// GetText implements platform.Clipboard.
func (d *Desktop) GetText() (string, error) { return d.clipboard, nil }

// SetText implements platform.Clipboard.
func (d *Desktop) SetText(text string) error {
	d.clipboard = text
	return nil
}

// Clear implements platform.Clipboard.
func (d *Desktop) Clear() error {
	d.clipboard = ""
	return nil
}

// ReadElements implements platform.Accessibility.
func (d *Desktop) ReadElements(h int) ([]model.Element, error) {
	if d.AXDisabled {
		return nil, errors.New("accessibility: provider unavailable")
	}
	if !d.IsWindow(h) || h != d.handle {
		return nil, ErrNoWindow
	}
	d.settle()
	w := d.Geometry
	root := model.Element{
		ID:     1,
		Role:   "window",
		Name:   d.title,
		Bounds: [4]int{w.Left, w.Top, w.Width(), w.Height()},
	}
	in := d.inputRect()
	root.Children = append(root.Children, model.Element{
		ID:      2,
		Role:    "doc",
		Name:    "Message",
		Value:   d.input,
		Bounds:  [4]int{in.Left, in.Top, in.Width(), in.Height()},
		Focused: d.focus == "input",
		Actions: []string{"focus"},
	})
	id := 3
	for _, name := range d.focusRing() {
		if name == "input" || name == "message" {
			continue
		}
		root.Children = append(root.Children, model.Element{
			ID:      id,
			Role:    "btn",
			Name:    name,
			Focused: d.focus == name,
			Actions: []string{"press", "focus"},
		})
		id++
	}
	return []model.Element{root}, nil
}

// FocusedElement implements platform.Accessibility.
func (d *Desktop) FocusedElement(h int) (model.Element, error) {
	if d.AXDisabled {
		return model.Element{}, errors.New("accessibility: provider unavailable")
	}
	if !d.IsWindow(h) {
		return model.Element{}, ErrNoWindow
	}
	if d.OnFocusRead != nil {
		defer d.OnFocusRead(d, d.focus)
	}
	switch d.focus {
	case "":
		return model.Element{Role: "window", Name: d.title}, nil
	case "input":
		return model.Element{Role: "doc", Name: "Message", Value: d.input, Focused: true}, nil
	case "message":
		return model.Element{Role: "txt", Name: "assistant message", Focused: true}, nil
	default:
		return model.Element{Role: "btn", Name: d.focus, Focused: true}, nil
	}
}

// PerformAction implements platform.Accessibility.
func (d *Desktop) PerformAction(h, id int, action string) error {
	els, err := d.ReadElements(h)
	if err != nil {
		return err
	}
	for _, el := range model.Flatten(els) {
		if el.ID != id {
			continue
		}
		if !el.HasAction(action) {
			return fmt.Errorf("element %d does not support %q", id, action)
		}
		switch {
		case action == "focus" && el.Role == "doc":
			d.focus = "input"
		case action == "focus":
			d.focus = el.Name
		case el.Name == "Copy":
			d.clipboard = d.thread.LastResponse
		case d.dangerous(el.Name):
			d.DangerousPushes = append(d.DangerousPushes, el.Name)
		}
		return nil
	}
	return fmt.Errorf("element %d not found", id)
}

// FocusWindow implements platform.Accessibility.
func (d *Desktop) FocusWindow(h int) error {
	if d.AXDisabled {
		return errors.New("accessibility: provider unavailable")
	}
	if !d.IsWindow(h) {
		return ErrNoWindow
	}
	if !d.locked && !d.minimized {
		d.foreground = h
	}
	return nil
}
