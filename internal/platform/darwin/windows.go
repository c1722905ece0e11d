//go:build darwin && cgo

package darwin

import (
	"fmt"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// WindowManager implements platform.WindowManager over the window server
// list. Handles are CGWindowIDs.
type WindowManager struct{}

func NewWindowManager() *WindowManager {
	return &WindowManager{}
}

// ListWindows returns the layer-0 windows of pid, front to back. Titles the
// window server withholds are read through accessibility.
func (wm *WindowManager) ListWindows(pid int) ([]model.Window, error) {
	ws, err := listWindows(pid)
	if err != nil {
		return nil, err
	}
	out := make([]model.Window, 0, len(ws))
	for _, w := range ws {
		title := w.title
		if title == "" {
			title = axWindowTitle(w.pid, w.id)
		}
		out = append(out, model.Window{Handle: w.id, PID: w.pid, Title: title, Rect: w.rect})
	}
	return out, nil
}

// ForegroundWindow returns the frontmost window of the frontmost app.
func (wm *WindowManager) ForegroundWindow() (int, error) {
	pid := frontmostPID()
	if pid == 0 {
		return 0, fmt.Errorf("failed to get frontmost app")
	}
	id := frontWindow(pid)
	if id == 0 {
		return 0, fmt.Errorf("frontmost app %d has no window on screen", pid)
	}
	return id, nil
}

func (wm *WindowManager) IsWindow(handle int) bool {
	_, ok := windowInfo(handle)
	return ok
}

func (wm *WindowManager) IsMinimized(handle int) bool {
	w, ok := windowInfo(handle)
	if !ok {
		return false
	}
	if m, known := axMinimized(w.pid, handle); known {
		return m
	}
	return !w.onscreen
}

func (wm *WindowManager) IsVisible(handle int) bool {
	w, ok := windowInfo(handle)
	return ok && w.onscreen
}

func (wm *WindowManager) WindowRect(handle int) (model.Rect, error) {
	w, err := wm.lookup(handle)
	if err != nil {
		return model.Rect{}, err
	}
	return w.rect, nil
}

func (wm *WindowManager) WindowTitle(handle int) (string, error) {
	w, err := wm.lookup(handle)
	if err != nil {
		return "", err
	}
	if w.title != "" {
		return w.title, nil
	}
	return axWindowTitle(w.pid, handle), nil
}

// Restore un-minimizes the window and unhides its app.
func (wm *WindowManager) Restore(handle int) error {
	w, err := wm.lookup(handle)
	if err != nil {
		return err
	}
	if err := axUnminimize(w.pid, handle); err != nil {
		return err
	}
	return activateApp(w.pid)
}

// SetForeground activates the owning app and raises the window.
func (wm *WindowManager) SetForeground(handle int) error {
	w, err := wm.lookup(handle)
	if err != nil {
		return err
	}
	if err := activateApp(w.pid); err != nil {
		return err
	}
	return axRaise(w.pid, handle)
}

func (wm *WindowManager) BringToTop(handle int) error {
	w, err := wm.lookup(handle)
	if err != nil {
		return err
	}
	return axRaise(w.pid, handle)
}

func (wm *WindowManager) lookup(handle int) (cgWindow, error) {
	w, ok := windowInfo(handle)
	if !ok {
		return cgWindow{}, fmt.Errorf("no window with ID %d", handle)
	}
	return w, nil
}
