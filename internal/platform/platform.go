package platform

import (
	"image"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// ProcessManager enumerates, terminates and launches the target application.
type ProcessManager interface {
	// FindProcesses returns the PIDs of running processes whose executable
	// name matches exe (case-insensitive).
	FindProcesses(exe string) ([]int, error)
	Terminate(pid int) error
	// Launch starts the application by its launch name.
	Launch(app string) error
}

// WindowManager exposes top-level window geometry and focus primitives.
type WindowManager interface {
	// ListWindows returns the top-level windows owned by pid.
	ListWindows(pid int) ([]model.Window, error)
	ForegroundWindow() (int, error)
	IsWindow(handle int) bool
	IsMinimized(handle int) bool
	IsVisible(handle int) bool
	WindowRect(handle int) (model.Rect, error)
	WindowTitle(handle int) (string, error)
	Restore(handle int) error
	SetForeground(handle int) error
	BringToTop(handle int) error
}

// Accessibility queries and drives the window's accessibility tree.
type Accessibility interface {
	// ReadElements returns the element tree of the window.
	ReadElements(handle int) ([]model.Element, error)
	// FocusedElement returns the control that currently has keyboard focus.
	FocusedElement(handle int) (model.Element, error)
	// PerformAction executes "press" or "focus" on an element from the most
	// recent ReadElements of the same window.
	PerformAction(handle, id int, action string) error
	// FocusWindow asks the window's top-level element to take focus.
	FocusWindow(handle int) error
}

// Screen captures raster regions of the desktop.
type Screen interface {
	// Capture returns the pixels of r. The image bounds are r in screen
	// coordinates.
	Capture(r model.Rect) (image.Image, error)
}

// Clipboard reads and writes the system text clipboard.
type Clipboard interface {
	GetText() (string, error)
	SetText(text string) error
	Clear() error
}

// Inputter simulates mouse and keyboard input.
type Inputter interface {
	Click(x, y int, button MouseButton, count int) error
	MoveMouse(x, y int) error
	Scroll(x, y int, dx, dy int) error
	TypeText(text string, delayMs int) error
	KeyCombo(keys []string) error
}

// Privileges exposes OS techniques that need elevated rights. Callers must
// check the Can* method before use.
type Privileges interface {
	// CanStealFocus reports whether StealFocus can bypass foreground-lock
	// restrictions.
	CanStealFocus() bool
	// StealFocus attaches to the foreground thread's input state, raises
	// handle, and detaches again.
	StealFocus(handle int) error
	CanBlockInput() bool
	BlockInput(block bool) error
}
