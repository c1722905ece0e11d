package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// Provider bundles all platform backends for the current OS. Any field may be
// nil when the backend is not available.
type Provider struct {
	Processes     ProcessManager
	Windows       WindowManager
	Accessibility Accessibility
	Screen        Screen
	Clipboard     Clipboard
	Inputter      Inputter
	Privileges    Privileges
}

// ErrUnsupported is returned on unsupported platforms.
var ErrUnsupported = fmt.Errorf("desktop-escalate is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)

// ErrBackendMissing is wrapped by Require when a needed backend is nil.
var ErrBackendMissing = errors.New("not available")

// NewProviderFunc is set by platform-specific packages via init().
// See internal/platform/darwin/init.go for the macOS registration.
var NewProviderFunc func() (*Provider, error)

// NewProvider returns a Provider for the current OS.
func NewProvider() (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	return NewProviderFunc()
}

// Capabilities reports which backends are present, keyed by name.
func (p *Provider) Capabilities() map[string]bool {
	return map[string]bool{
		"processes":     p.Processes != nil,
		"windows":       p.Windows != nil,
		"accessibility": p.Accessibility != nil,
		"screen":        p.Screen != nil,
		"clipboard":     p.Clipboard != nil,
		"input":         p.Inputter != nil,
		"steal_focus":   p.Privileges != nil && p.Privileges.CanStealFocus(),
		"block_input":   p.Privileges != nil && p.Privileges.CanBlockInput(),
	}
}

// Require returns an error naming the first missing backend needed to drive
// the automation flow.
func (p *Provider) Require() error {
	switch {
	case p.Processes == nil:
		return fmt.Errorf("process management %w on this platform", ErrBackendMissing)
	case p.Windows == nil:
		return fmt.Errorf("window management %w on this platform", ErrBackendMissing)
	case p.Screen == nil:
		return fmt.Errorf("screen capture %w on this platform", ErrBackendMissing)
	case p.Clipboard == nil:
		return fmt.Errorf("clipboard %w on this platform", ErrBackendMissing)
	case p.Inputter == nil:
		return fmt.Errorf("input simulation %w on this platform", ErrBackendMissing)
	}
	return nil
}
