//go:build darwin && cgo

package darwin

import "github.com/mj1618/desktop-escalate/internal/platform"

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		return &platform.Provider{
			Processes:     NewProcessManager(),
			Windows:       NewWindowManager(),
			Accessibility: NewAccessibility(),
			Screen:        NewScreen(),
			Clipboard:     NewClipboard(),
			Inputter:      NewInputter(),
		}, nil
	}
}
