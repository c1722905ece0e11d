//go:build darwin && !cgo

package darwin

import "github.com/mj1618/desktop-escalate/internal/platform"

// Without cgo only the command-line backends exist. The provider then fails
// Require and every run reports invalid_config.
func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		return &platform.Provider{
			Processes: NewProcessManager(),
			Clipboard: NewClipboard(),
			Screen:    NewScreen(),
		}, nil
	}
}
