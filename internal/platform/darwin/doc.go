// Package darwin provides the macOS backends. Process control, the
// pasteboard and screen capture go through system command-line tools.
// Window management, accessibility and input simulation use Quartz and the
// AX API and need cgo.
package darwin
