//go:build darwin

package darwin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Clipboard implements platform.Clipboard on the general pasteboard through
// pbcopy and pbpaste. Both run under a UTF-8 locale; with the C locale
// non-ASCII replies come back mangled.
type Clipboard struct {
	timeout time.Duration
}

func NewClipboard() *Clipboard {
	return &Clipboard{timeout: 5 * time.Second}
}

func (c *Clipboard) GetText() (string, error) {
	var out bytes.Buffer
	if err := c.pb("pbpaste", nil, &out, "-Prefer", "txt"); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (c *Clipboard) SetText(text string) error {
	return c.pb("pbcopy", strings.NewReader(text), nil)
}

// Clear leaves an empty string on the pasteboard so a later GetText can
// tell whether a copy landed.
func (c *Clipboard) Clear() error {
	return c.pb("pbcopy", strings.NewReader(""), nil)
}

func (c *Clipboard) pb(name string, in io.Reader, out io.Writer, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = utf8Env(os.Environ())
	cmd.Stdin = in
	cmd.Stdout = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// utf8Env returns env with the locale variables forced to UTF-8.
func utf8Env(env []string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "LANG=") || strings.HasPrefix(kv, "LC_ALL=") || strings.HasPrefix(kv, "LC_CTYPE=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "LANG=en_US.UTF-8")
}
