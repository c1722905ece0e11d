// Package guard keeps the target window usable: present, restored, visible
// and in the foreground. Every coordinate-based action in the flow goes
// through a Guardrail.
package guard

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"go.uber.org/zap"
)

// ErrWindowNotFound is returned when no process of the target executable
// owns a usable window.
var ErrWindowNotFound = errors.New("target window not found")

// Guardrail restores window viability and focus for one engine instance.
// It shares the engine's WindowSession and nothing else.
type Guardrail struct {
	p        *platform.Provider
	session  *model.WindowSession
	clk      clock.Clock
	target   config.Target
	layout   config.Layout
	timeouts config.Timeouts
	priv     config.Privileges
	attempts int
	log      *zap.Logger
}

// New returns a Guardrail over session.
func New(p *platform.Provider, session *model.WindowSession, clk clock.Clock, cfg config.Config, log *zap.Logger) *Guardrail {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guardrail{
		p:        p,
		session:  session,
		clk:      clk,
		target:   cfg.Target,
		layout:   cfg.Layout,
		timeouts: cfg.Timeouts,
		priv:     cfg.Privileges,
		attempts: cfg.Flow.FocusAttempts,
		log:      log.Named("guard"),
	}
}

// Session returns the tracked window.
func (g *Guardrail) Session() *model.WindowSession { return g.session }

// Rect returns the window rectangle recorded by the last successful check.
func (g *Guardrail) Rect() model.Rect { return g.session.Rect }

// Point resolves a layout point against the current window rectangle.
func (g *Guardrail) Point(p model.FracPoint) (int, int) { return g.session.Rect.Point(p) }

// Region resolves a layout region against the current window rectangle.
func (g *Guardrail) Region(r model.FracRect) model.Rect { return g.session.Rect.Sub(r) }

// IsWindowViable reports whether the tracked handle is live, restored and
// visible. It changes nothing.
func (g *Guardrail) IsWindowViable() bool {
	if !g.session.Bound() {
		g.log.Debug("no window handle")
		return false
	}
	w := g.p.Windows
	h := g.session.Handle
	switch {
	case !w.IsWindow(h):
		g.log.Debug("window handle is invalid", zap.Int("handle", h))
		return false
	case w.IsMinimized(h):
		g.log.Debug("window is minimized", zap.Int("handle", h))
		return false
	case !w.IsVisible(h):
		g.log.Debug("window is not visible", zap.Int("handle", h))
		return false
	}
	return true
}

// RefreshHandle rediscovers the target window and rebinds the session.
func (g *Guardrail) RefreshHandle() bool {
	w, err := FindTargetWindow(g.p, g.target)
	if err != nil {
		g.log.Debug("window refresh failed", zap.Error(err))
		return false
	}
	g.session.Bind(w)
	g.log.Debug("window handle refreshed", zap.Int("handle", w.Handle), zap.String("title", w.Title))
	return true
}

// FindTargetWindow returns the first visible, titled window of a process
// of the target executable whose title is not a helper window.
func FindTargetWindow(p *platform.Provider, target config.Target) (model.Window, error) {
	pids, err := p.Processes.FindProcesses(target.Executable)
	if err != nil {
		return model.Window{}, fmt.Errorf("find %s: %w", target.Executable, err)
	}
	for _, pid := range pids {
		windows, err := p.Windows.ListWindows(pid)
		if err != nil {
			continue
		}
		for _, w := range windows {
			if !p.Windows.IsVisible(w.Handle) || strings.TrimSpace(w.Title) == "" || ignored(w.Title, target.IgnoreTitles) {
				continue
			}
			if w.Rect.Empty() {
				r, err := p.Windows.WindowRect(w.Handle)
				if err != nil || r.Empty() {
					continue
				}
				w.Rect = r
			}
			return w, nil
		}
	}
	return model.Window{}, fmt.Errorf("%w: %s", ErrWindowNotFound, target.Executable)
}

func ignored(title string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(title, p) {
			return true
		}
	}
	return false
}

func (g *Guardrail) isForeground() bool {
	fg, err := g.p.Windows.ForegroundWindow()
	return err == nil && g.session.Bound() && fg == g.session.Handle
}

// verify reports whether the window is foreground and, if so, records its
// current rectangle.
func (g *Guardrail) verify() bool {
	if !g.isForeground() {
		return false
	}
	r, err := g.p.Windows.WindowRect(g.session.Handle)
	if err != nil || r.Empty() {
		return false
	}
	g.session.UpdateRect(r)
	return true
}

func (g *Guardrail) canSteal() bool {
	return g.priv.StealFocus && g.p.Privileges != nil && g.p.Privileges.CanStealFocus()
}

// EnsureForeground makes the target window the foreground window, trying
// up to maxAttempts passes over every focus technique. The session rect is
// refreshed on success.
func (g *Guardrail) EnsureForeground(maxAttempts int) bool {
	if !g.session.Bound() && !g.RefreshHandle() {
		return false
	}
	if g.verify() {
		return true
	}
	w := g.p.Windows
	h := g.session.Handle
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		g.log.Debug("window lost focus, restoring", zap.Int("attempt", attempt), zap.Int("max", maxAttempts))

		if w.IsMinimized(h) {
			if err := w.Restore(h); err != nil {
				g.log.Debug("restore failed", zap.Error(err))
			}
			g.clk.Sleep(g.timeouts.FocusSettle)
		}

		if g.canSteal() {
			if err := g.p.Privileges.StealFocus(h); err != nil {
				g.log.Debug("steal focus failed", zap.Error(err))
			}
		} else if err := w.SetForeground(h); err != nil {
			g.log.Debug("set foreground failed", zap.Error(err))
		}
		if g.settleAndVerify("foreground") {
			return true
		}

		if err := w.BringToTop(h); err == nil && g.settleAndVerify("bring-to-top") {
			return true
		}

		if g.p.Inputter != nil && !g.session.Rect.Empty() {
			x, y := g.session.Rect.Point(g.layout.TitleBar)
			if err := g.p.Inputter.Click(x, y, platform.MouseLeft, 1); err == nil && g.settleAndVerify("title-bar click") {
				return true
			}
		}

		if g.p.Accessibility != nil {
			if err := g.p.Accessibility.FocusWindow(h); err == nil && g.settleAndVerify("accessibility focus") {
				return true
			}
		}

		g.clk.Sleep(g.timeouts.FocusSettle)
	}
	g.log.Warn("could not restore focus", zap.Int("attempts", maxAttempts))
	return false
}

func (g *Guardrail) settleAndVerify(via string) bool {
	g.clk.Sleep(g.timeouts.FocusSettle)
	if g.verify() {
		g.log.Debug("focus restored", zap.String("via", via))
		return true
	}
	return false
}

// RetryWithRecovery runs op up to maxAttempts times. Before each attempt the
// window is made viable and foreground. An error, a panic or a false result
// counts as a failed attempt followed by a linear backoff.
func (g *Guardrail) RetryWithRecovery(name string, maxAttempts int, op func() (bool, error)) bool {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ok, err := g.tryOnce(op)
		switch {
		case ok:
			if attempt > 1 {
				g.log.Debug("operation recovered", zap.String("op", name), zap.Int("attempt", attempt))
			}
			return true
		case err != nil:
			g.log.Debug("operation failed", zap.String("op", name), zap.Int("attempt", attempt), zap.Error(err))
		default:
			g.log.Debug("operation returned false", zap.String("op", name), zap.Int("attempt", attempt))
		}
		if attempt < maxAttempts {
			g.clk.Sleep(time.Duration(attempt) * g.timeouts.RetryBackoff)
		}
	}
	g.log.Warn("operation exhausted retries", zap.String("op", name), zap.Int("attempts", maxAttempts))
	return false
}

func (g *Guardrail) tryOnce(op func() (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	if !g.IsWindowViable() {
		if !g.RefreshHandle() {
			return false, errors.New("window not ready")
		}
		if g.p.Windows.IsMinimized(g.session.Handle) {
			_ = g.p.Windows.Restore(g.session.Handle)
			g.clk.Sleep(g.timeouts.FocusSettle)
		}
	}
	if !g.EnsureForeground(g.attempts) {
		return false, errors.New("could not restore focus")
	}
	return op()
}

// SafeClick clicks (x, y) after making the window foreground.
func (g *Guardrail) SafeClick(x, y int, description string) bool {
	if !g.EnsureForeground(g.attempts) {
		g.log.Debug("click skipped, no foreground", zap.String("target", description))
		return false
	}
	return g.click(x, y, description)
}

// SafeClickAt clicks a layout point displaced by (dx, dy). The point is
// resolved against the rectangle recorded by the foreground check, so a
// window that moved since the last action is clicked where it is now.
func (g *Guardrail) SafeClickAt(p model.FracPoint, dx, dy int, description string) bool {
	if !g.EnsureForeground(g.attempts) {
		g.log.Debug("click skipped, no foreground", zap.String("target", description))
		return false
	}
	x, y := g.session.Rect.Point(p)
	return g.click(x+dx, y+dy, description)
}

// SafeClickFrom clicks (x, y), a point measured while the window sat at
// origin, translated by however far the window has moved since.
func (g *Guardrail) SafeClickFrom(origin model.Rect, x, y int, description string) bool {
	if !g.EnsureForeground(g.attempts) {
		g.log.Debug("click skipped, no foreground", zap.String("target", description))
		return false
	}
	cur := g.session.Rect
	return g.click(x+cur.Left-origin.Left, y+cur.Top-origin.Top, description)
}

// Follow translates r, measured while the window sat at origin, to the
// window's last recorded position.
func (g *Guardrail) Follow(origin, r model.Rect) model.Rect {
	dx, dy := g.session.Rect.Left-origin.Left, g.session.Rect.Top-origin.Top
	return model.Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

func (g *Guardrail) click(x, y int, description string) bool {
	if err := g.p.Inputter.Click(x, y, platform.MouseLeft, 1); err != nil {
		g.log.Debug("click failed", zap.String("target", description), zap.Error(err))
		return false
	}
	g.log.Debug("clicked", zap.Int("x", x), zap.Int("y", y), zap.String("target", description))
	return true
}

// BlockInput blocks user input when the privilege is enabled and granted.
// The returned release function is always safe to call, more than once.
func (g *Guardrail) BlockInput() func() {
	if !g.priv.BlockInput || g.p.Privileges == nil || !g.p.Privileges.CanBlockInput() {
		return func() {}
	}
	if err := g.p.Privileges.BlockInput(true); err != nil {
		g.log.Warn("input blocking refused", zap.Error(err))
		return func() {}
	}
	g.log.Debug("user input blocked")
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := g.p.Privileges.BlockInput(false); err != nil {
				g.log.Warn("input unblock failed", zap.Error(err))
			}
		})
	}
}
