package flow

import (
	"fmt"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/guard"
	"github.com/mj1618/desktop-escalate/internal/model"
	"go.uber.org/zap"
)

// Terminate ends every process of the target executable and waits until
// none is left.
func (e *Engine) Terminate() error {
	exe := e.cfg.Target.Executable
	t := e.cfg.Timeouts
	pids, err := e.p.Processes.FindProcesses(exe)
	if err != nil {
		return fmt.Errorf("list %s processes: %w", exe, err)
	}
	e.session.Invalidate()
	if len(pids) == 0 {
		e.log.Debug("app was not running", zap.String("exe", exe))
		return nil
	}
	for _, pid := range pids {
		e.log.Debug("terminating", zap.Int("pid", pid))
		if err := e.p.Processes.Terminate(pid); err != nil {
			e.log.Debug("terminate failed", zap.Int("pid", pid), zap.Error(err))
		}
	}

	gone := clock.PollUntil(e.clk, t.Kill, t.KillPoll, func() bool {
		left, err := e.p.Processes.FindProcesses(exe)
		return err == nil && len(left) == 0
	})
	if !gone {
		return fmt.Errorf("%s still running after %s", exe, t.Kill)
	}
	e.clk.Sleep(t.KillSettle)
	return nil
}

// Launch starts the app and waits for its main window.
func (e *Engine) Launch() error {
	t := e.cfg.Timeouts
	if err := e.p.Processes.Launch(e.cfg.Target.LaunchName); err != nil {
		return fmt.Errorf("launch %s: %w", e.cfg.Target.LaunchName, err)
	}

	var found model.Window
	ok := clock.PollUntil(e.clk, t.Launch, t.LaunchPoll, func() bool {
		w, err := guard.FindTargetWindow(e.p, e.cfg.Target)
		if err != nil {
			return false
		}
		found = w
		return true
	})
	if !ok {
		return fmt.Errorf("no window of %s appeared within %s", e.cfg.Target.Executable, t.Launch)
	}
	e.session.Bind(found)
	e.log.Debug("window found", zap.Int("handle", found.Handle), zap.String("title", found.Title), zap.Stringer("rect", found.Rect))
	e.clk.Sleep(t.LaunchSettle)
	return nil
}
