package flow

import (
	"fmt"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/model"
	"go.uber.org/zap"
)

// Wait blocks until the reply has finished generating. A non-positive
// timeout falls back to timeouts.response.
func (e *Engine) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.cfg.Timeouts.Response
	}
	f := e.cfg.Flow
	poll := e.cfg.Timeouts.ResponsePoll
	deadline := clock.Deadline(e.clk, timeout)
	e.clk.Sleep(e.cfg.Timeouts.ResponseSettle)

	var seen bool
	var idle, losses int
	for e.clk.Now().Before(deadline) {
		if !e.guard.EnsureForeground(f.FocusAttempts) {
			losses++
			e.log.Debug("foreground lost while waiting", zap.Int("losses", losses))
			if losses >= f.MaxFocusLosses {
				return fmt.Errorf("lost focus %d times while waiting for the response", losses)
			}
			e.clk.Sleep(poll)
			continue
		}
		losses = 0

		switch e.ButtonState() {
		case model.ButtonGenerating:
			seen = true
			idle = 0
		case model.ButtonReady:
			e.log.Debug("stray input, clearing")
			if e.guard.SafeClickAt(e.cfg.Layout.Input, 0, 0, "input") {
				e.clearInput()
			}
			idle = 0
		case model.ButtonIdle:
			idle++
		default:
			// An unreadable button proves nothing about completion.
			idle = 0
		}

		if (seen && idle >= f.IdleAfterGenerating) || (!seen && idle >= f.IdleWithoutSeen) {
			e.log.Info("response complete", zap.Bool("generating_seen", seen), zap.Int("idle", idle))
			return nil
		}
		e.clk.Sleep(poll)
	}
	return fmt.Errorf("response not complete after %s", timeout)
}
