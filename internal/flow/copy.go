package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"go.uber.org/zap"
)

var errNothingCopied = errors.New("response could not be copied")

// Copy copies the latest reply through its copy control and returns the
// clipboard text. Each attempt starts from a viable foreground window.
func (e *Engine) Copy() (string, error) {
	var text, short string
	ok := e.guard.RetryWithRecovery("copy response", e.cfg.Flow.CopyAttempts, func() (bool, error) {
		got, err := e.copyOnce()
		if err != nil {
			if got != "" {
				short = got
			}
			return false, err
		}
		text = got
		return true, nil
	})
	if ok {
		return text, nil
	}
	if short != "" {
		return "", fmt.Errorf("copied response too short (%d chars)", len(strings.TrimSpace(short)))
	}
	return "", errNothingCopied
}

func (e *Engine) copyOnce() (string, error) {
	content := e.guard.Region(e.cfg.Layout.Content)
	cx, cy := (content.Left+content.Right)/2, (content.Top+content.Bottom)/2
	if err := e.p.Inputter.Scroll(cx, cy, 0, -10*e.cfg.Flow.ScrollAmount); err != nil {
		e.log.Debug("scroll to end failed", zap.Error(err))
	}
	e.clk.Sleep(e.cfg.Timeouts.ScrollSettle)

	if !e.guard.SafeClickAt(e.cfg.Layout.Input, 0, 0, "copy anchor") {
		return "", errors.New("anchor click failed")
	}
	e.clk.Sleep(e.cfg.Timeouts.CopySettle)

	var last string
	for _, try := range []func() (bool, error){e.copyByTabbing, e.copyByAccessibility, e.copyByShortcut} {
		activated, err := try()
		if err != nil {
			e.log.Debug("copy strategy failed", zap.Error(err))
		}
		if !activated {
			continue
		}
		text := e.readClipboard()
		if len(strings.TrimSpace(text)) > e.cfg.Flow.MinCopyLength {
			e.log.Info("response copied", zap.Int("chars", len(text)))
			return text, nil
		}
		if text != "" {
			last = text
		}
	}
	if last != "" {
		return last, fmt.Errorf("copied response too short (%d chars)", len(strings.TrimSpace(last)))
	}
	return "", errNothingCopied
}

func (e *Engine) readClipboard() string {
	e.clk.Sleep(e.cfg.Timeouts.CopySettle)
	text, err := e.p.Clipboard.GetText()
	if err != nil {
		e.log.Debug("clipboard read failed", zap.Error(err))
		return ""
	}
	return text
}

// copyByTabbing walks focus backwards from the input to the copy control.
// Controls that would change the conversation are passed over, never
// activated.
func (e *Engine) copyByTabbing() (bool, error) {
	if e.p.Accessibility == nil {
		return false, errors.New("accessibility not available")
	}
	f := e.cfg.Flow
	for i := 0; i < f.UncheckedTabs; i++ {
		e.press(platform.Chord(platform.KeyShift, platform.KeyTab))
	}
	for hop := 0; hop <= f.CheckedTabs; hop++ {
		el, err := e.p.Accessibility.FocusedElement(e.session.Handle)
		if err != nil {
			return false, fmt.Errorf("read focused control: %w", err)
		}
		name := strings.ToLower(el.Name)
		switch {
		case el.Role != "btn":
			return false, fmt.Errorf("tabbed past the buttons to %q", el.Name)
		case strings.Contains(name, strings.ToLower(f.CopyControl)):
			if err := e.p.Clipboard.Clear(); err != nil {
				return false, err
			}
			if !e.guard.EnsureForeground(f.FocusAttempts) {
				return false, errors.New("no foreground for copy control")
			}
			e.press(platform.KeyEnter)
			return true, nil
		case e.dangerous(name):
			e.log.Debug("skipping control", zap.String("name", el.Name))
		}
		if hop < f.CheckedTabs {
			e.press(platform.Chord(platform.KeyShift, platform.KeyTab))
		}
	}
	return false, errors.New("copy control not reached")
}

func (e *Engine) copyByAccessibility() (bool, error) {
	if e.p.Accessibility == nil {
		return false, errors.New("accessibility not available")
	}
	els, err := e.p.Accessibility.ReadElements(e.session.Handle)
	if err != nil {
		return false, err
	}
	el, ok := model.FindFirst(els, []string{"btn"}, e.cfg.Flow.CopyControl)
	if !ok {
		return false, errors.New("no copy control in the accessibility tree")
	}
	if err := e.p.Clipboard.Clear(); err != nil {
		return false, err
	}
	if err := e.p.Accessibility.PerformAction(e.session.Handle, el.ID, "press"); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) copyByShortcut() (bool, error) {
	if err := e.p.Clipboard.Clear(); err != nil {
		return false, err
	}
	if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
		return false, errors.New("no foreground for copy shortcut")
	}
	return true, e.keys(e.cfg.Flow.CopyKeys)
}

func (e *Engine) dangerous(name string) bool {
	for _, d := range e.cfg.Flow.DangerousControls {
		if strings.Contains(name, strings.ToLower(d)) {
			return true
		}
	}
	return false
}
