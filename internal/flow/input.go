package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"github.com/mj1618/desktop-escalate/internal/vision"
	"go.uber.org/zap"
)

var gridOffsets = []int{0, -10, 10, -20, 20}

// ButtonState classifies the send/stop button.
func (e *Engine) ButtonState() model.ButtonState {
	l := e.cfg.Layout
	x, y := e.guard.Point(l.SendButton)
	img, err := e.p.Screen.Capture(model.Around(x, y, l.SendButtonRadius))
	if err != nil {
		e.log.Debug("button capture failed", zap.Error(err))
		return model.ButtonUnknown
	}
	state, dark := e.cfg.Vision.Button.Classify(img)
	e.log.Debug("button classified", zap.String("state", string(state)), zap.Int("dark", dark))
	return state
}

// inputFocused reports whether the text input owns keyboard focus. known is
// false when accessibility cannot answer.
func (e *Engine) inputFocused() (focused, known bool) {
	if e.p.Accessibility == nil {
		return false, false
	}
	el, err := e.p.Accessibility.FocusedElement(e.session.Handle)
	if err != nil {
		return false, false
	}
	return model.IsTextEntry(el.Role), true
}

// FocusInput puts keyboard focus in the chat input, trying clicks around
// the expected position, accessibility, the input band's strongest edge
// and finally the keyboard. Each click resolves the input against the
// window's position at the time of that click.
func (e *Engine) FocusInput() bool {
	if focused, _ := e.inputFocused(); focused {
		return true
	}
	for _, dy := range gridOffsets {
		for _, dx := range gridOffsets {
			if !e.guard.SafeClickAt(e.cfg.Layout.Input, dx, dy, "input") {
				continue
			}
			e.clk.Sleep(e.cfg.Timeouts.KeySettle)
			focused, known := e.inputFocused()
			if !known {
				e.log.Debug("focus not observable, accepting click")
				return true
			}
			if focused {
				return true
			}
		}
	}

	if e.focusInputByAccessibility() {
		return true
	}
	if e.focusInputByVariance() {
		return true
	}
	if e.cfg.Flow.KeyboardFallback {
		return e.focusInputByKeyboard()
	}
	return false
}

func (e *Engine) focusInputByAccessibility() bool {
	if e.p.Accessibility == nil {
		return false
	}
	els, err := e.p.Accessibility.ReadElements(e.session.Handle)
	if err != nil {
		return false
	}
	el, ok := model.FindFirst(els, []string{"input", "doc"}, "")
	if !ok {
		return false
	}
	if err := e.p.Accessibility.PerformAction(e.session.Handle, el.ID, "focus"); err != nil {
		e.log.Debug("input focus action failed", zap.Error(err))
		return false
	}
	e.clk.Sleep(e.cfg.Timeouts.KeySettle)
	focused, _ := e.inputFocused()
	return focused
}

func (e *Engine) focusInputByVariance() bool {
	if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
		return false
	}
	at := e.guard.Rect()
	band := e.guard.Region(e.cfg.Layout.InputBand)
	img, err := e.p.Screen.Capture(band)
	if err != nil {
		return false
	}
	x, ok := vision.ColumnVariancePeak(img)
	if !ok {
		return false
	}
	y := (band.Top + band.Bottom) / 2
	if !e.guard.SafeClickFrom(at, x, y, "input band peak") {
		return false
	}
	e.clk.Sleep(e.cfg.Timeouts.KeySettle)
	focused, _ := e.inputFocused()
	return focused
}

func (e *Engine) focusInputByKeyboard() bool {
	for i := 0; i < 3; i++ {
		if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
			return false
		}
		e.press(platform.KeyTab)
		if focused, _ := e.inputFocused(); focused {
			return true
		}
	}
	if !e.guard.SafeClickAt(e.cfg.Layout.Input, 0, 0, "input") {
		return false
	}
	e.clk.Sleep(e.cfg.Timeouts.KeySettle)
	focused, known := e.inputFocused()
	return focused || !known
}

// clearInput removes any text typed into the input.
func (e *Engine) clearInput() {
	e.press(e.cfg.Flow.SelectAllKeys)
	e.press(platform.KeyBackspace)
}

// Send submits prompt through the input once the app is idle. The clipboard
// content from before the call is restored.
func (e *Engine) Send(prompt string) error {
	if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
		return errors.New("lost focus before sending prompt")
	}
	if !e.FocusInput() {
		return errors.New("input focus not acquired")
	}

	if previous, err := e.p.Clipboard.GetText(); err == nil {
		defer func() {
			if err := e.p.Clipboard.SetText(previous); err != nil {
				e.log.Debug("clipboard restore failed", zap.Error(err))
			}
		}()
	}

	probes := e.cfg.Flow.ReadyProbes
	lastErr := fmt.Errorf("app still generating after %d readiness probes", probes)
	for probe := 1; probe <= probes; probe++ {
		state := e.ButtonState()
		if state == model.ButtonGenerating {
			e.log.Debug("app busy, waiting", zap.Int("probe", probe))
			e.clk.Sleep(e.cfg.Timeouts.ReadyProbe)
			e.guard.SafeClickAt(e.cfg.Layout.Input, 0, 0, "input")
			continue
		}

		if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
			return errors.New("lost focus while typing the prompt")
		}
		e.clearInput()
		if err := e.p.Clipboard.SetText(prompt); err != nil {
			return fmt.Errorf("stage prompt on clipboard: %w", err)
		}
		e.press(e.cfg.Flow.PasteKeys)

		if e.cfg.Flow.VerifyPaste && !e.pasteVerified(prompt) {
			lastErr = errors.New("pasted prompt does not match")
			e.clk.Sleep(e.cfg.Timeouts.ReadyProbe)
			continue
		}

		if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
			return errors.New("lost focus before submitting prompt")
		}
		e.press(platform.KeyEnter)
		if e.ButtonState() == model.ButtonReady {
			lastErr = errors.New("prompt still in the input after enter")
			e.clk.Sleep(e.cfg.Timeouts.ReadyProbe)
			continue
		}
		e.log.Info("prompt submitted", zap.Int("chars", len(prompt)), zap.Int("probe", probe))
		return nil
	}
	return lastErr
}

func (e *Engine) pasteVerified(prompt string) bool {
	e.press(e.cfg.Flow.SelectAllKeys)
	e.press(e.cfg.Flow.CopySelectionKeys)
	got, err := e.p.Clipboard.GetText()
	if err != nil {
		return false
	}
	if strings.TrimSpace(got) != strings.TrimSpace(prompt) {
		e.log.Debug("paste mismatch", zap.Int("want", len(prompt)), zap.Int("got", len(got)))
		return false
	}
	return true
}
