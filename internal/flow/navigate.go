package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/fuzzy"
	"github.com/mj1618/desktop-escalate/internal/locator"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"go.uber.org/zap"
)

// Focus brings the app window to the foreground.
func (e *Engine) Focus() error {
	if !e.session.Bound() && !e.guard.RefreshHandle() {
		return errors.New("no window handle")
	}
	t := e.cfg.Timeouts
	ok := clock.PollUntil(e.clk, t.Focus, t.FocusSettle, func() bool {
		return e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts)
	})
	if !ok {
		return fmt.Errorf("window could not be brought to the foreground within %s", t.Focus)
	}
	return nil
}

// PanelOpen reports whether the navigation panel's close control is drawn
// at the window's last recorded position.
func (e *Engine) PanelOpen() bool {
	l := e.cfg.Layout
	x, y := e.guard.Point(l.PanelCloseProbe)
	img, err := e.p.Screen.Capture(model.Around(x, y, l.PanelProbeRadius))
	if err != nil {
		e.log.Debug("panel probe capture failed", zap.Error(err))
		return false
	}
	return e.cfg.Vision.Panel.IsOpen(img)
}

// OpenPanel opens the navigation panel unless it is already open.
func (e *Engine) OpenPanel() error {
	focus := e.cfg.Flow.FocusAttempts
	if !e.guard.EnsureForeground(focus) {
		return errors.New("lost focus before opening the panel")
	}
	if e.PanelOpen() {
		e.log.Debug("panel already open")
		return nil
	}
	if !e.guard.SafeClickAt(e.cfg.Layout.PanelToggle, 0, 0, "panel toggle") {
		return errors.New("could not click the panel toggle")
	}
	t := e.cfg.Timeouts
	deadline := clock.Deadline(e.clk, t.Panel)
	for e.clk.Now().Before(deadline) {
		e.clk.Sleep(t.PanelPoll)
		if e.guard.EnsureForeground(focus) && e.PanelOpen() {
			return nil
		}
	}
	return errors.New("navigation panel did not open")
}

// SelectProject clicks the named project in the panel. An empty name
// leaves the default list selected.
func (e *Engine) SelectProject(ctx context.Context, project string) error {
	if strings.TrimSpace(project) == "" {
		e.log.Debug("no project requested")
		return nil
	}
	attempts := e.cfg.Flow.StepAttempts
	budget := e.cfg.Timeouts.Project / time.Duration(attempts)
	ok := e.guard.RetryWithRecovery("select project", attempts, func() (bool, error) {
		target := locator.Target{
			Text:            project,
			Region:          e.guard.Region(e.cfg.Layout.PanelScan),
			HighlightRegion: e.guard.Region(e.cfg.Layout.Panel),
		}
		if _, err := e.loc.ScanAndClick(ctx, target, budget); err != nil {
			return false, err
		}
		if !e.verifyProject(ctx, project) {
			return false, errors.New("project click not confirmed")
		}
		return true, nil
	})
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("project %q not found after %d attempts", project, attempts)
	}
	return nil
}

func (e *Engine) verifyProject(ctx context.Context, project string) bool {
	if title := e.title(); strings.Contains(strings.ToLower(title), strings.ToLower(project)) {
		e.log.Debug("project confirmed by title", zap.String("title", title))
		return true
	}
	return e.loc.VerifySelection(ctx, project, e.guard.Region(e.cfg.Layout.Panel))
}

// SelectConversation opens the named conversation from the content area,
// falling back to the in-app quick search.
func (e *Engine) SelectConversation(ctx context.Context, conversation string) error {
	attempts := e.cfg.Flow.StepAttempts
	budget := e.cfg.Timeouts.Conversation / time.Duration(attempts)
	ok := e.guard.RetryWithRecovery("select conversation", attempts, func() (bool, error) {
		target := locator.Target{Text: conversation, Region: e.guard.Region(e.cfg.Layout.Content)}
		if _, err := e.loc.ScanAndClick(ctx, target, budget); err != nil {
			return false, err
		}
		return e.conversationOpen(conversation), nil
	})
	if ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.cfg.Flow.QuickSearch && e.quickSearch(conversation) {
		return nil
	}
	return fmt.Errorf("conversation %q not found after %d attempts", conversation, attempts)
}

// conversationOpen reports whether the window title names conversation,
// either by whole words or as a close reading of it.
func (e *Engine) conversationOpen(conversation string) bool {
	e.clk.Sleep(e.cfg.Timeouts.TitleSettle)
	title := e.title()
	if fuzzy.WordOverlap(conversation, title, fuzzy.DefaultTitleThreshold) ||
		fuzzy.Contains(conversation, title, fuzzy.DefaultContainsThreshold) {
		e.log.Debug("conversation confirmed by title", zap.String("title", title))
		return true
	}
	e.log.Debug("title does not match conversation", zap.String("title", title), zap.String("conversation", conversation))
	return false
}

func (e *Engine) quickSearch(conversation string) bool {
	e.log.Info("trying quick search", zap.String("conversation", conversation))
	if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
		return false
	}
	e.press(e.cfg.Flow.QuickSearchKeys)
	if err := e.p.Inputter.TypeText(conversation, 0); err != nil {
		e.log.Debug("typing search failed", zap.Error(err))
		return false
	}
	e.clk.Sleep(e.cfg.Timeouts.KeySettle)
	if !e.guard.EnsureForeground(e.cfg.Flow.FocusAttempts) {
		return false
	}
	e.press(platform.KeyEnter)
	return e.conversationOpen(conversation)
}

func (e *Engine) title() string {
	if !e.session.Bound() {
		return ""
	}
	title, err := e.p.Windows.WindowTitle(e.session.Handle)
	if err != nil {
		return ""
	}
	e.session.Title = title
	return title
}
