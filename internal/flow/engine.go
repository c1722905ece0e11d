// Package flow drives the chat app through the ordered automation steps.
// Each step verifies its own effect and retries locally; the first step to
// exhaust its retries ends the run.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/guard"
	"github.com/mj1618/desktop-escalate/internal/locator"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/ocr"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"go.uber.org/zap"
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// Request names the conversation to drive and the prompt to submit.
type Request struct {
	// Project is optional; the conversation is searched in the default list
	// when it is empty.
	Project      string
	Conversation string
	Prompt       string
	// ResponseTimeout overrides timeouts.response when positive.
	ResponseTimeout time.Duration
}

// Validate reports a missing conversation or prompt.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Conversation) == "":
		return fmt.Errorf("%w: conversation is required", ErrInvalidRequest)
	case strings.TrimSpace(r.Prompt) == "":
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	return nil
}

// Engine owns one WindowSession and everything that acts on it. Engines are
// not safe for concurrent use and are discarded after a failed run.
type Engine struct {
	p       *platform.Provider
	session *model.WindowSession
	guard   *guard.Guardrail
	loc     *locator.Locator
	ocr     *ocr.Service
	clk     clock.Clock
	cfg     config.Config
	log     *zap.Logger
}

// New returns an Engine with a fresh, unbound window session.
func New(p *platform.Provider, o *ocr.Service, clk clock.Clock, cfg config.Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	session := &model.WindowSession{}
	g := guard.New(p, session, clk, cfg, log)
	return &Engine{
		p:       p,
		session: session,
		guard:   g,
		loc:     locator.New(p, g, o, clk, cfg, log),
		ocr:     o,
		clk:     clk,
		cfg:     cfg,
		log:     log.Named("flow"),
	}
}

// Session returns the engine's window session.
func (e *Engine) Session() *model.WindowSession { return e.session }

// Guard returns the engine's guardrail.
func (e *Engine) Guard() *guard.Guardrail { return e.guard }

// Run executes every step once, in order, and stops at the first failure.
// An invalid request or a missing platform backend sets invalid_config
// with no failed step; callers classify the rest.
func (e *Engine) Run(ctx context.Context, req Request) model.FlowResult {
	result := model.FlowResult{Attempts: 1}
	if err := req.Validate(); err != nil {
		result.Error = err.Error()
		result.Reason = model.ReasonInvalidConfig
		return result
	}

	if err := e.p.Require(); err != nil {
		e.log.Warn("platform backend missing", zap.Error(err))
		result.Error = err.Error()
		result.Reason = model.ReasonInvalidConfig
		return result
	}

	release := e.guard.BlockInput()
	defer release()

	e.log.Info("flow started",
		zap.String("project", req.Project),
		zap.String("conversation", req.Conversation),
		zap.Int("prompt_chars", len(req.Prompt)))

	var response string
	steps := []step{
		{model.StepKill, e.Terminate},
		{model.StepLaunch, e.Launch},
		{model.StepFocus, e.Focus},
		{model.StepOpenPanel, e.OpenPanel},
		{model.StepProject, func() error { return e.SelectProject(ctx, req.Project) }},
		{model.StepConversation, func() error { return e.SelectConversation(ctx, req.Conversation) }},
	}
	steps = append(steps, e.exchange(req.Prompt, req.ResponseTimeout, &response)...)
	return e.runSteps(ctx, result, steps, &response)
}

// Followup sends another prompt into the conversation a successful Run
// left open and copies the new reply. Only steps 7 to 10 are executed.
func (e *Engine) Followup(ctx context.Context, prompt string, timeout time.Duration) model.FlowResult {
	result := model.FlowResult{Attempts: 1}
	if strings.TrimSpace(prompt) == "" {
		result.Error = fmt.Errorf("%w: message is required", ErrInvalidRequest).Error()
		result.Reason = model.ReasonInvalidConfig
		return result
	}
	release := e.guard.BlockInput()
	defer release()

	var response string
	return e.runSteps(ctx, result, e.exchange(prompt, timeout, &response), &response)
}

type step struct {
	id  model.Step
	run func() error
}

func (e *Engine) exchange(prompt string, timeout time.Duration, response *string) []step {
	return []step{
		{model.StepSend, func() error { return e.Send(prompt) }},
		{model.StepWait, func() error { return e.Wait(timeout) }},
		{model.StepCopy, func() error {
			text, err := e.Copy()
			*response = text
			return err
		}},
	}
}

func (e *Engine) runSteps(ctx context.Context, result model.FlowResult, steps []step, response *string) model.FlowResult {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return e.fail(result, s.id, fmt.Errorf("run cancelled: %w", err))
		}
		start := e.clk.Now()
		e.log.Info("step started", zap.Int("step", int(s.id)), zap.String("name", s.id.String()))
		if err := s.run(); err != nil {
			return e.fail(result, s.id, err)
		}
		result.Steps = append(result.Steps, model.StepOutcome{Step: s.id, Success: true})
		e.log.Info("step verified",
			zap.Int("step", int(s.id)),
			zap.String("name", s.id.String()),
			zap.Duration("elapsed", e.clk.Now().Sub(start)))
	}

	result.Success = true
	result.Response = *response
	e.log.Info("flow complete", zap.Int("response_chars", len(*response)))
	return result
}

func (e *Engine) fail(result model.FlowResult, step model.Step, err error) model.FlowResult {
	e.log.Warn("step failed", zap.Int("step", int(step)), zap.String("name", step.String()), zap.Error(err))
	result.Success = false
	result.FailedStep = step
	result.Error = err.Error()
	result.Steps = append(result.Steps, model.StepOutcome{Step: step, Error: err.Error()})
	return result
}

// Attach binds the session to the already running app without restarting
// it. Single-action commands use it in place of steps 1 and 2.
func (e *Engine) Attach() error {
	if err := e.p.Require(); err != nil {
		return err
	}
	if e.guard.IsWindowViable() {
		return nil
	}
	if !e.guard.RefreshHandle() {
		return fmt.Errorf("no window of %s is open", e.cfg.Target.Executable)
	}
	return nil
}

// Availability describes what the engine could drive right now.
type Availability struct {
	Capabilities map[string]bool `yaml:"capabilities"           json:"capabilities"`
	Running      bool            `yaml:"running"                json:"running"`
	PIDs         []int           `yaml:"pids,omitempty"         json:"pids,omitempty"`
	Window       *model.Window   `yaml:"window,omitempty"       json:"window,omitempty"`
	Foreground   bool            `yaml:"foreground"             json:"foreground"`
	OCRReady     bool            `yaml:"ocr_ready"              json:"ocr_ready"`
	Missing      string          `yaml:"missing,omitempty"      json:"missing,omitempty"`
	ButtonState  string          `yaml:"button_state,omitempty" json:"button_state,omitempty"`
}

// Probe inspects the platform and the target app without acting on it.
func (e *Engine) Probe() Availability {
	a := Availability{Capabilities: e.p.Capabilities(), OCRReady: e.ocr != nil && e.ocr.Ready()}
	if err := e.p.Require(); err != nil {
		a.Missing = err.Error()
		return a
	}
	pids, err := e.p.Processes.FindProcesses(e.cfg.Target.Executable)
	if err == nil && len(pids) > 0 {
		a.Running = true
		a.PIDs = pids
	}
	if w, err := guard.FindTargetWindow(e.p, e.cfg.Target); err == nil {
		a.Window = &w
		e.session.Bind(w)
		fg, err := e.p.Windows.ForegroundWindow()
		a.Foreground = err == nil && fg == w.Handle
		a.ButtonState = string(e.ButtonState())
	}
	return a
}

func (e *Engine) keys(combo string) error {
	keys, err := platform.ParseKeyCombo(combo)
	if err != nil {
		return err
	}
	return e.p.Inputter.KeyCombo(keys)
}

func (e *Engine) press(combo string) {
	if err := e.keys(combo); err != nil {
		e.log.Debug("key combo failed", zap.String("keys", combo), zap.Error(err))
	}
	e.clk.Sleep(e.cfg.Timeouts.KeySettle)
}
