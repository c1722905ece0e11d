// Package escalation runs the automation flow to completion: it restarts
// the whole flow after recoverable failures and only reports success for a
// reply that passes validation.
package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/flow"
	"github.com/mj1618/desktop-escalate/internal/metrics"
	"github.com/mj1618/desktop-escalate/internal/model"
	"go.uber.org/zap"
)

// HandsOffWarning ends every failure message.
const HandsOffWarning = "Keep your hands off the keyboard and mouse while the agent is working with the app: " +
	"any click or keystroke interferes with the automation. " +
	"If the problem persists, close other applications and run the escalation again."

// Runner is one engine instance. *flow.Engine implements it.
type Runner interface {
	Run(ctx context.Context, req flow.Request) model.FlowResult
	Followup(ctx context.Context, prompt string, timeout time.Duration) model.FlowResult
}

// Factory builds a runner with no state carried over from earlier runs.
type Factory func() Runner

// Controller retries whole flows.
type Controller struct {
	factory Factory
	clk     clock.Clock
	cfg     config.Escalation
	policy  Policy
	metrics *metrics.Recorder
	log     *zap.Logger
}

// New returns a Controller. rec may be nil.
func New(factory Factory, clk clock.Clock, cfg config.Escalation, rec *metrics.Recorder, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		factory: factory,
		clk:     clk,
		cfg:     cfg,
		policy:  NewPolicy(cfg.Validation),
		metrics: rec,
		log:     log.Named("escalation"),
	}
}

// Escalate runs req until a validated reply is copied, a failure is not
// recoverable or max_attempts runs have been made.
func (c *Controller) Escalate(ctx context.Context, req flow.Request) model.FlowResult {
	start := c.clk.Now()
	var last model.FlowResult
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.Restart()
			c.log.Info("restarting flow",
				zap.Int("attempt", attempt),
				zap.Int("max", c.cfg.MaxAttempts),
				zap.String("after", string(last.Reason)))
			c.clk.Sleep(c.cfg.RestartDelay)
		}
		c.metrics.Attempt()

		runner := c.factory()
		res := runner.Run(ctx, req)
		if res.Success {
			res = c.validate(ctx, runner, req, res)
		}
		res.Attempts = attempt
		if res.Success {
			c.metrics.Finished(true, c.clk.Now().Sub(start))
			c.log.Info("escalation succeeded", zap.Int("attempts", attempt), zap.Int("response_chars", len(res.Response)))
			return res
		}

		if res.Reason == model.ReasonNone {
			res.Reason = Reason(res.FailedStep, res.Error)
		}
		if n := len(res.Steps); n > 0 && !res.Steps[n-1].Success {
			res.Steps[n-1].Reason = res.Reason
		}
		c.metrics.StepFailure(res.FailedStep, res.Reason)
		c.log.Warn("attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("step", int(res.FailedStep)),
			zap.String("reason", string(res.Reason)),
			zap.String("error", res.Error))
		last = res

		if !Recoverable(res.Reason) {
			c.log.Info("failure is not recoverable", zap.String("reason", string(res.Reason)))
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	last.Error = FailureMessage(last)
	c.metrics.Finished(false, c.clk.Now().Sub(start))
	return last
}

// validate checks the copied reply. A rejected reply is asked for once more
// with the clarifying prefix in the same conversation.
func (c *Controller) validate(ctx context.Context, runner Runner, req flow.Request, res model.FlowResult) model.FlowResult {
	err := c.policy.Check(res.Response)
	c.metrics.Validation(err == nil)
	if err == nil {
		return res
	}
	c.log.Warn("response rejected, asking again", zap.Error(err))

	again := runner.Followup(ctx, c.cfg.ClarifyPrefix+req.Prompt, req.ResponseTimeout)
	res.Steps = append(res.Steps, again.Steps...)
	if !again.Success {
		res.Success = false
		res.Response = ""
		res.FailedStep = again.FailedStep
		res.Error = again.Error
		res.Reason = again.Reason
		return res
	}

	err = c.policy.Check(again.Response)
	c.metrics.Validation(err == nil)
	if err == nil {
		res.Response = again.Response
		return res
	}
	res.Success = false
	res.Response = ""
	res.FailedStep = model.StepCopy
	res.Error = fmt.Sprintf("validation failed after clarification: %v", err)
	res.Steps = append(res.Steps, model.StepOutcome{Step: model.StepCopy, Error: res.Error})
	return res
}

// FailureMessage is the user-facing summary of a failed escalation.
func FailureMessage(r model.FlowResult) string {
	return fmt.Sprintf("Escalation failed after %d attempt(s). Last failure was at step %d (%s): %s.\n\n%s",
		r.Attempts, int(r.FailedStep), r.Reason, r.Error, HandsOffWarning)
}
