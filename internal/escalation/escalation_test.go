package escalation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/flow"
	"github.com/mj1618/desktop-escalate/internal/metrics"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/ocr"
	"github.com/mj1618/desktop-escalate/internal/platform/simdesk"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nato = []string{
	"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot",
	"Golf", "Hotel", "India", "Juliet", "Kilo", "Lima",
}

type harness struct {
	desk    *simdesk.Desktop
	clk     *clock.Fake
	cfg     config.Config
	rec     *metrics.Recorder
	ctrl    *Controller
	engines int
}

func newHarness(t *testing.T, setup func(*simdesk.Desktop)) *harness {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	d := simdesk.New(clk)
	d.AddProject("Alpha Research")
	d.AddProject("Agent Expert Help", "o3 test")
	d.AddProject("Phonetic", nato...)
	if setup != nil {
		setup(d)
	}

	cfg := config.Default()
	cfg.OCR = ocr.Options{Scale: 1}
	svc, err := ocr.FromEngine(d.OCREngine(), cfg.OCR, nil)
	require.NoError(t, err)

	h := &harness{desk: d, clk: clk, cfg: cfg, rec: metrics.New()}
	h.ctrl = New(func() Runner {
		h.engines++
		return flow.New(d.Provider(), svc, clk, cfg, nil)
	}, clk, cfg.Escalation, h.rec, nil)
	return h
}

func TestEscalate_HappyPath(t *testing.T) {
	h := newHarness(t, nil)

	res := h.ctrl.Escalate(context.Background(), flow.Request{
		Project:      "Agent Expert Help",
		Conversation: "o3 test",
		Prompt:       "Which index should the orders table use?",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, h.desk.Thread("Agent Expert Help", "o3 test").LastResponse, res.Response)
	assert.Len(t, res.Steps, len(model.Steps))
	assert.Equal(t, 1, h.engines)
	assert.NoError(t, testutil.GatherAndCompare(h.rec.Registry(), strings.NewReader(`
# HELP desktop_escalate_flow_attempts_total Full state-machine runs started.
# TYPE desktop_escalate_flow_attempts_total counter
desktop_escalate_flow_attempts_total 1
`), "desktop_escalate_flow_attempts_total"))
}

func TestEscalate_ConversationAfterOneScroll(t *testing.T) {
	h := newHarness(t, nil)

	res := h.ctrl.Escalate(context.Background(), flow.Request{
		Project:      "Phonetic",
		Conversation: "Juliet",
		Prompt:       "Spell it out.",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Juliet", h.desk.ActiveThread())
	assert.Equal(t, 1, h.desk.ListScrolls)
}

func TestEscalate_FocusLostExhaustsRestarts(t *testing.T) {
	h := newHarness(t, func(d *simdesk.Desktop) {
		d.OnConversationOpened = func(d *simdesk.Desktop, _ string) { d.StealFocusAway() }
	})

	res := h.ctrl.Escalate(context.Background(), flow.Request{
		Project:      "Agent Expert Help",
		Conversation: "o3 test",
		Prompt:       "Which index should the orders table use?",
	})

	require.False(t, res.Success)
	assert.Equal(t, model.ReasonFocusLost, res.Reason)
	assert.Equal(t, h.cfg.Escalation.MaxAttempts, res.Attempts)
	assert.Equal(t, model.StepSend, res.FailedStep)
	assert.Equal(t, h.cfg.Escalation.MaxAttempts, h.engines)
	assert.Equal(t, h.cfg.Escalation.MaxAttempts, h.desk.Launches)
	assert.Empty(t, h.desk.Submitted)
	assert.Contains(t, res.Error, "step 7 (focus_lost)")
	last, ok := res.LastOutcome()
	require.True(t, ok)
	assert.Equal(t, model.ReasonFocusLost, last.Reason)
	assert.Contains(t, res.Error, HandsOffWarning)
	assert.NoError(t, testutil.GatherAndCompare(h.rec.Registry(), strings.NewReader(`
# HELP desktop_escalate_restarts_total Runs restarted after a recoverable failure.
# TYPE desktop_escalate_restarts_total counter
desktop_escalate_restarts_total 2
`), "desktop_escalate_restarts_total"))
}

func TestEscalate_TemplateReplyIsReissued(t *testing.T) {
	h := newHarness(t, func(d *simdesk.Desktop) {
		d.Responder = func(_ string, attempt int) string {
			if attempt == 1 {
				return "Your response here"
			}
			return `{"answer": "Add a composite index on (customer_id, created_at)."}`
		}
	})

	res := h.ctrl.Escalate(context.Background(), flow.Request{
		Project:      "Agent Expert Help",
		Conversation: "o3 test",
		Prompt:       "Which index should the orders table use?",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Attempts)
	assert.Contains(t, res.Response, "composite index")
	prompts := h.desk.Thread("Agent Expert Help", "o3 test").Prompts
	require.Len(t, prompts, 2)
	assert.True(t, strings.HasPrefix(prompts[1], h.cfg.Escalation.ClarifyPrefix))
	assert.True(t, strings.HasSuffix(prompts[1], "Which index should the orders table use?"))
	assert.NoError(t, testutil.GatherAndCompare(h.rec.Registry(), strings.NewReader(`
# HELP desktop_escalate_validations_total Response validations by outcome.
# TYPE desktop_escalate_validations_total counter
desktop_escalate_validations_total{outcome="accepted"} 1
desktop_escalate_validations_total{outcome="rejected"} 1
`), "desktop_escalate_validations_total"))
}

func TestEscalate_InvalidTwiceIsHardFailure(t *testing.T) {
	h := newHarness(t, func(d *simdesk.Desktop) {
		d.Responder = func(string, int) string { return `{"note": "nothing useful here"}` }
	})

	res := h.ctrl.Escalate(context.Background(), flow.Request{Conversation: "o3 test", Project: "Agent Expert Help", Prompt: "Go"})

	require.False(t, res.Success)
	assert.Equal(t, model.ReasonInvalidResponse, res.Reason)
	assert.Equal(t, model.StepCopy, res.FailedStep)
	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, h.desk.Submitted, 2)
	last, ok := res.LastOutcome()
	require.True(t, ok)
	assert.Equal(t, model.StepCopy, last.Step)
	assert.False(t, last.Success)
	assert.Equal(t, model.ReasonInvalidResponse, last.Reason)
}

func TestEscalate_NotRecoverableStopsAtOnce(t *testing.T) {
	h := newHarness(t, nil)

	res := h.ctrl.Escalate(context.Background(), flow.Request{
		Project:      "Missing Project",
		Conversation: "o3 test",
		Prompt:       "Go",
	})

	require.False(t, res.Success)
	assert.Equal(t, model.ReasonProjectNotFound, res.Reason)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, h.engines)
	last, ok := res.LastOutcome()
	require.True(t, ok)
	assert.Equal(t, model.StepProject, last.Step)
	assert.Equal(t, model.ReasonProjectNotFound, last.Reason)
	for _, s := range res.Steps[:len(res.Steps)-1] {
		assert.Empty(t, s.Reason, "step %d succeeded", s.Step)
	}
}

func TestEscalate_InvalidRequest(t *testing.T) {
	h := newHarness(t, nil)

	res := h.ctrl.Escalate(context.Background(), flow.Request{Conversation: "o3 test"})
	require.False(t, res.Success)
	assert.Equal(t, model.ReasonInvalidConfig, res.Reason)
	assert.Equal(t, 1, res.Attempts)
	assert.Zero(t, h.desk.Launches)
}

func TestEscalate_RestartWaitsBetweenRuns(t *testing.T) {
	h := newHarness(t, func(d *simdesk.Desktop) { d.LaunchFails = true })

	res := h.ctrl.Escalate(context.Background(), flow.Request{Conversation: "o3 test", Prompt: "Go"})
	require.False(t, res.Success)
	assert.Equal(t, model.ReasonStartFailed, res.Reason)
	assert.Equal(t, h.cfg.Escalation.MaxAttempts, res.Attempts)
	assert.GreaterOrEqual(t, h.clk.Slept(), time.Duration(h.cfg.Escalation.MaxAttempts-1)*h.cfg.Escalation.RestartDelay)
}
