package flow

import (
	"context"
	"testing"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/ocr"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"github.com/mj1618/desktop-escalate/internal/platform/simdesk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, setup func(*simdesk.Desktop), mutate func(*config.Config)) (*simdesk.Desktop, *clock.Fake, *Engine) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	d := simdesk.New(clk)
	d.AddProject("", "General notes")
	d.AddProject("Alpha Research")
	d.AddProject("Agent Expert Help", "o3 test", "Latency review")
	d.AddProject("Budget", "Quarterly plan")
	if setup != nil {
		setup(d)
	}

	cfg := config.Default()
	cfg.OCR = ocr.Options{Scale: 1}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := ocr.FromEngine(d.OCREngine(), cfg.OCR, nil)
	require.NoError(t, err)
	return d, clk, New(d.Provider(), svc, clk, cfg, nil)
}

// openThread attaches to a running app and opens a conversation of the
// default list.
func openThread(t *testing.T, d *simdesk.Desktop, e *Engine, name string) {
	t.Helper()
	require.NoError(t, e.Attach())
	require.NoError(t, e.OpenPanel())
	require.NoError(t, e.SelectConversation(context.Background(), name))
	require.Equal(t, name, d.ActiveThread())
}

func TestRun_HappyPath(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)

	res := e.Run(context.Background(), Request{
		Project:      "Agent Expert Help",
		Conversation: "o3 test",
		Prompt:       "Summarise the latency findings.",
	})

	require.True(t, res.Success, res.Error)
	thread := d.Thread("Agent Expert Help", "o3 test")
	require.NotNil(t, thread)
	assert.Equal(t, thread.LastResponse, res.Response)
	assert.Equal(t, []string{"Summarise the latency findings."}, thread.Prompts)
	assert.Len(t, res.Steps, len(model.Steps))
	for i, s := range res.Steps {
		assert.Equal(t, model.Steps[i], s.Step)
		assert.True(t, s.Success)
	}
	assert.Empty(t, d.DangerousPushes)
	assert.Equal(t, 1, d.Launches)
}

func TestRun_RestartsRunningApp(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()

	res := e.Run(context.Background(), Request{Conversation: "General notes", Prompt: "hello there"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, d.Terminations)
	assert.Equal(t, 2, d.Launches)
	assert.Equal(t, "General notes", d.ActiveThread())
}

func TestRun_InvalidRequest(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)

	res := e.Run(context.Background(), Request{Conversation: "o3 test"})
	assert.False(t, res.Success)
	assert.Equal(t, model.ReasonInvalidConfig, res.Reason)
	assert.Contains(t, res.Error, "message is required")

	res = e.Run(context.Background(), Request{Prompt: "hi"})
	assert.Contains(t, res.Error, "conversation is required")
	assert.Zero(t, d.Launches)
}

func TestRun_StopsAtFirstFailedStep(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*simdesk.Desktop)
		req   Request
		step  model.Step
		err   string
	}{
		{
			name:  "terminate refused",
			setup: func(d *simdesk.Desktop) { d.Start(); d.TerminateFails = true },
			req:   Request{Conversation: "o3 test", Prompt: "hi"},
			step:  model.StepKill,
			err:   "still running",
		},
		{
			name:  "launch fails",
			setup: func(d *simdesk.Desktop) { d.LaunchFails = true },
			req:   Request{Conversation: "o3 test", Prompt: "hi"},
			step:  model.StepLaunch,
			err:   "launch ChatGPT",
		},
		{
			name:  "window never shows",
			setup: func(d *simdesk.Desktop) { d.LaunchDelay = time.Minute },
			req:   Request{Conversation: "o3 test", Prompt: "hi"},
			step:  model.StepLaunch,
			err:   "no window",
		},
		{
			name: "unknown project",
			req:  Request{Project: "Nonexistent Space", Conversation: "o3 test", Prompt: "hi"},
			step: model.StepProject,
			err:  "not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, e := newEngine(t, tt.setup, nil)
			res := e.Run(context.Background(), tt.req)
			require.False(t, res.Success)
			assert.Equal(t, tt.step, res.FailedStep)
			assert.Contains(t, res.Error, tt.err)
			last, ok := res.LastOutcome()
			require.True(t, ok)
			assert.Equal(t, tt.step, last.Step)
			assert.False(t, last.Success)
		})
	}
}

func TestRun_MissingBackend(t *testing.T) {
	d, clk, _ := newEngine(t, nil, nil)
	p := d.Provider()
	p.Inputter = nil
	svc, err := ocr.FromEngine(d.OCREngine(), ocr.Options{Scale: 1}, nil)
	require.NoError(t, err)
	e := New(p, svc, clk, config.Default(), nil)

	res := e.Run(context.Background(), Request{Conversation: "o3 test", Prompt: "hello"})
	assert.False(t, res.Success)
	assert.Equal(t, model.ReasonInvalidConfig, res.Reason)
	assert.Equal(t, model.StepNone, res.FailedStep)
	assert.Empty(t, res.Steps)
	assert.Contains(t, res.Error, "input simulation not available")
	assert.Zero(t, d.Launches)
	assert.Zero(t, d.Terminations)

	d.Start()
	err = e.Attach()
	assert.ErrorIs(t, err, platform.ErrBackendMissing)
	assert.ErrorContains(t, err, "input simulation not available")
}

func TestRun_Cancelled(t *testing.T) {
	_, _, e := newEngine(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Run(ctx, Request{Conversation: "o3 test", Prompt: "hi"})
	assert.False(t, res.Success)
	assert.Equal(t, model.StepKill, res.FailedStep)
	assert.Contains(t, res.Error, "cancelled")
}

func TestRun_BlocksInputForTheWholeFlow(t *testing.T) {
	d, _, e := newEngine(t,
		func(d *simdesk.Desktop) { d.CanBlock = true },
		func(c *config.Config) { c.Privileges.BlockInput = true })

	res := e.Run(context.Background(), Request{Conversation: "General notes", Prompt: "hello there"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []bool{true, false}, d.BlockCalls)
	assert.False(t, d.InputBlocked())
}

func TestFollowup(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	res := e.Run(context.Background(), Request{Conversation: "General notes", Prompt: "first question"})
	require.True(t, res.Success, res.Error)

	res = e.Followup(context.Background(), "second question", 0)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"first question", "second question"}, d.Thread("", "General notes").Prompts)
	require.Len(t, res.Steps, 3)
	assert.Equal(t, model.StepSend, res.Steps[0].Step)
	assert.Equal(t, 1, d.Launches)

	res = e.Followup(context.Background(), "  ", 0)
	assert.Equal(t, model.ReasonInvalidConfig, res.Reason)
}

func TestAttach(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	assert.Error(t, e.Attach())

	d.Start()
	require.NoError(t, e.Attach())
	assert.Equal(t, d.Handle(), e.Session().Handle)
}

func TestOpenPanel_SkipsWhenOpen(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	require.NoError(t, e.Attach())

	assert.False(t, e.PanelOpen())
	require.NoError(t, e.OpenPanel())
	assert.True(t, d.PanelOpen())

	clicks := d.Clicks
	require.NoError(t, e.OpenPanel())
	assert.Equal(t, clicks, d.Clicks)
}

var movedGeometry = model.Rect{Left: 150, Top: 80, Right: 1150, Bottom: 880}

func TestOpenPanel_AfterWindowMoved(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	require.NoError(t, e.Attach())
	d.Geometry = movedGeometry

	require.NoError(t, e.OpenPanel())
	assert.True(t, d.PanelOpen())
	assert.Equal(t, movedGeometry, e.Session().Rect)
}

func TestSelectConversation_AfterWindowMoved(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	require.NoError(t, e.Attach())
	require.NoError(t, e.OpenPanel())
	d.Geometry = movedGeometry

	require.NoError(t, e.SelectProject(context.Background(), "Agent Expert Help"))
	assert.Equal(t, "Agent Expert Help", d.Project())
	require.NoError(t, e.SelectConversation(context.Background(), "o3 test"))
	assert.Equal(t, "o3 test", d.ActiveThread())
}

func TestConversationOpen_MisreadTitle(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	require.NoError(t, e.Attach())

	d.SetTitle("Latncy reveiw")
	assert.True(t, e.conversationOpen("Latency review"))
	assert.False(t, e.conversationOpen("Quarterly plan"))
}

func TestSelectProject_EmptyIsSkipped(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	require.NoError(t, e.Attach())

	require.NoError(t, e.SelectProject(context.Background(), " "))
	assert.Zero(t, d.Clicks)
}

func TestSelectConversation_QuickSearchFallback(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	require.NoError(t, e.Attach())
	require.NoError(t, e.OpenPanel())

	// "Quarterly plan" lives in another project, so only search finds it.
	require.NoError(t, e.SelectConversation(context.Background(), "Quarterly plan"))
	assert.Equal(t, "Quarterly plan", d.ActiveThread())
}

func TestSelectConversation_NotFound(t *testing.T) {
	d, _, e := newEngine(t, nil, func(c *config.Config) { c.Flow.QuickSearch = false })
	d.Start()
	require.NoError(t, e.Attach())

	err := e.SelectConversation(context.Background(), "Quarterly plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `conversation "Quarterly plan" not found`)
	assert.Empty(t, d.ActiveThread())
}

func TestSend(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*simdesk.Desktop)
		mutate func(*config.Config)
		before func(*simdesk.Desktop)
	}{
		{name: "plain"},
		{name: "stray text is cleared", before: func(d *simdesk.Desktop) { d.TypeStray("half typed") }},
		{name: "dead input click", setup: func(d *simdesk.Desktop) { d.InputClickDead = true }},
		{name: "no accessibility", setup: func(d *simdesk.Desktop) { d.AXDisabled = true }},
		{name: "paste verified", mutate: func(c *config.Config) { c.Flow.VerifyPaste = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, e := newEngine(t, tt.setup, tt.mutate)
			d.Start()
			openThread(t, d, e, "General notes")
			if tt.before != nil {
				tt.before(d)
			}
			require.NoError(t, d.SetText("user clipboard"))

			require.NoError(t, e.Send("What changed since Monday?"))
			assert.Equal(t, []string{"What changed since Monday?"}, d.Submitted)
			assert.Empty(t, d.Input())
			assert.True(t, d.Generating())

			clip, _ := d.GetText()
			assert.Equal(t, "user clipboard", clip)
		})
	}
}

func TestSend_AfterWindowMoved(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	d.Geometry = movedGeometry

	require.NoError(t, e.Send("hello"))
	assert.Equal(t, []string{"hello"}, d.Submitted)
	assert.Empty(t, d.Input())
}

func TestSend_WaitsForPreviousGeneration(t *testing.T) {
	d, _, e := newEngine(t, func(d *simdesk.Desktop) { d.GenerateFor = 2 * time.Second }, nil)
	d.Start()
	openThread(t, d, e, "General notes")

	require.NoError(t, e.Send("first"))
	require.NoError(t, e.Send("second"))
	assert.Equal(t, []string{"first", "second"}, d.Submitted)
}

func TestSend_StillGenerating(t *testing.T) {
	d, _, e := newEngine(t, func(d *simdesk.Desktop) { d.GenerateFor = 10 * time.Minute }, nil)
	d.Start()
	openThread(t, d, e, "General notes")

	require.NoError(t, e.Send("first"))
	err := e.Send("second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still generating")
	assert.Len(t, d.Submitted, 1)
}

func TestSend_FocusStolen(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	d.StealFocusAway()

	err := e.Send("hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lost focus")
	assert.Empty(t, d.Submitted)
}

func TestButtonState(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")

	assert.Equal(t, model.ButtonIdle, e.ButtonState())
	d.TypeStray("draft")
	assert.Equal(t, model.ButtonReady, e.ButtonState())
	require.NoError(t, e.Send("go"))
	assert.Equal(t, model.ButtonGenerating, e.ButtonState())
}

func TestWait(t *testing.T) {
	d, clk, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	require.NoError(t, e.Send("hello"))

	start := clk.Now()
	require.NoError(t, e.Wait(0))
	assert.False(t, d.Generating())
	// Four seconds of generation plus three idle polls.
	assert.GreaterOrEqual(t, clk.Now().Sub(start), 4*time.Second)
	assert.Less(t, clk.Now().Sub(start), 10*time.Second)
}

func TestWait_NeverGenerating(t *testing.T) {
	d, clk, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")

	start := clk.Now()
	require.NoError(t, e.Wait(time.Minute))
	// One settle and five idle readings.
	assert.GreaterOrEqual(t, clk.Now().Sub(start), 3*time.Second)
}

func TestWait_ClearsStrayInput(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	d.TypeStray("oops")

	require.NoError(t, e.Wait(time.Minute))
	assert.Empty(t, d.Input())
}

func TestWait_UnreadableButtonResetsIdle(t *testing.T) {
	d, clk, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")

	start := clk.Now()
	clk.OnSleep(func(now time.Time) {
		since := now.Sub(start)
		d.CaptureFails = since >= 2*time.Second && since < 4*time.Second
	})

	require.NoError(t, e.Wait(time.Minute))
	// Two idle readings before the blackout are discarded, so five fresh
	// ones are needed after it.
	assert.GreaterOrEqual(t, clk.Now().Sub(start), 6*time.Second)
	assert.False(t, d.CaptureFails)
}

func TestWait_Timeout(t *testing.T) {
	d, _, e := newEngine(t, func(d *simdesk.Desktop) { d.GenerateFor = time.Hour }, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	require.NoError(t, e.Send("long job"))

	err := e.Wait(30 * time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not complete after 30s")
}

func TestWait_FocusLosses(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	require.NoError(t, e.Send("hello"))
	d.StealFocusAway()

	err := e.Wait(10 * time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lost focus 10 times")
}

func TestCopy(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*simdesk.Desktop)
	}{
		{name: "tabbing"},
		{name: "shortcut without accessibility", setup: func(d *simdesk.Desktop) { d.AXDisabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, e := newEngine(t, tt.setup, nil)
			d.Start()
			openThread(t, d, e, "General notes")
			require.NoError(t, e.Send("hello"))
			require.NoError(t, e.Wait(0))

			text, err := e.Copy()
			require.NoError(t, err)
			assert.Equal(t, d.Thread("", "General notes").LastResponse, text)
			assert.Empty(t, d.DangerousPushes)
			assert.Positive(t, d.ChatScrolls)
		})
	}
}

func TestCopyByTabbing_RestoresForegroundBeforeEnter(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	require.NoError(t, e.Send("hello"))
	require.NoError(t, e.Wait(0))
	require.True(t, e.guard.SafeClickAt(e.cfg.Layout.Input, 0, 0, "copy anchor"))

	d.OnFocusRead = func(d *simdesk.Desktop, focus string) {
		if focus == "Copy" {
			d.Defocus()
		}
	}
	activated, err := e.copyByTabbing()
	require.NoError(t, err)
	assert.True(t, activated)
	assert.True(t, d.IsForeground())

	clip, _ := d.GetText()
	assert.Equal(t, d.Thread("", "General notes").LastResponse, clip)
	assert.Empty(t, d.DangerousPushes)
}

func TestCopyByTabbing_NoForeground(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	require.NoError(t, e.Send("hello"))
	require.NoError(t, e.Wait(0))
	require.True(t, e.guard.SafeClickAt(e.cfg.Layout.Input, 0, 0, "copy anchor"))

	d.OnFocusRead = func(d *simdesk.Desktop, focus string) {
		if focus == "Copy" {
			d.StealFocusAway()
		}
	}
	activated, err := e.copyByTabbing()
	require.Error(t, err)
	assert.False(t, activated)
	assert.Contains(t, err.Error(), "no foreground for copy control")
	assert.Empty(t, d.DangerousPushes)
}

func TestCopy_NothingToCopy(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)
	d.Start()
	openThread(t, d, e, "General notes")

	_, err := e.Copy()
	require.Error(t, err)
	assert.Equal(t, "response could not be copied", err.Error())
	assert.Empty(t, d.DangerousPushes)
}

func TestCopy_ShortResponse(t *testing.T) {
	d, _, e := newEngine(t, func(d *simdesk.Desktop) {
		d.Responder = func(string, int) string { return "ok" }
	}, nil)
	d.Start()
	openThread(t, d, e, "General notes")
	require.NoError(t, e.Send("hello"))
	require.NoError(t, e.Wait(0))

	_, err := e.Copy()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short (2 chars)")
}

func TestProbe(t *testing.T) {
	d, _, e := newEngine(t, nil, nil)

	a := e.Probe()
	assert.Empty(t, a.Missing)
	assert.False(t, a.Running)
	assert.Nil(t, a.Window)
	assert.True(t, a.OCRReady)

	d.Start()
	a = e.Probe()
	assert.True(t, a.Running)
	require.NotNil(t, a.Window)
	assert.Equal(t, d.Handle(), a.Window.Handle)
	assert.True(t, a.Foreground)
	assert.Equal(t, string(model.ButtonIdle), a.ButtonState)
	assert.True(t, a.Capabilities["steal_focus"])
	assert.False(t, a.Capabilities["block_input"])
}
