package guard

import (
	"errors"
	"testing"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/platform/simdesk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDesk(t *testing.T) (*simdesk.Desktop, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	d := simdesk.New(clk)
	d.AddProject("", "General")
	d.Start()
	return d, clk
}

func newGuard(t *testing.T, d *simdesk.Desktop, clk *clock.Fake, mutate func(*config.Config)) *Guardrail {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	g := New(d.Provider(), &model.WindowSession{}, clk, cfg, nil)
	require.True(t, g.RefreshHandle())
	return g
}

func TestFindTargetWindow_SkipsHelperWindow(t *testing.T) {
	d, _ := newDesk(t)
	w, err := FindTargetWindow(d.Provider(), config.Default().Target)
	require.NoError(t, err)
	assert.Equal(t, d.Handle(), w.Handle)
	assert.Equal(t, "ChatGPT", w.Title)
	assert.Equal(t, model.Rect{Left: 100, Top: 50, Right: 1100, Bottom: 850}, w.Rect)
}

func TestFindTargetWindow_NotRunning(t *testing.T) {
	clk := clock.NewFake(time.Now())
	d := simdesk.New(clk)
	_, err := FindTargetWindow(d.Provider(), config.Default().Target)
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestIsWindowViable(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)
	assert.True(t, g.IsWindowViable())

	d.Minimize()
	assert.False(t, g.IsWindowViable())
	assert.False(t, d.IsForeground())

	empty := New(d.Provider(), &model.WindowSession{}, clk, config.Default(), nil)
	assert.False(t, empty.IsWindowViable())
}

func TestEnsureForeground_FastPath(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)
	clicks := d.Clicks

	assert.True(t, g.EnsureForeground(3))
	assert.Equal(t, clicks, d.Clicks)
	assert.Zero(t, clk.Slept())
}

func TestEnsureForeground_Recovers(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*simdesk.Desktop)
		cfg   func(*config.Config)
	}{
		{"plain set-foreground", func(d *simdesk.Desktop) { d.Defocus() }, func(c *config.Config) { c.Privileges.StealFocus = false }},
		{"focus steal", func(d *simdesk.Desktop) { d.Defocus(); d.PlainFocusBlocked = true }, nil},
		{"title bar click", func(d *simdesk.Desktop) { d.Defocus(); d.PlainFocusBlocked = true; d.CanSteal = false }, nil},
		{"restore minimized", func(d *simdesk.Desktop) { d.Minimize() }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, clk := newDesk(t)
			g := newGuard(t, d, clk, tt.cfg)
			tt.setup(d)

			require.True(t, g.EnsureForeground(3))
			assert.True(t, d.IsForeground())
			assert.Equal(t, d.Geometry, g.Rect())
		})
	}
}

func TestEnsureForeground_FailsWhenLocked(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)
	d.StealFocusAway()

	assert.False(t, g.EnsureForeground(3))
	assert.False(t, d.IsForeground())
	assert.Greater(t, clk.Slept(), time.Duration(0))
}

func TestRetryWithRecovery_LinearBackoff(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)

	calls := 0
	ok := g.RetryWithRecovery("never", 3, func() (bool, error) {
		calls++
		return false, nil
	})
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
	// 1×500ms + 2×500ms between the three attempts.
	assert.Equal(t, 1500*time.Millisecond, clk.Slept())
}

func TestRetryWithRecovery_RecoversPanicAndError(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)

	calls := 0
	ok := g.RetryWithRecovery("flaky", 3, func() (bool, error) {
		calls++
		switch calls {
		case 1:
			panic("boom")
		case 2:
			return false, errors.New("transient")
		}
		return true, nil
	})
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestRetryWithRecovery_PanicEveryAttempt(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)

	calls := 0
	var ok bool
	require.NotPanics(t, func() {
		ok = g.RetryWithRecovery("always panics", 4, func() (bool, error) {
			calls++
			panic("boom")
		})
	})
	assert.False(t, ok)
	assert.Equal(t, 4, calls)
}

func TestRetryWithRecovery_RefreshesHandleAfterRestart(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)
	old := g.Session().Handle
	gen := g.Session().Generation

	d.LaunchDelay = 0
	require.NoError(t, d.Terminate(4001))
	require.NoError(t, d.Launch("ChatGPT"))

	ok := g.RetryWithRecovery("after restart", 2, func() (bool, error) { return true, nil })
	assert.True(t, ok)
	assert.NotEqual(t, old, g.Session().Handle)
	assert.Equal(t, d.Handle(), g.Session().Handle)
	assert.Greater(t, g.Session().Generation, gen)
}

func TestSafeClick(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)

	assert.True(t, g.SafeClick(600, 714, "input"))
	assert.Equal(t, "input", d.Focus())

	d.StealFocusAway()
	assert.False(t, g.SafeClick(600, 714, "input"))
}

var movedGeometry = model.Rect{Left: 150, Top: 80, Right: 1150, Bottom: 880}

func TestSafeClickAt_ResolvesAfterWindowMoved(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)
	input := config.DefaultLayout().Input

	x, y := g.Point(input)
	d.Geometry = movedGeometry
	require.True(t, g.SafeClick(x, y, "stale input"))
	assert.Empty(t, d.Focus(), "a point resolved before the move misses the input")

	require.True(t, g.SafeClickAt(input, 0, 0, "input"))
	assert.Equal(t, "input", d.Focus())
	assert.Equal(t, movedGeometry, g.Rect())
}

func TestSafeClickFrom_TranslatesByWindowMovement(t *testing.T) {
	d, clk := newDesk(t)
	g := newGuard(t, d, clk, nil)
	origin := g.Rect()

	d.Geometry = movedGeometry
	require.True(t, g.SafeClickFrom(origin, 600, 714, "input"))
	assert.Equal(t, "input", d.Focus())

	r := g.Follow(origin, model.Rect{Left: 250, Top: 690, Right: 950, Bottom: 738})
	assert.Equal(t, model.Rect{Left: 300, Top: 720, Right: 1000, Bottom: 768}, r)
	assert.True(t, g.Follow(origin, model.Rect{}).Empty())
}

func TestBlockInput(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		d, clk := newDesk(t)
		d.CanBlock = true
		g := newGuard(t, d, clk, nil)
		release := g.BlockInput()
		release()
		assert.Empty(t, d.BlockCalls)
	})

	t.Run("enabled", func(t *testing.T) {
		d, clk := newDesk(t)
		d.CanBlock = true
		g := newGuard(t, d, clk, func(c *config.Config) { c.Privileges.BlockInput = true })
		release := g.BlockInput()
		assert.True(t, d.InputBlocked())
		release()
		release()
		assert.False(t, d.InputBlocked())
		assert.Equal(t, []bool{true, false}, d.BlockCalls)
	})

	t.Run("capability absent", func(t *testing.T) {
		d, clk := newDesk(t)
		g := newGuard(t, d, clk, func(c *config.Config) { c.Privileges.BlockInput = true })
		release := g.BlockInput()
		release()
		assert.Empty(t, d.BlockCalls)
	})
}
