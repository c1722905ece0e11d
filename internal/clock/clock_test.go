package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_SleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	c.Sleep(1500 * time.Millisecond)
	c.Sleep(-time.Second)
	c.Advance(time.Second)

	assert.Equal(t, start.Add(2500*time.Millisecond), c.Now())
	assert.Equal(t, 1500*time.Millisecond, c.Slept())
}

func TestFake_OnSleepHook(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var seen []time.Time
	c.OnSleep(func(now time.Time) { seen = append(seen, now) })

	c.Sleep(time.Second)
	c.Sleep(time.Second)

	assert.Equal(t, []time.Time{time.Unix(1, 0), time.Unix(2, 0)}, seen)
}

func TestPollUntil(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	calls := 0
	ok := PollUntil(c, 5*time.Second, 300*time.Millisecond, func() bool {
		calls++
		return calls == 4
	})
	assert.True(t, ok)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 900*time.Millisecond, c.Slept())
}

func TestPollUntil_Timeout(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	calls := 0
	ok := PollUntil(c, time.Second, 300*time.Millisecond, func() bool {
		calls++
		return false
	})
	assert.False(t, ok)
	// t=0, 0.3, 0.6, 0.9, 1.2
	assert.Equal(t, 5, calls)
}
