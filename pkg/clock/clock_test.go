package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock_SleepAdvances(t *testing.T) {
	c := Fake(epoch)
	require.NoError(t, c.Sleep(context.Background(), 5*time.Second))
	require.NoError(t, c.Sleep(context.Background(), 5*time.Second))

	assert.Equal(t, epoch.Add(10*time.Second), c.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, c.Sleeps())
}

func TestFakeClock_Step(t *testing.T) {
	c := Fake(epoch)
	c.Step = time.Second

	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch.Add(time.Second), c.Now())
	c.Advance(time.Minute)
	assert.Equal(t, epoch.Add(62*time.Second), c.Now())
}

func TestFakeClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := Fake(epoch)
	assert.ErrorIs(t, c.Sleep(ctx, time.Second), context.Canceled)
}

func TestRealClock_Sleep(t *testing.T) {
	c := Real()
	start := time.Now()
	require.NoError(t, c.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, c.Sleep(context.Background(), 0))
}
