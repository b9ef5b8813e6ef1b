package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRejectsNonPositiveDuration(t *testing.T) {
	c := New(60)
	assert.Error(t, c.Start(0))
	assert.Error(t, c.Start(-5))
	assert.Equal(t, Idle, c.State())
}

func TestTickCountsDownAndExpiresOnce(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Start(3))

	prev := c.Remaining()
	expiries := 0
	for i := 0; i < 10; i++ {
		if c.Tick(c.Epoch()) {
			expiries++
			assert.Equal(t, 0, c.Remaining(), "expiry must happen at zero")
		}
		assert.LessOrEqual(t, c.Remaining(), prev)
		assert.GreaterOrEqual(t, c.Remaining(), 0)
		prev = c.Remaining()
	}
	assert.Equal(t, 1, expiries)
	assert.Equal(t, Expired, c.State())
	assert.Equal(t, 3, c.Elapsed())
}

func TestStaleEpochTickIsIgnored(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Start(10))
	stale := c.Epoch()
	require.True(t, c.Pause())
	require.True(t, c.Resume())

	assert.False(t, c.Tick(stale))
	assert.Equal(t, 10, c.Remaining())

	c.Tick(c.Epoch())
	assert.Equal(t, 9, c.Remaining())
}

func TestPauseHoldsRemainingTime(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Start(5))
	c.Tick(c.Epoch())
	require.True(t, c.Pause())
	assert.False(t, c.Pause())

	epoch := c.Epoch()
	for i := 0; i < 3; i++ {
		c.Tick(epoch)
	}
	assert.Equal(t, 4, c.Remaining())
	assert.Equal(t, Paused, c.State())

	require.True(t, c.Resume())
	assert.False(t, c.Resume())
	c.Tick(c.Epoch())
	assert.Equal(t, 3, c.Remaining())
}

func TestStopAndReset(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Start(600))
	for i := 0; i < 555; i++ {
		c.Tick(c.Epoch())
	}
	c.Stop()
	assert.Equal(t, Stopped, c.State())
	assert.Equal(t, 45, c.Remaining())
	assert.Equal(t, 555, c.Elapsed())
	c.Tick(c.Epoch())
	assert.Equal(t, 45, c.Remaining())

	c.Reset(120)
	assert.Equal(t, Stopped, c.State())
	assert.Equal(t, 120, c.Remaining())
	require.NoError(t, c.Start(120))
	assert.True(t, c.Running())
}

func TestExpiredIsTerminalUntilReset(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Start(1))
	require.True(t, c.Tick(c.Epoch()))
	assert.False(t, c.Pause())
	assert.False(t, c.Resume())
	c.Stop()
	assert.Equal(t, Expired, c.State())
	assert.False(t, c.Tick(c.Epoch()))
	assert.Error(t, c.Start(10))

	c.Reset(10)
	assert.NoError(t, c.Start(10))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "30:00", Format(1800))
	assert.Equal(t, "09:15", Format(555))
	assert.Equal(t, "00:00", Format(-3))
}
