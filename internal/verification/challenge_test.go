package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeBusyFlagSerializes(t *testing.T) {
	ex := NewExchange()

	require.True(t, ex.begin())
	assert.False(t, ex.begin(), "second begin while busy must fail")
	ex.end()
	assert.True(t, ex.begin())
	ex.end()
}

func TestExchangeStateTransitions(t *testing.T) {
	ex := NewExchange()
	assert.Equal(t, StateAwaitingEmail, ex.State())

	ex.markSent("user@example.com")
	assert.Equal(t, StateAwaitingCode, ex.State())
	assert.Equal(t, "user@example.com", ex.Email())

	ex.Reset()
	assert.Equal(t, StateAwaitingEmail, ex.State())
	assert.Empty(t, ex.Email())
}

func TestCountdownIsNonIncreasing(t *testing.T) {
	c := NewCountdown()
	c.Start(3)
	defer c.Stop()

	prev := c.Remaining()
	assert.Equal(t, 3, prev)

	deadline := time.After(5 * time.Second)
	for prev > 0 {
		select {
		case <-deadline:
			t.Fatal("countdown never reached zero")
		case <-time.After(100 * time.Millisecond):
		}
		cur := c.Remaining()
		assert.LessOrEqual(t, cur, prev, "countdown value increased")
		assert.GreaterOrEqual(t, cur, 0, "countdown went negative")
		prev = cur
	}
	assert.Equal(t, 0, c.Remaining())

	// Once at zero it stays at zero.
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdownStopFreezesValue(t *testing.T) {
	c := NewCountdown()
	c.Start(60)
	c.Stop()

	frozen := c.Remaining()
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, frozen, c.Remaining())
}

func TestCountdownRestartReplacesPrevious(t *testing.T) {
	c := NewCountdown()
	c.Start(60)
	c.Start(2)
	defer c.Stop()

	assert.Equal(t, 2, c.Remaining())
}

func TestCountdownZeroStart(t *testing.T) {
	c := NewCountdown()
	c.Start(0)
	assert.Equal(t, 0, c.Remaining())

	c.Start(-5)
	assert.Equal(t, 0, c.Remaining())
}
