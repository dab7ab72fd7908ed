package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerDeliversResults(t *testing.T) {
	var fetches, deliveries int64
	p := New(20*time.Millisecond,
		func(context.Context) (interface{}, error) {
			return atomic.AddInt64(&fetches, 1), nil
		},
		func(interface{}) {
			atomic.AddInt64(&deliveries, 1)
		})

	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&deliveries) >= 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt64(&fetches), atomic.LoadInt64(&deliveries))
}

func TestPollerFirstFetchIsImmediate(t *testing.T) {
	var deliveries int64
	p := New(time.Hour,
		func(context.Context) (interface{}, error) { return "x", nil },
		func(interface{}) { atomic.AddInt64(&deliveries, 1) })

	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&deliveries) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPollerTriggerForcesEarlyPoll(t *testing.T) {
	var deliveries int64
	p := New(time.Hour,
		func(context.Context) (interface{}, error) { return "x", nil },
		func(interface{}) { atomic.AddInt64(&deliveries, 1) })

	p.Start()
	defer p.Stop()

	// First immediate poll.
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&deliveries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The interval is an hour; only a trigger can produce a second poll.
	p.Trigger()
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&deliveries) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPollerTriggerNeverBlocks(t *testing.T) {
	p := New(time.Hour,
		func(context.Context) (interface{}, error) { return "x", nil },
		func(interface{}) {})

	// Not started: repeated triggers coalesce instead of blocking.
	for i := 0; i < 10; i++ {
		p.Trigger()
	}
}

func TestPollerStopHaltsDelivery(t *testing.T) {
	var deliveries int64
	p := New(10*time.Millisecond,
		func(context.Context) (interface{}, error) { return "x", nil },
		func(interface{}) { atomic.AddInt64(&deliveries, 1) })

	p.Start()
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&deliveries) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	after := atomic.LoadInt64(&deliveries)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&deliveries), "delivery after Stop")
	assert.False(t, p.Running())
}

func TestPollerFetchErrorsAreDropped(t *testing.T) {
	var deliveries int64
	var calls int64
	p := New(10*time.Millisecond,
		func(context.Context) (interface{}, error) {
			if atomic.AddInt64(&calls, 1)%2 == 0 {
				return nil, errors.New("transient")
			}
			return "ok", nil
		},
		func(result interface{}) {
			assert.Equal(t, "ok", result)
			atomic.AddInt64(&deliveries, 1)
		})

	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&deliveries) >= 2 && atomic.LoadInt64(&calls) >= 4
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPollerLifecycleIdempotent(t *testing.T) {
	p := New(10*time.Millisecond,
		func(context.Context) (interface{}, error) { return nil, nil },
		func(interface{}) {})

	p.Start()
	p.Start()
	assert.True(t, p.Running())

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	// Restart after stop works.
	p.Start()
	assert.True(t, p.Running())
	p.Stop()
}
