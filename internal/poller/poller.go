package poller

import (
	"context"
	"sync"
	"time"

	"onboarding-service/internal/util"
)

// FetchFunc performs one poll. Its result is handed to the OnResult
// callback; a non-nil error is logged and the result dropped.
type FetchFunc func(ctx context.Context) (interface{}, error)

// OnResultFunc consumes one successful fetch result.
type OnResultFunc func(result interface{})

// Poller invokes a fetch function on a fixed interval and delivers
// results to a callback. Start and Stop are idempotent; after Stop
// returns no further callbacks are delivered.
type Poller struct {
	interval time.Duration
	fetch    FetchFunc
	onResult OnResultFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}
}

func New(interval time.Duration, fetch FetchFunc, onResult OnResultFunc) *Poller {
	return &Poller{
		interval: interval,
		fetch:    fetch,
		onResult: onResult,
		kick:     make(chan struct{}, 1),
	}
}

// Start begins polling. The first fetch fires immediately, then every
// interval. Calling Start on a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-p.kick:
			p.poll(ctx)
		}
	}
}

// Trigger schedules an extra poll on the polling goroutine without
// waiting for the next tick. The caller never blocks: when a trigger is
// already pending the call coalesces into it, and when the poller is
// stopped the trigger is consumed by the next Start.
func (p *Poller) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Poller) poll(ctx context.Context) {
	result, err := p.fetch(ctx)
	if err != nil {
		util.Warn("Poll fetch failed",
			util.Duration("interval", p.interval),
			util.ErrorField(err))
		return
	}
	if ctx.Err() != nil {
		// Stopped while fetching; do not deliver.
		return
	}
	p.onResult(result)
}

// Stop halts polling and waits for any in-flight fetch to finish. Its
// result is not delivered.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the poller is currently started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
