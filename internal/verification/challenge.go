package verification

import (
	"sync"
	"time"
)

// State of the client-facing verification exchange.
type State int

const (
	// StateAwaitingEmail means no code has been sent yet; the exchange is
	// collecting the address to challenge.
	StateAwaitingEmail State = iota
	// StateAwaitingCode means a code is outstanding and the exchange is
	// waiting for the user to type it.
	StateAwaitingCode
)

func (s State) String() string {
	switch s {
	case StateAwaitingEmail:
		return "awaiting_email"
	case StateAwaitingCode:
		return "awaiting_code"
	default:
		return "unknown"
	}
}

// Purposes distinguish the ordinary signup challenge from the admin
// TOTP variant, which uses a longer code.
const (
	PurposeSignup = "signup"
	PurposeAdmin  = "admin"
)

// Exchange tracks one in-flight verification conversation. A busy flag
// serializes send, resend and verify so double-submits collapse into a
// single in-flight operation; callers that lose the race get an
// immediate ErrBusy instead of a queued duplicate.
type Exchange struct {
	mu    sync.Mutex
	state State
	email string
	busy  bool
}

func NewExchange() *Exchange {
	return &Exchange{state: StateAwaitingEmail}
}

func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exchange) Email() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.email
}

// begin claims the busy flag. Returns false when another operation is
// already in flight.
func (e *Exchange) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Exchange) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
}

func (e *Exchange) markSent(email string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.email = email
	e.state = StateAwaitingCode
}

// Reset returns the exchange to the address-entry state, e.g. when the
// user wants to challenge a different email.
func (e *Exchange) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.email = ""
	e.state = StateAwaitingEmail
}

// Countdown ticks a cooldown display down once per second. The value is
// cosmetic; the server-side resend lock remains authoritative. Reads are
// non-increasing between Starts and the countdown stops at exactly zero.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	done      chan struct{}
}

func NewCountdown() *Countdown {
	return &Countdown{}
}

// Start begins ticking from the given number of seconds, replacing any
// countdown already running.
func (c *Countdown) Start(seconds int) {
	c.Stop()

	c.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	if seconds == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.remaining > 0 {
					c.remaining--
				}
				finished := c.remaining == 0
				c.mu.Unlock()
				if finished {
					return
				}
			}
		}
	}()
}

// Remaining reports the seconds left on the display.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Stop halts the ticker without zeroing the displayed value.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}
