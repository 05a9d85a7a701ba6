// Package countdown renders the time left until a sale ends and notifies the
// subscriber once when it ends.
package countdown

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
)

const (
	Ended       = "Ended"
	DefaultTick = time.Second
)

type Options struct {
	Tick time.Duration
	// OnTick receives the display value after every evaluation.
	OnTick func(display string)
	// OnExpired fires at most once per Countdown.
	OnExpired func()
	Logger    *zap.Logger
}

type Countdown struct {
	clock   clock.Clock
	endTime time.Time
	opts    Options
	err     error

	mu      sync.Mutex
	display string
	fired   bool
	stopped bool

	ticker clock.Ticker
	done   chan struct{}
}

// Start begins a countdown towards endTime. A zero endTime resolves to Ended
// immediately; no ticker is started and OnExpired never fires.
func Start(clk clock.Clock, endTime time.Time, opts Options) *Countdown {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Countdown{
		clock:   clk,
		endTime: endTime,
		opts:    opts,
		done:    make(chan struct{}),
	}

	if endTime.IsZero() {
		c.err = domain.ErrInvalidSchedule
		c.display = Ended
		c.stopped = true
		close(c.done)
		opts.Logger.Warn("countdown has no valid end time, showing ended")
		return c
	}

	c.display = render(endTime.Sub(clk.Now()))
	c.ticker = clk.NewTicker(opts.Tick)
	go c.run()
	return c
}

func (c *Countdown) run() {
	defer c.ticker.Stop()

	// first evaluation happens right away so an already-past end time is
	// reported without waiting for a tick
	if !c.evaluate() {
		return
	}
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C():
			if !c.evaluate() {
				return
			}
		}
	}
}

// evaluate recomputes the display and delivers callbacks. Each callback is
// admitted under mu right before it runs, so none starts once Stop returned.
func (c *Countdown) evaluate() bool {
	display, ok := c.admitTick()
	if !ok {
		return false
	}
	if c.opts.OnTick != nil {
		c.opts.OnTick(display)
	}
	if c.admitExpiry() && c.opts.OnExpired != nil {
		c.opts.OnExpired()
	}
	return true
}

func (c *Countdown) admitTick() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return "", false
	}
	c.display = render(c.endTime.Sub(c.clock.Now()))
	return c.display, true
}

// admitExpiry marks the countdown fired when it has ended and is still live.
// OnTick may have called Stop or taken long enough for Stop to land.
func (c *Countdown) admitExpiry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.fired || c.endTime.After(c.clock.Now()) {
		return false
	}
	c.fired = true
	return true
}

func (c *Countdown) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Err is domain.ErrInvalidSchedule when the countdown was started without an
// end time.
func (c *Countdown) Err() error {
	return c.err
}

// Stop cancels the countdown. It is idempotent and may be called from inside
// OnTick or OnExpired. No callback starts after Stop returns; one already
// running is left to finish.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.done)
}

// DisplayAt is the text a countdown towards endTime shows at now.
func DisplayAt(now, endTime time.Time) string {
	if endTime.IsZero() {
		return Ended
	}
	return render(endTime.Sub(now))
}

func render(remaining time.Duration) string {
	if remaining <= 0 {
		return Ended
	}
	return Format(remaining)
}

// Format renders d as "1h 2m 3s", "2m 3s" or "3s", truncating to whole seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
