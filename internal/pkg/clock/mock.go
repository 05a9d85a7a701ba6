package clock

import (
	"sync"
	"time"
)

// MockClock only moves when Set or Add is called. Due AfterFunc callbacks run
// synchronously inside Add, in deadline order; tickers receive on a one-slot
// channel and drop ticks nobody has read, like time.Ticker.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	tickers     map[*mockTicker]struct{}
	timers      map[*mockTimer]struct{}
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{
		currentTime: t,
		tickers:     make(map[*mockTicker]struct{}),
		timers:      make(map[*mockTimer]struct{}),
	}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *MockClock) Set(t time.Time) {
	c.Add(t.Sub(c.Now()))
}

func (c *MockClock) Add(d time.Duration) {
	c.mu.Lock()
	target := c.currentTime.Add(d)

	for {
		timer, ticker, at := c.nextDueLocked(target)
		if timer == nil && ticker == nil {
			break
		}
		c.currentTime = at

		if ticker != nil {
			select {
			case ticker.c <- at:
			default:
			}
			ticker.next = ticker.next.Add(ticker.period)
			continue
		}

		delete(c.timers, timer)
		timer.fired = true
		c.mu.Unlock()
		timer.f()
		c.mu.Lock()
	}

	if c.currentTime.Before(target) {
		c.currentTime = target
	}
	c.mu.Unlock()
}

func (c *MockClock) nextDueLocked(limit time.Time) (*mockTimer, *mockTicker, time.Time) {
	var (
		bestTimer  *mockTimer
		bestTicker *mockTicker
		best       time.Time
	)
	for t := range c.timers {
		if t.when.After(limit) {
			continue
		}
		if (bestTimer == nil && bestTicker == nil) || t.when.Before(best) {
			bestTimer, bestTicker, best = t, nil, t.when
		}
	}
	for tk := range c.tickers {
		if tk.next.After(limit) {
			continue
		}
		if (bestTimer == nil && bestTicker == nil) || tk.next.Before(best) {
			bestTimer, bestTicker, best = nil, tk, tk.next
		}
	}
	return bestTimer, bestTicker, best
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tk := &mockTicker{
		clock:  c,
		c:      make(chan time.Time, 1),
		period: d,
		next:   c.currentTime.Add(d),
	}
	c.tickers[tk] = struct{}{}
	return tk
}

// AfterFunc never runs f from inside the call, even for d <= 0; it runs on
// the next Add.
func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTimer{clock: c, f: f, when: c.currentTime.Add(d)}
	c.timers[t] = struct{}{}
	return t
}

// PendingTimers reports the number of AfterFunc callbacks not yet run or stopped.
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// ActiveTickers reports the number of tickers not yet stopped.
func (c *MockClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type mockTicker struct {
	clock  *MockClock
	c      chan time.Time
	period time.Duration
	next   time.Time
}

func (t *mockTicker) C() <-chan time.Time {
	return t.c
}

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	delete(t.clock.tickers, t)
	t.clock.mu.Unlock()
}

type mockTimer struct {
	clock *MockClock
	f     func()
	when  time.Time
	fired bool
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired {
		return false
	}
	if _, ok := t.clock.timers[t]; !ok {
		return false
	}
	delete(t.clock.timers, t)
	return true
}
