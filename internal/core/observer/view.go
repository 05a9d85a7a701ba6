// Package observer keeps a rendered list of flash sales in step with the
// store. A View reloads on every store event, re-lists on a slow safety poll
// in case an event was missed, and runs one countdown per listed sale.
package observer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/countdown"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
)

const DefaultPollInterval = 30 * time.Second

type Source interface {
	ListActive() []domain.Sale
}

// Signaler receives the expiry signal a countdown raises when a sale ends.
type Signaler interface {
	MarkExpired(saleID string) bool
}

type Entry struct {
	Sale      domain.Sale `json:"sale"`
	Countdown string      `json:"countdown"`
}

type Options struct {
	PollInterval time.Duration
	Tick         time.Duration
	// OnChange receives a fresh snapshot after every reload. It runs on the
	// goroutine that triggered the reload and must not block.
	OnChange func([]Entry)
	Logger   *zap.Logger
}

type View struct {
	source   Source
	signaler Signaler
	clock    clock.Clock
	opts     Options

	mu         sync.Mutex
	closed     bool
	order      []string
	sales      map[string]domain.Sale
	countdowns map[string]*countdown.Countdown
	// listings are numbered when requested; an older one never replaces a
	// newer one that finished first
	issued  uint64
	applied uint64

	unsubscribe func()
	ticker      clock.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

// Open loads the current sales and starts following changes. bus may be nil,
// in which case the view only converges through the safety poll.
func Open(source Source, bus *eventbus.Bus, signaler Signaler, clk clock.Clock, opts Options) *View {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	v := &View{
		source:     source,
		signaler:   signaler,
		clock:      clk,
		opts:       opts,
		sales:      make(map[string]domain.Sale),
		countdowns: make(map[string]*countdown.Countdown),
		done:       make(chan struct{}),
	}

	if bus != nil {
		v.unsubscribe = bus.Subscribe(domain.TopicFlashSaleUpdate, func(any) { v.Reload() })
	}
	v.Reload()

	v.ticker = clk.NewTicker(opts.PollInterval)
	go v.poll()
	return v
}

func (v *View) poll() {
	for {
		select {
		case <-v.done:
			return
		case <-v.ticker.C():
			v.Reload()
		}
	}
}

// Reload re-lists the source and reconciles countdowns with the result.
func (v *View) Reload() {
	v.mu.Lock()
	v.issued++
	seq := v.issued
	v.mu.Unlock()

	sales := v.source.ListActive()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if seq < v.applied {
		v.mu.Unlock()
		v.opts.Logger.Debug("discarding stale listing", zap.Uint64("seq", seq), zap.Uint64("applied", v.applied))
		return
	}
	v.applied = seq

	seen := make(map[string]struct{}, len(sales))
	order := make([]string, 0, len(sales))
	for _, sale := range sales {
		seen[sale.ID] = struct{}{}
		order = append(order, sale.ID)
		v.sales[sale.ID] = sale
		if _, ok := v.countdowns[sale.ID]; !ok {
			v.countdowns[sale.ID] = v.startCountdown(sale)
		}
	}
	for id, cd := range v.countdowns {
		if _, ok := seen[id]; !ok {
			cd.Stop()
			delete(v.countdowns, id)
			delete(v.sales, id)
		}
	}
	v.order = order
	snapshot := v.snapshotLocked()
	v.mu.Unlock()

	if v.opts.OnChange != nil {
		v.opts.OnChange(snapshot)
	}
}

func (v *View) startCountdown(sale domain.Sale) *countdown.Countdown {
	saleID := sale.ID
	return countdown.Start(v.clock, sale.EndTime, countdown.Options{
		Tick:   v.opts.Tick,
		Logger: v.opts.Logger.With(zap.String("sale_id", saleID)),
		OnExpired: func() {
			if v.signaler != nil {
				v.signaler.MarkExpired(saleID)
			}
		},
	})
}

// Snapshot returns the listed sales with their current countdown text.
func (v *View) Snapshot() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() []Entry {
	entries := make([]Entry, 0, len(v.order))
	for _, id := range v.order {
		display := countdown.Ended
		if cd := v.countdowns[id]; cd != nil {
			display = cd.Display()
		}
		entries = append(entries, Entry{Sale: v.sales[id], Countdown: display})
	}
	return entries
}

// Close releases the subscription, the poll and every countdown. It is safe
// to call more than once.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		if v.unsubscribe != nil {
			v.unsubscribe()
		}

		v.mu.Lock()
		v.closed = true
		countdowns := v.countdowns
		v.countdowns = make(map[string]*countdown.Countdown)
		v.mu.Unlock()

		close(v.done)
		v.ticker.Stop()
		for _, cd := range countdowns {
			cd.Stop()
		}
	})
}
