package observer

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/core/service"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/countdown"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticSource struct {
	mu    sync.Mutex
	sales []domain.Sale
}

func (s *staticSource) ListActive() []domain.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Sale(nil), s.sales...)
}

func (s *staticSource) set(sales ...domain.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = sales
}

// gatedSource holds the next listing it serves until the gate opens.
type gatedSource struct {
	staticSource
	armed   chan struct{}
	entered chan struct{}
	gate    chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		armed:   make(chan struct{}, 1),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (s *gatedSource) arm() { s.armed <- struct{}{} }

func (s *gatedSource) ListActive() []domain.Sale {
	sales := s.staticSource.ListActive()
	select {
	case <-s.armed:
		close(s.entered)
		<-s.gate
	default:
	}
	return sales
}

type recordingSignaler struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingSignaler) MarkExpired(saleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, saleID)
	return true
}

func (r *recordingSignaler) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func sale(id string, total int, end time.Time) domain.Sale {
	return domain.Sale{
		ID:           id,
		Product:      "Durian " + id,
		Price:        decimal.NewFromInt(50),
		Total:        total,
		EndTime:      end,
		QuantityUnit: "kg",
	}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Sale.ID)
	}
	return out
}

func TestView_ConvergesThroughBus(t *testing.T) {
	logger := zaptest.NewLogger(t)
	clk := clock.NewMockClock(epoch)
	bus := eventbus.New(logger)
	store := service.NewFlashSaleStore(bus, clk, logger)

	_, err := store.Add(sale("a", 5, epoch.Add(time.Hour)))
	require.NoError(t, err)

	var mu sync.Mutex
	changes := 0
	views := make([]*View, 3)
	for i := range views {
		views[i] = Open(store, bus, nil, clk, Options{
			Logger: logger,
			OnChange: func([]Entry) {
				mu.Lock()
				changes++
				mu.Unlock()
			},
		})
		defer views[i].Close()
	}

	for _, v := range views {
		assert.Equal(t, []string{"a"}, ids(v.Snapshot()))
	}

	_, err = store.Add(sale("b", 3, epoch.Add(time.Hour)))
	require.NoError(t, err)
	_, err = store.DecreaseStock("a", 2)
	require.NoError(t, err)

	for _, v := range views {
		snap := v.Snapshot()
		require.Equal(t, []string{"a", "b"}, ids(snap))
		assert.Equal(t, 3, snap[0].Sale.RemainingStock())
		assert.Equal(t, "1h 0m 0s", snap[0].Countdown)
	}

	require.True(t, store.Remove("b"))
	for _, v := range views {
		assert.Equal(t, []string{"a"}, ids(v.Snapshot()))
	}

	mu.Lock()
	// one initial load plus three events, per view
	assert.Equal(t, 12, changes)
	mu.Unlock()
}

func TestView_ConvergesThroughSafetyPollAlone(t *testing.T) {
	clk := clock.NewMockClock(epoch)
	src := &staticSource{}
	src.set(sale("a", 5, epoch.Add(time.Hour)))

	v := Open(src, nil, nil, clk, Options{PollInterval: 30 * time.Second, Logger: zaptest.NewLogger(t)})
	defer v.Close()

	src.set(sale("a", 5, epoch.Add(time.Hour)), sale("b", 1, epoch.Add(time.Hour)))
	assert.Equal(t, []string{"a"}, ids(v.Snapshot()))

	clk.Add(30 * time.Second)

	require.Eventually(t, func() bool {
		return len(v.Snapshot()) == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestView_CountdownSignalsExpiry(t *testing.T) {
	clk := clock.NewMockClock(epoch)
	src := &staticSource{}
	src.set(sale("a", 5, epoch.Add(2*time.Second)), sale("b", 5, epoch.Add(time.Hour)))
	signaler := &recordingSignaler{}

	v := Open(src, nil, signaler, clk, Options{Logger: zaptest.NewLogger(t)})
	defer v.Close()

	assert.Equal(t, "2s", v.Snapshot()[0].Countdown)

	clk.Add(time.Second)
	clk.Add(time.Second)

	require.Eventually(t, func() bool {
		return len(signaler.calls()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, signaler.calls())
	assert.Equal(t, countdown.Ended, v.Snapshot()[0].Countdown)
}

func TestView_MissingEndTimeShowsEnded(t *testing.T) {
	clk := clock.NewMockClock(epoch)
	src := &staticSource{}
	src.set(sale("a", 5, time.Time{}))

	v := Open(src, nil, nil, clk, Options{Logger: zaptest.NewLogger(t)})
	defer v.Close()

	assert.Equal(t, countdown.Ended, v.Snapshot()[0].Countdown)
}

func TestView_CloseIsIdempotentAndStopsEverything(t *testing.T) {
	logger := zaptest.NewLogger(t)
	clk := clock.NewMockClock(epoch)
	bus := eventbus.New(logger)
	src := &staticSource{}
	src.set(sale("a", 5, epoch.Add(time.Hour)))

	v := Open(src, bus, nil, clk, Options{Logger: logger})
	require.Equal(t, 1, bus.SubscriberCount(domain.TopicFlashSaleUpdate))

	v.Close()
	v.Close()

	assert.Zero(t, bus.SubscriberCount(domain.TopicFlashSaleUpdate))
	require.Eventually(t, func() bool {
		return clk.ActiveTickers() == 0
	}, 2*time.Second, 5*time.Millisecond)

	src.set()
	v.Reload()
	assert.Len(t, v.Snapshot(), 1)
}

func TestView_StaleListingDoesNotOverwriteNewer(t *testing.T) {
	clk := clock.NewMockClock(epoch)
	src := newGatedSource()
	src.set(sale("a", 5, epoch.Add(time.Hour)))

	v := Open(src, nil, nil, clk, Options{PollInterval: time.Hour, Logger: zaptest.NewLogger(t)})
	defer v.Close()

	src.arm()
	slow := make(chan struct{})
	go func() {
		defer close(slow)
		v.Reload()
	}()
	<-src.entered

	src.set(sale("a", 5, epoch.Add(time.Hour)), sale("b", 2, epoch.Add(time.Hour)))
	v.Reload()
	require.Equal(t, []string{"a", "b"}, ids(v.Snapshot()))

	close(src.gate)
	<-slow

	assert.Equal(t, []string{"a", "b"}, ids(v.Snapshot()))
}
