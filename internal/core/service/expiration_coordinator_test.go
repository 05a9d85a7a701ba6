package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
)

func TestCoordinator_ExpiresAfterEndTimeAndRestocks(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: 2 * time.Second})
	h.coordinator.Start()

	sale := testSale("s1", 5)
	sale.EndTime = epoch.Add(time.Second)
	h.addSale(t, sale)

	assert.Equal(t, domain.SaleStateActive, h.coordinator.State("s1"))

	h.clock.Add(1100 * time.Millisecond)

	require.Eventually(t, func() bool {
		return h.coordinator.State("s1") == domain.SaleStateExpiring
	}, waitFor, poll)
	// grace timer is armed right after the state flips
	require.Eventually(t, func() bool { return h.clock.PendingTimers() == 1 }, waitFor, poll)

	_, err := h.store.DecreaseStock("s1", 1)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "got %v", err)
	assert.Len(t, h.store.ListActive(), 1)

	h.clock.Add(2 * time.Second)

	assert.Equal(t, domain.SaleStateRemoved, h.coordinator.State("s1"))
	assert.Empty(t, h.store.ListActive())

	h.drain()

	products := h.catalog.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "Mango s1", products[0].Name)
	assert.Equal(t, 5, products[0].Quantity)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(100)), "price %s", products[0].Price)
	assert.Equal(t, "kg", products[0].Unit)
	assert.Equal(t, "sup-1", products[0].SupplierID)

	ev, ok := h.events.Last(domain.SaleEventExpiredRemove)
	require.True(t, ok)
	assert.Equal(t, "s1", ev.SaleID)
	assert.Equal(t, 5, ev.Remainder)
	assert.Nil(t, ev.Sale)
}

func TestCoordinator_RestockMatchesUnsoldUnits(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second})

	h.addSale(t, testSale("s1", 10))
	_, err := h.store.DecreaseStock("s1", 3)
	require.NoError(t, err)

	h.clock.Set(epoch.Add(time.Hour))
	require.True(t, h.coordinator.MarkExpired("s1"))
	h.clock.Add(time.Second)
	h.drain()

	products := h.catalog.Products()
	require.Len(t, products, 1)
	assert.Equal(t, 7, products[0].Quantity)
}

func TestCoordinator_SoldOutSaleIsNotRestocked(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second})

	h.addSale(t, testSale("s1", 4))
	_, err := h.store.DecreaseStock("s1", 4)
	require.NoError(t, err)

	h.clock.Set(epoch.Add(time.Hour))
	require.True(t, h.coordinator.MarkExpired("s1"))
	h.clock.Add(time.Second)
	h.drain()

	assert.Empty(t, h.catalog.Products())
	ev, ok := h.events.Last(domain.SaleEventExpiredRemove)
	require.True(t, ok)
	assert.Zero(t, ev.Remainder)
}

func TestCoordinator_ConcurrentSignalsExpireOnce(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second})

	h.addSale(t, testSale("s1", 10))
	h.clock.Set(epoch.Add(time.Hour))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.coordinator.MarkExpired("s1") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, h.events.Count(domain.SaleEventExpiring))
	assert.Equal(t, 1, h.clock.PendingTimers())

	h.clock.Add(time.Second)
	assert.False(t, h.coordinator.MarkExpired("s1"))
	h.drain()

	assert.Equal(t, 1, h.events.Count(domain.SaleEventExpiredRemove))
	products := h.catalog.Products()
	require.Len(t, products, 1)
	assert.Equal(t, 10, products[0].Quantity)
}

func TestCoordinator_IgnoresEarlySignal(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{})

	h.addSale(t, testSale("s1", 5))

	assert.False(t, h.coordinator.MarkExpired("s1"))
	assert.Equal(t, domain.SaleStateActive, h.coordinator.State("s1"))
	assert.Zero(t, h.events.Count(domain.SaleEventExpiring))

	assert.False(t, h.coordinator.MarkExpired("unknown"))
}

func TestCoordinator_InvalidScheduleExpiresImmediately(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second})
	h.coordinator.Start()

	sale := testSale("s1", 5)
	sale.EndTime = time.Time{}
	h.addSale(t, sale)

	assert.Equal(t, domain.SaleStateExpiring, h.coordinator.State("s1"))

	h.clock.Add(time.Second)
	h.drain()

	assert.Equal(t, domain.SaleStateRemoved, h.coordinator.State("s1"))
	products := h.catalog.Products()
	require.Len(t, products, 1)
	assert.Equal(t, 5, products[0].Quantity)
}

func TestCoordinator_TracksSalesPresentAtStart(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second})

	sale := testSale("s1", 5)
	sale.EndTime = epoch.Add(time.Second)
	h.addSale(t, sale)

	h.coordinator.Start()
	h.clock.Add(time.Second)

	require.Eventually(t, func() bool {
		return h.coordinator.State("s1") == domain.SaleStateExpiring
	}, waitFor, poll)
}

func TestCoordinator_RemoveWhenSoldOut(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second, RemoveWhenSoldOut: true})
	h.coordinator.Start()

	h.addSale(t, testSale("s1", 3))

	_, err := h.store.DecreaseStock("s1", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStateActive, h.coordinator.State("s1"))

	_, err = h.store.DecreaseStock("s1", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStateExpiring, h.coordinator.State("s1"))

	h.clock.Add(time.Second)
	h.drain()

	assert.Equal(t, domain.SaleStateRemoved, h.coordinator.State("s1"))
	assert.Empty(t, h.catalog.Products())
}

func TestCoordinator_StopFlushesGraceWindow(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Minute})

	h.addSale(t, testSale("s1", 8))
	_, err := h.store.DecreaseStock("s1", 2)
	require.NoError(t, err)

	h.clock.Set(epoch.Add(time.Hour))
	require.True(t, h.coordinator.MarkExpired("s1"))

	h.coordinator.Stop()
	h.drain()

	assert.Equal(t, domain.SaleStateRemoved, h.coordinator.State("s1"))
	assert.Zero(t, h.clock.PendingTimers())
	products := h.catalog.Products()
	require.Len(t, products, 1)
	assert.Equal(t, 6, products[0].Quantity)

	// stopping twice is harmless
	h.coordinator.Stop()
}

func TestCoordinator_FailingCatalogStillRemovesSale(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second})
	h.catalog.err = errors.New("catalog unavailable")

	h.addSale(t, testSale("s1", 5))
	h.clock.Set(epoch.Add(time.Hour))
	require.True(t, h.coordinator.MarkExpired("s1"))
	h.clock.Add(time.Second)
	h.drain()

	assert.Equal(t, domain.SaleStateRemoved, h.coordinator.State("s1"))
	assert.Equal(t, 1, h.events.Count(domain.SaleEventExpiredRemove))
	assert.Empty(t, h.catalog.Products())
}
