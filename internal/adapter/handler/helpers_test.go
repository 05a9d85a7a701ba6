package handler

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/flashsale-engine/internal/adapter/storage"
	"github.com/rl1809/flashsale-engine/internal/config"
	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/core/service"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
)

// testContext stands in for testing.T.Context (Go 1.24+): the returned
// context is cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clock       *clock.MockClock
	bus         *eventbus.Bus
	store       *service.FlashSaleStore
	jobs        *service.Dispatcher
	coordinator *service.ExpirationCoordinator
	checkout    *service.CheckoutService
	catalog     *storage.MemoryCatalog
	deliveries  *storage.MemoryDeliveries
	hub         *Hub
	router      *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	f := &fixture{
		clock:      clock.NewMockClock(epoch),
		catalog:    storage.NewMemoryCatalog(),
		deliveries: storage.NewMemoryDeliveries(),
	}
	f.bus = eventbus.New(logger)
	f.jobs = service.NewDispatcher(logger, 2, 64, time.Second)
	f.store = service.NewFlashSaleStore(f.bus, f.clock, logger)
	f.coordinator = service.NewExpirationCoordinator(f.store, f.catalog, f.bus, f.jobs, f.clock, logger,
		service.CoordinatorConfig{GraceWindow: 2 * time.Second})
	f.checkout = service.NewCheckoutService(f.store, f.bus, f.deliveries,
		storage.NewMemoryIdempotency(f.clock), f.jobs, f.clock, logger)

	f.hub = NewHub(logger)
	f.hub.Start()
	f.hub.Attach(f.bus)

	f.router = gin.New()
	NewRouter(f.router, config.CORSConfig{}, logger,
		NewHTTPHandler(f.store, f.checkout, f.coordinator, f.clock, logger), f.hub)

	t.Cleanup(f.jobs.Close)
	t.Cleanup(f.coordinator.Stop)
	t.Cleanup(f.hub.Stop)
	return f
}

func (f *fixture) addSale(t *testing.T, id string, total int, end time.Time) domain.Sale {
	t.Helper()
	sale, err := f.store.Add(domain.Sale{
		ID:           id,
		Product:      "Mango " + id,
		Supplier:     "Sunny Orchard",
		SupplierID:   "sup-1",
		Price:        decimal.NewFromInt(90),
		OldPrice:     decimal.NewFromInt(100),
		Total:        total,
		EndTime:      end,
		QuantityUnit: "kg",
	})
	require.NoError(t, err)
	return sale
}
