package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/adapter/storage"
	"github.com/rl1809/flashsale-engine/internal/config"
	"github.com/rl1809/flashsale-engine/internal/core/service"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
	"github.com/rl1809/flashsale-engine/internal/port"
)

var CoreModule = fx.Module("core",
	fx.Provide(
		clock.NewRealClock,
		eventbus.New,
		NewDispatcher,
		NewFlashSaleStore,
		NewExpirationCoordinator,
		NewCheckoutService,
	),
	fx.Invoke(
		registerCore,
	),
)

func NewDispatcher(cfg config.Config, logger *zap.Logger) *service.Dispatcher {
	return service.NewDispatcher(logger.Named("jobs"), cfg.Worker.Count, cfg.Worker.QueueSize, cfg.Worker.JobTimeout)
}

func NewFlashSaleStore(bus *eventbus.Bus, clk clock.Clock, logger *zap.Logger) *service.FlashSaleStore {
	return service.NewFlashSaleStore(bus, clk, logger.Named("store"))
}

func NewExpirationCoordinator(
	cfg config.Config,
	store *service.FlashSaleStore,
	catalog port.CatalogRepository,
	bus *eventbus.Bus,
	jobs *service.Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
) *service.ExpirationCoordinator {
	return service.NewExpirationCoordinator(store, catalog, bus, jobs, clk, logger.Named("expiry"),
		service.CoordinatorConfig{
			GraceWindow:       cfg.Sale.GraceWindow,
			TickInterval:      cfg.Sale.TickInterval,
			RemoveWhenSoldOut: cfg.Sale.RemoveWhenSoldOut,
		})
}

func NewCheckoutService(
	store *service.FlashSaleStore,
	bus *eventbus.Bus,
	deliveries port.DeliveryRepository,
	guard port.IdempotencyGuard,
	jobs *service.Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
) *service.CheckoutService {
	return service.NewCheckoutService(store, bus, deliveries, guard, jobs, clk, logger.Named("checkout"))
}

type coreParams struct {
	fx.In

	Config      config.Config
	Logger      *zap.Logger
	Bus         *eventbus.Bus
	Jobs        *service.Dispatcher
	Store       *service.FlashSaleStore
	Coordinator *service.ExpirationCoordinator
	Mirror      port.StockMirror `optional:"true"`
}

// registerCore appends hooks in start order. fx runs OnStop in reverse, so
// the coordinator flushes its grace windows before the dispatcher drains and
// the bus closes last.
func registerCore(lc fx.Lifecycle, p coreParams) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			p.Bus.Close()
			return nil
		},
	})
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			p.Jobs.Close()
			return nil
		},
	})

	if p.Mirror != nil {
		mirrorSync := service.NewStockMirrorSync(p.Mirror, p.Bus, p.Jobs, p.Logger.Named("mirror"))
		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				mirrorSync.Start(p.Store.ListActive())
				return nil
			},
			OnStop: func(_ context.Context) error {
				mirrorSync.Stop()
				return nil
			},
		})
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := seedSales(p.Config.Sale.SeedFile, p.Store, p.Logger); err != nil {
				return err
			}
			p.Coordinator.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			p.Coordinator.Stop()
			return nil
		},
	})
}

func seedSales(path string, store *service.FlashSaleStore, logger *zap.Logger) error {
	if path == "" {
		return nil
	}

	sales, warnings, err := storage.LoadSeedSales(path)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn("seed sale has no usable end time", zap.Error(w))
	}

	added := 0
	for _, sale := range sales {
		if _, err := store.Add(sale); err != nil {
			logger.Warn("skipping seed sale", zap.String("sale_id", sale.ID), zap.Error(err))
			continue
		}
		added++
	}
	logger.Info("seeded flash sales", zap.String("file", path), zap.Int("added", added), zap.Int("entries", len(sales)))
	return nil
}
