package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/countdown"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
	"github.com/rl1809/flashsale-engine/internal/port"
)

const DefaultGraceWindow = 2 * time.Second

type CoordinatorConfig struct {
	// GraceWindow keeps an expiring sale listed so observers can render it
	// before it disappears.
	GraceWindow  time.Duration
	TickInterval time.Duration
	// RemoveWhenSoldOut expires a sale as soon as its last unit is sold.
	RemoveWhenSoldOut bool
}

// ExpirationCoordinator drives every sale through active, expiring and
// removed, and returns unsold units to the catalog on removal.
type ExpirationCoordinator struct {
	store   *FlashSaleStore
	catalog port.CatalogRepository
	bus     *eventbus.Bus
	jobs    *Dispatcher
	clock   clock.Clock
	logger  *zap.Logger
	cfg     CoordinatorConfig

	mu          sync.Mutex
	started     bool
	stopped     bool
	tracked     map[string]*countdown.Countdown
	pending     map[string]clock.Timer
	unsubscribe func()
}

func NewExpirationCoordinator(
	store *FlashSaleStore,
	catalog port.CatalogRepository,
	bus *eventbus.Bus,
	jobs *Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
	cfg CoordinatorConfig,
) *ExpirationCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GraceWindow < 0 {
		cfg.GraceWindow = DefaultGraceWindow
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = countdown.DefaultTick
	}
	return &ExpirationCoordinator{
		store:   store,
		catalog: catalog,
		bus:     bus,
		jobs:    jobs,
		clock:   clk,
		logger:  logger,
		cfg:     cfg,
		tracked: make(map[string]*countdown.Countdown),
		pending: make(map[string]clock.Timer),
	}
}

// Start tracks the sales already in the store and every sale added later.
func (c *ExpirationCoordinator) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	unsubscribe := c.bus.Subscribe(domain.TopicFlashSaleUpdate, c.handleEvent)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	for _, sale := range c.store.ListActive() {
		c.Track(sale)
	}
	c.logger.Info("expiration coordinator started",
		zap.Duration("grace_window", c.cfg.GraceWindow),
		zap.Bool("remove_when_sold_out", c.cfg.RemoveWhenSoldOut),
	)
}

func (c *ExpirationCoordinator) handleEvent(payload any) {
	ev, ok := payload.(domain.SaleEvent)
	if !ok || ev.Sale == nil {
		return
	}
	switch ev.Kind {
	case domain.SaleEventCreated:
		c.Track(*ev.Sale)
	case domain.SaleEventPurchase:
		if c.cfg.RemoveWhenSoldOut && ev.Sale.RemainingStock() == 0 {
			c.beginExpiry(ev.SaleID, "sold out")
		}
	}
}

// Track starts the countdown that expires sale. Tracking the same sale twice
// is a no-op.
func (c *ExpirationCoordinator) Track(sale domain.Sale) {
	if sale.State != domain.SaleStateActive {
		return
	}
	if !sale.HasValidSchedule() {
		c.logger.Warn("sale has no valid schedule, expiring it now",
			zap.String("sale_id", sale.ID),
			zap.Error(domain.ErrInvalidSchedule),
		)
		c.beginExpiry(sale.ID, "invalid schedule")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if _, ok := c.tracked[sale.ID]; ok {
		return
	}
	saleID := sale.ID
	c.tracked[saleID] = countdown.Start(c.clock, sale.EndTime, countdown.Options{
		Tick:      c.cfg.TickInterval,
		Logger:    c.logger,
		OnExpired: func() { c.MarkExpired(saleID) },
	})
}

// MarkExpired is the expiry signal from countdowns and observers. Signals for
// sales that have not reached their end time are ignored; of the rest only
// the first one per sale has any effect.
func (c *ExpirationCoordinator) MarkExpired(saleID string) bool {
	sale, err := c.store.Get(saleID)
	if err != nil {
		c.untrack(saleID)
		return false
	}
	if sale.HasValidSchedule() && !sale.EndedAt(c.clock.Now()) {
		c.logger.Debug("early expiry signal ignored", zap.String("sale_id", saleID))
		return false
	}
	return c.beginExpiry(saleID, "end time reached")
}

func (c *ExpirationCoordinator) beginExpiry(saleID, reason string) bool {
	sale, ok := c.store.BeginExpiring(saleID)
	if !ok {
		return false
	}

	c.logger.Info("sale expiring",
		zap.String("sale_id", saleID),
		zap.String("reason", reason),
		zap.Int("sold", sale.Sold),
		zap.Int("total", sale.Total),
	)
	snapshot := sale
	c.bus.Emit(domain.TopicFlashSaleUpdate, domain.SaleEvent{
		Kind:       domain.SaleEventExpiring,
		SaleID:     saleID,
		Sale:       &snapshot,
		OccurredAt: c.clock.Now(),
	})

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.finalize(saleID)
		return true
	}
	c.pending[saleID] = c.clock.AfterFunc(c.cfg.GraceWindow, func() { c.finalize(saleID) })
	c.mu.Unlock()
	return true
}

func (c *ExpirationCoordinator) untrack(saleID string) {
	c.mu.Lock()
	cd := c.tracked[saleID]
	delete(c.tracked, saleID)
	c.mu.Unlock()
	if cd != nil {
		cd.Stop()
	}
}

// finalize removes the sale and restocks whatever was not sold.
func (c *ExpirationCoordinator) finalize(saleID string) {
	c.mu.Lock()
	delete(c.pending, saleID)
	c.mu.Unlock()
	c.untrack(saleID)

	final, ok := c.store.Take(saleID)
	if !ok {
		return
	}

	remainder := final.RemainingStock()
	if remainder > 0 {
		c.restock(final, remainder)
	}

	c.logger.Info("sale removed after expiry",
		zap.String("sale_id", saleID),
		zap.Int("sold", final.Sold),
		zap.Int("remainder", remainder),
	)
	c.bus.Emit(domain.TopicFlashSaleUpdate, domain.SaleEvent{
		Kind:       domain.SaleEventExpiredRemove,
		SaleID:     saleID,
		Remainder:  remainder,
		OccurredAt: c.clock.Now(),
	})
}

func (c *ExpirationCoordinator) restock(sale domain.Sale, remainder int) {
	product := sale.RestockProduct(remainder)
	submitted := c.jobs.Submit(Job{
		Name: "restock " + sale.ID,
		Run: func(ctx context.Context) error {
			return c.catalog.AddProduct(ctx, product)
		},
	})
	if !submitted {
		c.logger.Error("restock dropped",
			zap.String("sale_id", sale.ID),
			zap.String("product", product.Name),
			zap.Int("quantity", remainder),
		)
	}
}

// State reports where a sale is in its lifecycle.
func (c *ExpirationCoordinator) State(saleID string) domain.SaleState {
	return c.store.State(saleID)
}

// Stop cancels every countdown and finalizes sales still inside their grace
// window, so their unsold units reach the catalog before shutdown.
func (c *ExpirationCoordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	unsubscribe := c.unsubscribe
	tracked := c.tracked
	pending := c.pending
	c.tracked = make(map[string]*countdown.Countdown)
	c.pending = make(map[string]clock.Timer)
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	for _, cd := range tracked {
		cd.Stop()
	}
	for saleID, timer := range pending {
		if timer.Stop() {
			c.finalize(saleID)
		}
	}
	c.logger.Info("expiration coordinator stopped", zap.Int("flushed", len(pending)))
}
