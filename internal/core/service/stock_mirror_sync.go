package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
	"github.com/rl1809/flashsale-engine/internal/port"
)

// StockMirrorSync copies remaining stock into a StockMirror whenever the
// store changes. Writes go through the dispatcher and may land out of order;
// the mirror only ever lowers a value, so a late write cannot undo a newer one.
type StockMirrorSync struct {
	mirror      port.StockMirror
	bus         *eventbus.Bus
	jobs        *Dispatcher
	logger      *zap.Logger
	unsubscribe func()
}

func NewStockMirrorSync(mirror port.StockMirror, bus *eventbus.Bus, jobs *Dispatcher, logger *zap.Logger) *StockMirrorSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockMirrorSync{mirror: mirror, bus: bus, jobs: jobs, logger: logger}
}

func (m *StockMirrorSync) Start(sales []domain.Sale) {
	m.unsubscribe = m.bus.Subscribe(domain.TopicFlashSaleUpdate, m.handleEvent)
	for _, sale := range sales {
		m.set(sale.ID, sale.RemainingStock())
	}
}

func (m *StockMirrorSync) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *StockMirrorSync) handleEvent(payload any) {
	ev, ok := payload.(domain.SaleEvent)
	if !ok {
		return
	}
	switch ev.Kind {
	case domain.SaleEventCreated, domain.SaleEventPurchase:
		if ev.Sale != nil {
			m.set(ev.SaleID, ev.Sale.RemainingStock())
		}
	case domain.SaleEventExpiredRemove, domain.SaleEventRemoved:
		m.delete(ev.SaleID)
	}
}

func (m *StockMirrorSync) set(saleID string, remaining int) {
	m.jobs.Submit(Job{
		Name: "mirror set " + saleID,
		Run: func(ctx context.Context) error {
			return m.mirror.SetStock(ctx, saleID, remaining)
		},
	})
}

func (m *StockMirrorSync) delete(saleID string) {
	m.jobs.Submit(Job{
		Name: "mirror delete " + saleID,
		Run: func(ctx context.Context) error {
			return m.mirror.DeleteStock(ctx, saleID)
		},
	})
}
