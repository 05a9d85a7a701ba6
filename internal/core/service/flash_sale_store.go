package service

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
)

// Publisher is the part of the event bus the core publishes through.
type Publisher interface {
	Emit(topic string, payload any)
}

type saleRecord struct {
	mu      sync.Mutex
	sale    domain.Sale
	seq     uint64
	removed bool
}

// FlashSaleStore owns every sale record. Callers only ever see copies.
type FlashSaleStore struct {
	mu      sync.RWMutex
	records map[string]*saleRecord
	seq     uint64

	bus    Publisher
	clock  clock.Clock
	logger *zap.Logger
}

func NewFlashSaleStore(bus Publisher, clk clock.Clock, logger *zap.Logger) *FlashSaleStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlashSaleStore{
		records: make(map[string]*saleRecord),
		bus:     bus,
		clock:   clk,
		logger:  logger,
	}
}

// Add registers a new sale with nothing sold yet.
func (s *FlashSaleStore) Add(sale domain.Sale) (domain.Sale, error) {
	sale.Sold = 0
	sale.State = domain.SaleStateActive
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if err := sale.Validate(); err != nil {
		return domain.Sale{}, err
	}

	s.mu.Lock()
	if _, exists := s.records[sale.ID]; exists {
		s.mu.Unlock()
		return domain.Sale{}, errors.Wrapf(domain.ErrDuplicateSale, "sale %s", sale.ID)
	}
	s.seq++
	s.records[sale.ID] = &saleRecord{sale: sale, seq: s.seq}
	s.mu.Unlock()

	if !sale.HasValidSchedule() {
		s.logger.Warn("sale added without a valid end time", zap.String("sale_id", sale.ID))
	}
	s.logger.Info("sale added",
		zap.String("sale_id", sale.ID),
		zap.String("product", sale.Product),
		zap.Int("total", sale.Total),
		zap.Time("end_time", sale.EndTime),
	)
	s.publish(domain.SaleEventCreated, sale)
	return sale, nil
}

func (s *FlashSaleStore) Get(saleID string) (domain.Sale, error) {
	rec := s.lookup(saleID)
	if rec == nil {
		return domain.Sale{}, errors.Wrapf(domain.ErrNotFound, "sale %s", saleID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.removed {
		return domain.Sale{}, errors.Wrapf(domain.ErrNotFound, "sale %s", saleID)
	}
	return rec.sale, nil
}

// ListActive returns a snapshot of every sale still in the store, active or
// expiring, in the order they were added. Filter by end time with
// domain.FilterUnexpired if needed.
func (s *FlashSaleStore) ListActive() []domain.Sale {
	s.mu.RLock()
	recs := make([]*saleRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	sales := make([]domain.Sale, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.removed {
			sales = append(sales, rec.sale)
		}
		rec.mu.Unlock()
	}
	return sales
}

// DecreaseStock sells amount units of a sale. It either applies the whole
// amount or leaves the record untouched. Sales that are expiring or removed
// reject every purchase with ErrInsufficientStock.
func (s *FlashSaleStore) DecreaseStock(saleID string, amount int) (domain.Sale, error) {
	if amount < 1 {
		return domain.Sale{}, errors.Wrapf(domain.ErrInvalidQuantity, "amount %d", amount)
	}

	rec := s.lookup(saleID)
	if rec == nil {
		return domain.Sale{}, errors.Wrapf(domain.ErrNotFound, "sale %s", saleID)
	}

	rec.mu.Lock()
	if rec.removed || rec.sale.State != domain.SaleStateActive {
		state := rec.sale.State
		rec.mu.Unlock()
		return domain.Sale{}, errors.Wrapf(domain.ErrInsufficientStock, "sale %s is %s", saleID, state)
	}
	if remaining := rec.sale.RemainingStock(); amount > remaining {
		rec.mu.Unlock()
		return domain.Sale{}, errors.Wrapf(domain.ErrInsufficientStock, "sale %s has %d left, requested %d", saleID, remaining, amount)
	}
	rec.sale.Sold += amount
	updated := rec.sale
	rec.mu.Unlock()

	s.logger.Debug("stock decreased",
		zap.String("sale_id", saleID),
		zap.Int("amount", amount),
		zap.Int("remaining", updated.RemainingStock()),
	)
	s.publish(domain.SaleEventPurchase, updated)
	return updated, nil
}

// BeginExpiring moves an active sale to expiring. Only the first caller for a
// given sale gets true.
func (s *FlashSaleStore) BeginExpiring(saleID string) (domain.Sale, bool) {
	rec := s.lookup(saleID)
	if rec == nil {
		return domain.Sale{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.removed || rec.sale.State != domain.SaleStateActive {
		return domain.Sale{}, false
	}
	rec.sale.State = domain.SaleStateExpiring
	return rec.sale, true
}

// State reports removed for sales the store no longer holds.
func (s *FlashSaleStore) State(saleID string) domain.SaleState {
	rec := s.lookup(saleID)
	if rec == nil {
		return domain.SaleStateRemoved
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.sale.State
}

// Remove deletes a sale. It moves no stock and reports false when the sale was
// already gone.
func (s *FlashSaleStore) Remove(saleID string) bool {
	final, ok := s.Take(saleID)
	if !ok {
		return false
	}
	s.logger.Info("sale removed", zap.String("sale_id", saleID))
	s.publish(domain.SaleEventRemoved, final)
	return true
}

// Take deletes a sale and returns its final state, read under the same lock
// purchases take. It publishes nothing.
func (s *FlashSaleStore) Take(saleID string) (domain.Sale, bool) {
	s.mu.Lock()
	rec, ok := s.records[saleID]
	if ok {
		delete(s.records, saleID)
	}
	s.mu.Unlock()
	if !ok {
		return domain.Sale{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.removed = true
	rec.sale.State = domain.SaleStateRemoved
	return rec.sale, true
}

func (s *FlashSaleStore) lookup(saleID string) *saleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[saleID]
}

func (s *FlashSaleStore) publish(kind domain.SaleEventKind, sale domain.Sale) {
	if s.bus == nil {
		return
	}
	snapshot := sale
	s.bus.Emit(domain.TopicFlashSaleUpdate, domain.SaleEvent{
		Kind:       kind,
		SaleID:     sale.ID,
		Sale:       &snapshot,
		OccurredAt: s.clock.Now(),
	})
}
