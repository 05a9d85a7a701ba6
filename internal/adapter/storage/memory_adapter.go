package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
)

// MemoryCatalog keeps catalog products in process. Products with the same name
// and supplier are merged by adding quantities, like the SQL adapters do.
type MemoryCatalog struct {
	mu       sync.Mutex
	products []domain.CatalogProduct
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{}
}

func (m *MemoryCatalog) AddProduct(ctx context.Context, product domain.CatalogProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.products {
		p := &m.products[i]
		if strings.EqualFold(p.Name, product.Name) && p.SupplierID == product.SupplierID {
			p.Quantity += product.Quantity
			return nil
		}
	}
	m.products = append(m.products, product)
	return nil
}

func (m *MemoryCatalog) Products() []domain.CatalogProduct {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CatalogProduct(nil), m.products...)
}

type MemoryDeliveries struct {
	mu         sync.Mutex
	deliveries map[string]domain.Delivery
}

func NewMemoryDeliveries() *MemoryDeliveries {
	return &MemoryDeliveries{deliveries: make(map[string]domain.Delivery)}
}

func (m *MemoryDeliveries) AddDelivery(ctx context.Context, delivery domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[delivery.ID] = delivery
	return nil
}

func (m *MemoryDeliveries) Get(id string) (domain.Delivery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	return d, ok
}

func (m *MemoryDeliveries) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

// MemoryIdempotency is the single-node fallback for purchase request keys.
type MemoryIdempotency struct {
	mu        sync.Mutex
	clock     clock.Clock
	ttl       time.Duration
	keys      map[string]time.Time
	lastSweep time.Time
}

func NewMemoryIdempotency(clk clock.Clock) *MemoryIdempotency {
	return &MemoryIdempotency{
		clock:     clk,
		ttl:       idempotencyKeyTTL,
		keys:      make(map[string]time.Time),
		lastSweep: clk.Now(),
	}
}

func (m *MemoryIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if expiresAt, ok := m.keys[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	m.keys[key] = now.Add(m.ttl)

	if now.Sub(m.lastSweep) >= m.ttl {
		for k, expiresAt := range m.keys {
			if !now.Before(expiresAt) {
				delete(m.keys, k)
			}
		}
		m.lastSweep = now
	}
	return true, nil
}

func (m *MemoryIdempotency) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}
