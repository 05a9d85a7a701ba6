package service

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

type PurchaseRequest struct {
	RequestID    string
	CustomerID   string
	CustomerName string
	SaleID       string
	Quantity     int
	Address      string
}

type PurchaseResult struct {
	Sale       domain.Sale
	DeliveryID string
}

type CartRequest struct {
	CustomerID string
	SaleID     string
	Quantity   int
}

// CheckoutService is the purchase action observers call. It applies side
// effects only after the stock decrement has succeeded.
type CheckoutService struct {
	store      *FlashSaleStore
	bus        Publisher
	deliveries port.DeliveryRepository
	guard      port.IdempotencyGuard
	jobs       *Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// NewCheckoutService accepts a nil guard, in which case request ids are not
// de-duplicated.
func NewCheckoutService(
	store *FlashSaleStore,
	bus Publisher,
	deliveries port.DeliveryRepository,
	guard port.IdempotencyGuard,
	jobs *Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		store:      store,
		bus:        bus,
		deliveries: deliveries,
		guard:      guard,
		jobs:       jobs,
		clock:      clk,
		logger:     logger,
	}
}

func (s *CheckoutService) Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	if req.Quantity < 1 {
		return PurchaseResult{}, errors.Wrapf(domain.ErrInvalidQuantity, "quantity %d", req.Quantity)
	}

	idempotencyKey := ""
	if s.guard != nil && req.RequestID != "" {
		idempotencyKey = fmt.Sprintf("purchase:%s", req.RequestID)

		ok, err := s.guard.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return PurchaseResult{}, errors.Wrap(err, "idempotency check failed")
		}
		if !ok {
			return PurchaseResult{}, ErrDuplicateRequest
		}
	}

	sale, err := s.store.DecreaseStock(req.SaleID, req.Quantity)
	if err != nil {
		if idempotencyKey != "" {
			if releaseErr := s.guard.ReleaseIdempotency(ctx, idempotencyKey); releaseErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("key", idempotencyKey),
					zap.Error(releaseErr),
				)
			}
		}
		return PurchaseResult{}, err
	}

	delivery := domain.NewSaleDelivery(
		uuid.NewString(), sale, req.Quantity,
		req.CustomerID, req.CustomerName, req.Address,
		s.clock.Now(),
	)
	s.jobs.Submit(Job{
		Name: "delivery " + delivery.ID,
		Run: func(ctx context.Context) error {
			return s.deliveries.AddDelivery(ctx, delivery)
		},
	})

	s.logger.Info("purchase confirmed",
		zap.String("sale_id", sale.ID),
		zap.String("customer_id", req.CustomerID),
		zap.Int("quantity", req.Quantity),
		zap.String("delivery_id", delivery.ID),
	)
	return PurchaseResult{Sale: sale, DeliveryID: delivery.ID}, nil
}

// AddToCart checks availability and announces the addition. Units are only
// taken from the sale at purchase time.
func (s *CheckoutService) AddToCart(ctx context.Context, req CartRequest) error {
	if req.Quantity < 1 {
		return errors.Wrapf(domain.ErrInvalidQuantity, "quantity %d", req.Quantity)
	}

	sale, err := s.store.Get(req.SaleID)
	if err != nil {
		return err
	}
	if sale.State != domain.SaleStateActive {
		return errors.Wrapf(domain.ErrInsufficientStock, "sale %s is %s", sale.ID, sale.State)
	}
	if req.Quantity > sale.RemainingStock() {
		return errors.Wrapf(domain.ErrInsufficientStock, "sale %s has %d left, requested %d", sale.ID, sale.RemainingStock(), req.Quantity)
	}

	s.bus.Emit(domain.TopicAddToCart, domain.CartEvent{
		SaleID:     sale.ID,
		CustomerID: req.CustomerID,
		Quantity:   req.Quantity,
		Sale:       sale,
		OccurredAt: s.clock.Now(),
	})
	return nil
}
