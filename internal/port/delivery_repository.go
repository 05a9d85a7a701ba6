package port

//go:generate mockgen -source=delivery_repository.go -destination=mock/delivery_repository_mock.go -package=mock

import (
	"context"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
)

type DeliveryRepository interface {
	// AddDelivery persists the delivery record for a confirmed purchase
	AddDelivery(ctx context.Context, delivery domain.Delivery) error
}
