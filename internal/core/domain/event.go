package domain

import "time"

const (
	TopicFlashSaleUpdate = "flash_sale_update"
	TopicAddToCart       = "add_to_cart"
)

type SaleEventKind string

const (
	SaleEventCreated       SaleEventKind = "created"
	SaleEventPurchase      SaleEventKind = "purchase"
	SaleEventExpiring      SaleEventKind = "expiring"
	SaleEventExpiredRemove SaleEventKind = "expired_remove"
	SaleEventRemoved       SaleEventKind = "removed"
)

// SaleEvent is published on TopicFlashSaleUpdate. Sale is a copy taken at
// publish time and is nil for expired_remove.
type SaleEvent struct {
	Kind       SaleEventKind `json:"kind"`
	SaleID     string        `json:"saleId"`
	Sale       *Sale         `json:"sale,omitempty"`
	Remainder  int           `json:"remainder,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// CartEvent is published on TopicAddToCart. Adding to a cart never touches Sold.
type CartEvent struct {
	SaleID     string    `json:"saleId"`
	CustomerID string    `json:"customerId"`
	Quantity   int       `json:"quantity"`
	Sale       Sale      `json:"sale"`
	OccurredAt time.Time `json:"occurredAt"`
}
