package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusConfirmed DeliveryStatus = "confirmed"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

type DeliveryItem struct {
	SaleID    string          `json:"saleId"`
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type Delivery struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	Supplier     string          `json:"supplier"`
	SupplierID   string          `json:"supplierId"`
	Items        []DeliveryItem  `json:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Status       DeliveryStatus  `json:"status"`
	Address      string          `json:"address"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewSaleDelivery builds the pending delivery for a confirmed flash-sale purchase.
func NewSaleDelivery(id string, sale Sale, quantity int, customerID, customerName, address string, now time.Time) Delivery {
	item := DeliveryItem{
		SaleID:    sale.ID,
		Product:   sale.Product,
		Quantity:  quantity,
		Unit:      sale.QuantityUnit,
		UnitPrice: sale.Price,
	}
	return Delivery{
		ID:           id,
		CustomerID:   customerID,
		CustomerName: customerName,
		Supplier:     sale.Supplier,
		SupplierID:   sale.SupplierID,
		Items:        []DeliveryItem{item},
		TotalAmount:  sale.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Status:       DeliveryStatusPending,
		Address:      address,
		Notes:        "flash sale " + sale.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
