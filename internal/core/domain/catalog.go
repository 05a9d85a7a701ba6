package domain

import "github.com/shopspring/decimal"

// CatalogProduct is an ordinary catalog listing, used when unsold flash-sale
// units are returned to general inventory.
type CatalogProduct struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
	Image       string          `json:"image,omitempty"`
	Supplier    string          `json:"supplier"`
	SupplierID  string          `json:"supplierId"`
	Category    string          `json:"category"`
}
