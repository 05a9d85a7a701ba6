package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

type SaleState string

const (
	SaleStateActive   SaleState = "active"
	SaleStateExpiring SaleState = "expiring"
	SaleStateRemoved  SaleState = "removed"
)

const defaultRestockCategory = "flash-sale"

// Sale is one time-boxed discount campaign. Copies handed out by the store are
// snapshots; mutating them has no effect on the authoritative record.
type Sale struct {
	ID           string          `json:"id"`
	Product      string          `json:"product"`
	Supplier     string          `json:"supplier"`
	SupplierID   string          `json:"supplierId"`
	Image        string          `json:"image,omitempty"`
	Category     string          `json:"category,omitempty"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	OldPrice     decimal.Decimal `json:"oldPrice"`
	Discount     decimal.Decimal `json:"discount"`
	Total        int             `json:"total"`
	Sold         int             `json:"sold"`
	EndTime      time.Time       `json:"endTime"`
	QuantityUnit string          `json:"quantityUnit"`
	State        SaleState       `json:"state"`
}

// RemainingStock is always derived, never stored.
func (s Sale) RemainingStock() int {
	return s.Total - s.Sold
}

// OriginalPrice is the pre-discount price, falling back to the sale price.
func (s Sale) OriginalPrice() decimal.Decimal {
	if s.OldPrice.IsPositive() {
		return s.OldPrice
	}
	return s.Price
}

func (s Sale) HasValidSchedule() bool {
	return !s.EndTime.IsZero()
}

func (s Sale) EndedAt(now time.Time) bool {
	return s.HasValidSchedule() && !now.Before(s.EndTime)
}

func (s Sale) Validate() error {
	if strings.TrimSpace(s.Product) == "" {
		return errors.Wrap(ErrInvalidSale, "product is required")
	}
	if s.Total < 1 {
		return errors.Wrapf(ErrInvalidSale, "total must be at least 1, got %d", s.Total)
	}
	if s.Sold < 0 || s.Sold > s.Total {
		return errors.Wrapf(ErrInvalidSale, "sold %d out of range [0, %d]", s.Sold, s.Total)
	}
	if s.Price.IsNegative() || s.OldPrice.IsNegative() {
		return errors.Wrap(ErrInvalidSale, "price must not be negative")
	}
	return nil
}

// RestockProduct describes the catalog product that receives the unsold units.
func (s Sale) RestockProduct(quantity int) CatalogProduct {
	category := s.Category
	if category == "" {
		category = defaultRestockCategory
	}
	description := s.Description
	if description == "" {
		description = "Returned from flash sale " + s.ID
	}
	return CatalogProduct{
		Name:        s.Product,
		Price:       s.OriginalPrice(),
		Quantity:    quantity,
		Unit:        s.QuantityUnit,
		Description: description,
		Image:       s.Image,
		Supplier:    s.Supplier,
		SupplierID:  s.SupplierID,
		Category:    category,
	}
}

func (s Sale) MarshalJSON() ([]byte, error) {
	type sale Sale
	return json.Marshal(struct {
		sale
		RemainingStock int `json:"remainingStock"`
	}{
		sale:           sale(s),
		RemainingStock: s.RemainingStock(),
	})
}

// ParseEndTime accepts RFC 3339 timestamps and unix milliseconds.
func ParseEndTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.Wrap(ErrInvalidSchedule, "end time is missing")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	if ms, err := decimal.NewFromString(raw); err == nil && ms.IsInteger() && ms.IsPositive() {
		return time.UnixMilli(ms.IntPart()), nil
	}
	return time.Time{}, errors.Wrapf(ErrInvalidSchedule, "unparsable end time %q", raw)
}

// ParseEndTimeJSON is ParseEndTime for a raw JSON value, which may be a
// string, a number or null.
func ParseEndTimeJSON(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
		if strings.TrimSpace(s) == "null" {
			s = ""
		}
	}
	return ParseEndTime(s)
}

// FilterUnexpired drops sales whose end time has passed or was never valid.
func FilterUnexpired(sales []Sale, now time.Time) []Sale {
	out := make([]Sale, 0, len(sales))
	for _, s := range sales {
		if s.HasValidSchedule() && now.Before(s.EndTime) {
			out = append(out, s)
		}
	}
	return out
}
