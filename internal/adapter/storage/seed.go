package storage

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
)

type seedSale struct {
	ID           string          `json:"id"`
	Product      string          `json:"product"`
	Supplier     string          `json:"supplier"`
	SupplierID   string          `json:"supplierId"`
	Image        string          `json:"image"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	OldPrice     decimal.Decimal `json:"oldPrice"`
	Discount     decimal.Decimal `json:"discount"`
	Total        int             `json:"total"`
	EndTime      json.RawMessage `json:"endTime"`
	QuantityUnit string          `json:"quantityUnit"`
}

// LoadSeedSales reads a JSON array of sales. An entry whose endTime cannot be
// parsed is kept with a zero end time, so the expiration coordinator retires
// it on start.
func LoadSeedSales(path string) ([]domain.Sale, []error, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read seed file %s", path)
	}

	var entries []seedSale
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, errors.Wrapf(err, "decode seed file %s", path)
	}

	sales := make([]domain.Sale, 0, len(entries))
	var warnings []error
	for i, e := range entries {
		endTime, err := domain.ParseEndTimeJSON(e.EndTime)
		if err != nil {
			warnings = append(warnings, errors.Wrapf(err, "seed entry %d (%s)", i, e.ID))
		}
		sales = append(sales, domain.Sale{
			ID:           e.ID,
			Product:      e.Product,
			Supplier:     e.Supplier,
			SupplierID:   e.SupplierID,
			Image:        e.Image,
			Category:     e.Category,
			Description:  e.Description,
			Price:        e.Price,
			OldPrice:     e.OldPrice,
			Discount:     e.Discount,
			Total:        e.Total,
			EndTime:      endTime,
			QuantityUnit: e.QuantityUnit,
		})
	}
	return sales, warnings, nil
}
