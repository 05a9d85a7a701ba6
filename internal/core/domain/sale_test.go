package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSale_RemainingStock(t *testing.T) {
	s := Sale{Total: 10, Sold: 3}
	assert.Equal(t, 7, s.RemainingStock())

	s.Sold = 10
	assert.Equal(t, 0, s.RemainingStock())
}

func TestSale_OriginalPrice(t *testing.T) {
	s := Sale{Price: decimal.NewFromInt(90), OldPrice: decimal.NewFromInt(100)}
	assert.True(t, s.OriginalPrice().Equal(decimal.NewFromInt(100)))

	// no old price recorded
	s.OldPrice = decimal.Zero
	assert.True(t, s.OriginalPrice().Equal(decimal.NewFromInt(90)))
}

func TestSale_Validate(t *testing.T) {
	valid := Sale{Product: "Mango", Total: 5, Price: decimal.NewFromInt(1)}
	require.NoError(t, valid.Validate())

	testCases := []struct {
		name string
		sale Sale
	}{
		{name: "missing product", sale: Sale{Total: 5}},
		{name: "zero total", sale: Sale{Product: "Mango"}},
		{name: "sold above total", sale: Sale{Product: "Mango", Total: 2, Sold: 3}},
		{name: "negative price", sale: Sale{Product: "Mango", Total: 2, Price: decimal.NewFromInt(-1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sale.Validate()
			assert.True(t, errors.Is(err, ErrInvalidSale), "got %v", err)
		})
	}
}

func TestSale_RestockProduct(t *testing.T) {
	s := Sale{
		ID:           "s1",
		Product:      "Avocado",
		Supplier:     "Green Farm",
		SupplierID:   "sup-1",
		Image:        "avocado.png",
		Price:        decimal.NewFromInt(90),
		OldPrice:     decimal.NewFromInt(100),
		Total:        10,
		Sold:         3,
		QuantityUnit: "kg",
	}

	p := s.RestockProduct(s.RemainingStock())

	assert.Equal(t, "Avocado", p.Name)
	assert.Equal(t, 7, p.Quantity)
	assert.Equal(t, "kg", p.Unit)
	assert.Equal(t, "avocado.png", p.Image)
	assert.Equal(t, "Green Farm", p.Supplier)
	assert.Equal(t, "sup-1", p.SupplierID)
	assert.Equal(t, defaultRestockCategory, p.Category)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(100)))
	assert.NotEmpty(t, p.Description)
}

func TestSale_MarshalJSONIncludesRemainingStock(t *testing.T) {
	s := Sale{ID: "s1", Product: "Avocado", Total: 5, Sold: 2, State: SaleStateActive}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 3, decoded["remainingStock"])
	assert.Equal(t, "s1", decoded["id"])
	assert.Equal(t, "active", decoded["state"])
}

func TestParseEndTime(t *testing.T) {
	got, err := ParseEndTime("2026-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	got, err = ParseEndTime("1767225600000")
	require.NoError(t, err)
	assert.Equal(t, int64(1767225600000), got.UnixMilli())

	for _, raw := range []string{"", "  ", "tomorrow", "-5", "12.5"} {
		_, err := ParseEndTime(raw)
		assert.True(t, errors.Is(err, ErrInvalidSchedule), "input %q: got %v", raw, err)
	}
}

func TestParseEndTimeJSON(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, raw := range []string{`"2026-03-01T10:00:00Z"`, `1772359200000`, `"1772359200000"`} {
		got, err := ParseEndTimeJSON(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.True(t, got.Equal(want), raw)
	}

	for _, raw := range []string{``, `null`, `""`, `"soon"`, `true`} {
		_, err := ParseEndTimeJSON(json.RawMessage(raw))
		assert.True(t, errors.Is(err, ErrInvalidSchedule), "input %q: got %v", raw, err)
	}
}

func TestFilterUnexpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sales := []Sale{
		{ID: "past", EndTime: now.Add(-time.Second)},
		{ID: "exact", EndTime: now},
		{ID: "future", EndTime: now.Add(time.Minute)},
		{ID: "unscheduled"},
	}

	got := FilterUnexpired(sales, now)

	require.Len(t, got, 1)
	assert.Equal(t, "future", got[0].ID)
}
