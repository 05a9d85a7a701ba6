package port

//go:generate mockgen -source=stock_mirror.go -destination=mock/stock_mirror_mock.go -package=mock

import "context"

// StockMirror is a read-only copy of remaining stock for consumers outside
// the process. The in-memory store stays authoritative.
type StockMirror interface {
	// SetStock records remaining units; a value higher than the mirrored one is ignored
	SetStock(ctx context.Context, saleID string, remaining int) error

	// DeleteStock drops the mirrored value once the sale is gone
	DeleteStock(ctx context.Context, saleID string) error
}
