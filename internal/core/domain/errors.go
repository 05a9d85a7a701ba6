package domain

import "github.com/cockroachdb/errors"

var (
	ErrNotFound          = errors.New("sale not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSchedule   = errors.New("invalid sale schedule")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrDuplicateSale     = errors.New("sale already exists")
	ErrInvalidSale       = errors.New("invalid sale")
)
