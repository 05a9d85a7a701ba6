package port

//go:generate mockgen -source=catalog_repository.go -destination=mock/catalog_repository_mock.go -package=mock

import (
	"context"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
)

type CatalogRepository interface {
	// AddProduct creates a catalog product, or adds quantity to the product with
	// the same name and supplier
	AddProduct(ctx context.Context, product domain.CatalogProduct) error
}
