package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
)

// PostgresAdapter is the catalog and delivery sink backed by Postgres.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres dsn")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return pool, nil
}

func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range splitStatements(postgresSchema) {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply postgres schema")
		}
	}
	return nil
}

func (p *PostgresAdapter) AddProduct(ctx context.Context, product domain.CatalogProduct) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO products (id, name, supplier_id, supplier, price, quantity, unit, description, image, category)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
		ON CONFLICT (name, supplier_id)
		DO UPDATE SET quantity = products.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		uuid.NewString(), product.Name, product.SupplierID, product.Supplier,
		product.Price.StringFixed(2), product.Quantity, product.Unit,
		product.Description, product.Image, product.Category,
	)
	if err != nil {
		return errors.Wrapf(err, "insert product %q", product.Name)
	}
	return nil
}

func (p *PostgresAdapter) AddDelivery(ctx context.Context, delivery domain.Delivery) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO deliveries (id, customer_id, customer_name, supplier, supplier_id, total_amount, status, address, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11)`,
			delivery.ID, delivery.CustomerID, delivery.CustomerName, delivery.Supplier, delivery.SupplierID,
			delivery.TotalAmount.StringFixed(2), string(delivery.Status), delivery.Address, delivery.Notes,
			delivery.CreatedAt, delivery.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "insert delivery")
		}

		batch := &pgx.Batch{}
		for _, item := range delivery.Items {
			batch.Queue(`
				INSERT INTO delivery_items (delivery_id, sale_id, product, quantity, unit, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6::numeric)`,
				delivery.ID, item.SaleID, item.Product, item.Quantity, item.Unit, item.UnitPrice.StringFixed(2),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert delivery items")
		}
		return nil
	})
}

func (p *PostgresAdapter) ProductQuantity(ctx context.Context, name, supplierID string) (int, error) {
	var quantity int
	err := p.pool.QueryRow(ctx,
		`SELECT quantity FROM products WHERE name = $1 AND supplier_id = $2`, name, supplierID,
	).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "query product")
	}
	return quantity, nil
}
