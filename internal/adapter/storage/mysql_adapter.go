package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
)

// MySQLAdapter is the catalog and delivery sink backed by MySQL.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// OpenMySQL opens and pings a pool for dsn. The dsn must set parseTime=true.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	return db, nil
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range splitStatements(mysqlSchema) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply mysql schema")
		}
	}
	return nil
}

func (m *MySQLAdapter) AddProduct(ctx context.Context, product domain.CatalogProduct) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, name, supplier_id, supplier, price, quantity, unit, description, image, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = NOW()`,
		uuid.NewString(), product.Name, product.SupplierID, product.Supplier,
		product.Price.StringFixed(2), product.Quantity, product.Unit,
		product.Description, product.Image, product.Category,
	)
	if err != nil {
		return errors.Wrapf(err, "insert product %q", product.Name)
	}
	return nil
}

func (m *MySQLAdapter) AddDelivery(ctx context.Context, delivery domain.Delivery) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deliveries (id, customer_id, customer_name, supplier, supplier_id, total_amount, status, address, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		delivery.ID, delivery.CustomerID, delivery.CustomerName, delivery.Supplier, delivery.SupplierID,
		delivery.TotalAmount.StringFixed(2), string(delivery.Status), delivery.Address, delivery.Notes,
		delivery.CreatedAt, delivery.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert delivery")
	}

	for _, item := range delivery.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO delivery_items (delivery_id, sale_id, product, quantity, unit, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			delivery.ID, item.SaleID, item.Product, item.Quantity, item.Unit, item.UnitPrice.StringFixed(2),
		)
		if err != nil {
			return errors.Wrap(err, "insert delivery item")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit delivery")
	}
	return nil
}

// ProductQuantity reports the catalog quantity for a product, zero when the
// product does not exist.
func (m *MySQLAdapter) ProductQuantity(ctx context.Context, name, supplierID string) (int, error) {
	var quantity int
	err := m.db.QueryRowContext(ctx,
		`SELECT quantity FROM products WHERE name = ? AND supplier_id = ?`, name, supplierID,
	).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "query product")
	}
	return quantity, nil
}
