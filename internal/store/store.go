package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store wraps the Postgres connection pool and carries the order code
// series configuration used by the checkout transaction.
type Store struct {
	db         *sqlx.DB
	codePrefix string
	codePad    int
}

// NewStore connects to Postgres and configures the pool.
func NewStore(databaseURL, codePrefix string, codePad int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, codePrefix: codePrefix, codePad: codePad}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE product_id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves one page of the catalog ordered by id.
func (s *Store) ListProducts(ctx context.Context, page, pageSize int) (*models.PageResult[models.Product], error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products"); err != nil {
		return nil, err
	}

	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products ORDER BY product_id LIMIT $1 OFFSET $2",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return models.NewPageResult(products, total, pageSize, page), nil
}

// GetUserByUsername retrieves a user account for login.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE username = $1", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ReserveStock atomically decrements a product's stock in its own short
// transaction, failing without any change when availability is short.
// The read-check-decrement is a single guarded UPDATE, so stock can never
// go negative regardless of concurrent callers.
func (s *Store) ReserveStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var newQty int
	err := s.db.GetContext(ctx, &newQty, `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock - $2, updated_at = NOW()
		WHERE product_id = $1 AND quantity_in_stock >= $2
		RETURNING quantity_in_stock`,
		productID, quantity)
	if errors.Is(err, sql.ErrNoRows) {
		product, perr := s.GetProductByID(ctx, productID)
		if perr != nil {
			return 0, perr
		}
		return 0, &models.InsufficientStockError{
			ProductID: productID,
			Name:      product.Name,
			Requested: quantity,
			Available: product.QuantityInStock,
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reserve stock: %w", err)
	}
	return newQty, nil
}

// ReleaseStock is the inverse of ReserveStock, used for compensation only.
func (s *Store) ReleaseStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var newQty int
	err := s.db.GetContext(ctx, &newQty, `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock + $2, updated_at = NOW()
		WHERE product_id = $1
		RETURNING quantity_in_stock`,
		productID, quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &models.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to release stock: %w", err)
	}
	return newQty, nil
}

// isSerializationFailure reports whether the error is a Postgres
// serialization or deadlock failure worth retrying from scratch.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
