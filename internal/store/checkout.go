package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/sequence"

	"github.com/jmoiron/sqlx"
)

// CheckoutTx is the transactional surface the checkout coordinator drives.
// All methods run inside one database transaction: either every effect
// commits or none does. The fake store in the service tests implements
// the same interface.
type CheckoutTx interface {
	// NextOrderCode claims the next ordinal of the order code series.
	// The claim rides the surrounding transaction, so an aborted checkout
	// returns its ordinal to the series and the committed codes stay
	// gapless.
	NextOrderCode(ctx context.Context) (string, error)
	// ProductForUpdate loads a product and holds its row lock until the
	// transaction ends.
	ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error)
	// ReserveStock decrements locked stock, guarded so the quantity can
	// never go negative. Returns the new quantity.
	ReserveStock(ctx context.Context, productID int64, quantity int) (int, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
}

type sqlCheckoutTx struct {
	tx         *sqlx.Tx
	codePrefix string
	codePad    int
}

// InCheckoutTx runs fn inside a single transaction and commits only when
// fn succeeds. Serialization and deadlock failures are surfaced as
// models.ErrConcurrencyConflict so the coordinator can retry the whole
// checkout.
func (s *Store) InCheckoutTx(ctx context.Context, fn func(tx CheckoutTx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlCheckoutTx{tx: tx, codePrefix: s.codePrefix, codePad: s.codePad}); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", models.ErrConcurrencyConflict, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", models.ErrConcurrencyConflict, err)
		}
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}
	return nil
}

// NextOrderCode claims the next ordinal from the order_sequences counter
// row. The row lock taken by the UPDATE serialises concurrent checkouts;
// because the claim happens inside the checkout transaction, a rollback
// also rolls the counter back and no gap appears in the committed series.
// The counter row is seeded lazily from the highest valid committed code,
// ignoring codes with a malformed (non-numeric) suffix.
func (t *sqlCheckoutTx) NextOrderCode(ctx context.Context) (string, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_sequences (prefix, next_ordinal)
		SELECT $1, COALESCE(MAX(substring(order_code FROM length($1::text) + 1)::bigint), 0) + 1
		FROM orders
		WHERE order_code LIKE $1 || '%'
		  AND substring(order_code FROM length($1::text) + 1) ~ '^[0-9]+$'
		ON CONFLICT (prefix) DO NOTHING`,
		t.codePrefix)
	if err != nil {
		return "", fmt.Errorf("failed to seed order sequence: %w", err)
	}

	var ordinal int64
	err = t.tx.GetContext(ctx, &ordinal, `
		UPDATE order_sequences
		SET next_ordinal = next_ordinal + 1
		WHERE prefix = $1
		RETURNING next_ordinal - 1`,
		t.codePrefix)
	if err != nil {
		return "", fmt.Errorf("failed to claim order code: %w", err)
	}

	return sequence.Format(t.codePrefix, ordinal, t.codePad), nil
}

func (t *sqlCheckoutTx) ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE product_id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return &product, nil
}

func (t *sqlCheckoutTx) ReserveStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var newQty int
	err := t.tx.GetContext(ctx, &newQty, `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock - $2, updated_at = NOW()
		WHERE product_id = $1 AND quantity_in_stock >= $2
		RETURNING quantity_in_stock`,
		productID, quantity)
	if errors.Is(err, sql.ErrNoRows) {
		// The caller holds the row lock and checks availability first, so
		// this only trips if the guard itself rejected the decrement.
		return 0, &models.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reserve stock for product %d: %w", productID, err)
	}
	return newQty, nil
}

func (t *sqlCheckoutTx) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, order_code, order_time, created_by, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		order.OrderID, order.OrderCode, order.OrderTime, order.CreatedBy,
		order.TotalAmount, order.Status)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (t *sqlCheckoutTx) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	for _, item := range items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to insert order item for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}
