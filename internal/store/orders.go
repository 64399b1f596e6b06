package store

import (
	"context"
	"database/sql"
	"errors"

	"pos-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const orderResponseColumns = `
	o.order_id, o.order_code, o.order_time, o.created_by,
	COALESCE(u.full_name, 'Unknown') AS created_by_name,
	o.total_amount, o.status`

// GetOrderResponse retrieves the read model for one committed order.
func (s *Store) GetOrderResponse(ctx context.Context, orderID uuid.UUID) (*models.OrderResponse, error) {
	var order models.OrderResponse
	err := s.db.GetContext(ctx, &order, `
		SELECT`+orderResponseColumns+`
		FROM orders o
		LEFT JOIN users u ON u.user_id = o.created_by
		WHERE o.order_id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.OrderNotFoundError{OrderID: orderID}
	}
	if err != nil {
		return nil, err
	}

	items, err := s.orderItems(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	order.Items = items[orderID]
	if order.Items == nil {
		order.Items = []models.OrderItemResponse{}
	}
	return &order, nil
}

// ListOrders retrieves one page of committed orders, most recent first.
func (s *Store) ListOrders(ctx context.Context, page, pageSize int) (*models.PageResult[models.OrderResponse], error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"); err != nil {
		return nil, err
	}

	orders := []models.OrderResponse{}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT`+orderResponseColumns+`
		FROM orders o
		LEFT JOIN users u ON u.user_id = o.created_by
		ORDER BY o.order_time DESC
		LIMIT $1 OFFSET $2`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	if len(orders) > 0 {
		ids := make([]uuid.UUID, len(orders))
		for i := range orders {
			ids[i] = orders[i].OrderID
		}
		itemsByOrder, err := s.orderItems(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range orders {
			orders[i].Items = itemsByOrder[orders[i].OrderID]
			if orders[i].Items == nil {
				orders[i].Items = []models.OrderItemResponse{}
			}
		}
	}

	return models.NewPageResult(orders, total, pageSize, page), nil
}

// orderItems loads line items for a batch of orders, grouped by order id.
func (s *Store) orderItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderItemResponse, error) {
	query, args, err := sqlx.In(`
		SELECT oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN products p ON p.product_id = oi.product_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.order_id, oi.product_id`, orderIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var rows []struct {
		OrderID uuid.UUID `db:"order_id"`
		models.OrderItemResponse
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]models.OrderItemResponse, len(orderIDs))
	for _, row := range rows {
		out[row.OrderID] = append(out[row.OrderID], row.OrderItemResponse)
	}
	return out, nil
}
