package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderStore is the persistence surface the checkout coordinator needs.
// *store.Store implements it; the tests use an in-memory fake.
type OrderStore interface {
	InCheckoutTx(ctx context.Context, fn func(tx store.CheckoutTx) error) error
	GetOrderResponse(ctx context.Context, orderID uuid.UUID) (*models.OrderResponse, error)
	ListOrders(ctx context.Context, page, pageSize int) (*models.PageResult[models.OrderResponse], error)
}

// EventPublisher receives committed state changes for best-effort
// broadcast. *notify.Notifier implements it.
type EventPublisher interface {
	OrderCreated(order *models.OrderResponse)
	StockChanged(productID int64, quantityInStock int)
}

// CheckoutService coordinates one checkout: order code, stock
// reservation for every line, and order persistence as a single atomic
// unit, with best-effort fanout after commit.
type CheckoutService struct {
	store     OrderStore
	notifier  EventPublisher
	txRetries int
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout coordinator.
func NewCheckoutService(orderStore OrderStore, notifier EventPublisher, txRetries int) *CheckoutService {
	if txRetries < 1 {
		txRetries = 1
	}
	return &CheckoutService{
		store:     orderStore,
		notifier:  notifier,
		txRetries: txRetries,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest is the checkout payload. TotalAmount is optional;
// when present it must match the server-computed total.
type CreateOrderRequest struct {
	TotalAmount *decimal.Decimal   `json:"totalAmount"`
	Items       []OrderItemRequest `json:"items" binding:"required"`
}

// OrderItemRequest is one cart line.
type OrderItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// CreateOrder runs the full checkout. On any failure the whole
// transaction rolls back: no stock decrement, no order rows, and the
// claimed order code returns to the series. Only after a successful
// commit are the OrderCreated and StockChanged events handed to the
// fanout, and a fanout problem never surfaces to the caller.
func (s *CheckoutService) CreateOrder(ctx context.Context, userID uuid.UUID, req *CreateOrderRequest) (*models.OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	items, err := validateItems(req.Items)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	var (
		committed    *models.OrderResponse
		stockChanges []stockChange
	)

	for attempt := 0; ; attempt++ {
		committed, stockChanges, err = s.runCheckoutTx(ctx, userID, req.TotalAmount, items)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrConcurrencyConflict) && attempt+1 < s.txRetries {
			util.CheckoutTxRetriesTotal.Inc()
			s.logger.Warn("Checkout conflicted, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		util.CheckoutsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order committed",
		zap.String("order_id", committed.OrderID.String()),
		zap.String("order_code", committed.OrderCode))

	// Fire-and-forget relative to the committed transaction. Enqueueing
	// never blocks; per-terminal delivery order follows this call order.
	s.notifier.OrderCreated(committed)
	for _, change := range stockChanges {
		s.notifier.StockChanged(change.productID, change.newQuantity)
	}

	return committed, nil
}

type stockChange struct {
	productID   int64
	newQuantity int
}

// runCheckoutTx performs one attempt of the checkout transaction.
func (s *CheckoutService) runCheckoutTx(ctx context.Context, userID uuid.UUID, clientTotal *decimal.Decimal, items []OrderItemRequest) (*models.OrderResponse, []stockChange, error) {
	var (
		resp    *models.OrderResponse
		changes []stockChange
	)

	err := s.store.InCheckoutTx(ctx, func(tx store.CheckoutTx) error {
		code, err := tx.NextOrderCode(ctx)
		if err != nil {
			return err
		}

		order := &models.Order{
			OrderID:   uuid.New(),
			OrderCode: code,
			OrderTime: time.Now().UTC(),
			CreatedBy: userID,
			Status:    models.OrderStatusPaid,
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		itemResponses := make([]models.OrderItemResponse, 0, len(items))
		changes = changes[:0]

		// Items arrive sorted by product id, so every concurrent checkout
		// acquires product row locks in the same order and circular waits
		// cannot form.
		for _, item := range items {
			product, err := tx.ProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}

			if product.QuantityInStock < item.Quantity {
				util.StockReservationsFailed.Inc()
				return &models.InsufficientStockError{
					ProductID: product.ProductID,
					Name:      product.Name,
					Requested: item.Quantity,
					Available: product.QuantityInStock,
				}
			}

			newQty, err := tx.ReserveStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}

			orderItems = append(orderItems, models.OrderItem{
				OrderID:   order.OrderID,
				ProductID: product.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
			itemResponses = append(itemResponses, models.OrderItemResponse{
				ProductID: product.ProductID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
			changes = append(changes, stockChange{productID: product.ProductID, newQuantity: newQty})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		// The total is always recomputed from the price snapshots; a
		// client-submitted figure is cross-checked, not trusted.
		if clientTotal != nil && !clientTotal.Equal(total) {
			return models.ErrTotalMismatch
		}
		order.TotalAmount = total

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, orderItems); err != nil {
			return err
		}

		resp = &models.OrderResponse{
			OrderID:     order.OrderID,
			OrderCode:   order.OrderCode,
			OrderTime:   order.OrderTime,
			CreatedBy:   order.CreatedBy,
			TotalAmount: order.TotalAmount,
			Status:      order.Status,
			Items:       itemResponses,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, changes, nil
}

// GetOrder returns the read model of a committed order.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderResponse, error) {
	return s.store.GetOrderResponse(ctx, orderID)
}

const (
	defaultPageSize = 10
	maxPageSize     = 20
)

// ListOrders returns one page of committed orders, most recent first.
func (s *CheckoutService) ListOrders(ctx context.Context, page, pageSize int) (*models.PageResult[models.OrderResponse], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.store.ListOrders(ctx, page, pageSize)
}

// validateItems rejects bad carts before any transaction opens and
// returns the lines sorted by ascending product id.
func validateItems(items []OrderItemRequest) ([]OrderItemRequest, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyCart
	}

	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, models.ErrInvalidQuantity
		}
		if seen[item.ProductID] {
			return nil, models.ErrDuplicateProduct
		}
		seen[item.ProductID] = true
	}

	sorted := make([]OrderItemRequest, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})
	return sorted, nil
}

// failureReason buckets a checkout error for the failure counter.
func failureReason(err error) string {
	var notFound *models.ProductNotFoundError
	var insufficient *models.InsufficientStockError
	switch {
	case models.IsValidationError(err):
		return "validation"
	case errors.As(err, &notFound):
		return "product_not_found"
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.Is(err, models.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "persistence"
	}
}
