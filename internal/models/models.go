package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents an item in the catalog. QuantityInStock is only
// mutated through the stock ledger operations in the store layer.
type Product struct {
	ProductID       int64           `db:"product_id" json:"productId"`
	Name            string          `db:"name" json:"name"`
	Price           decimal.Decimal `db:"price" json:"price"`
	QuantityInStock int             `db:"quantity_in_stock" json:"quantityInStock"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// User represents a cashier or admin account.
type User struct {
	UserID       uuid.UUID `db:"user_id" json:"userId"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"fullName"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Order represents a committed sale. OrderCode is the human-readable
// sequential identifier (HD001, HD002, ...) distinct from OrderID.
type Order struct {
	OrderID     uuid.UUID       `db:"order_id" json:"orderId"`
	OrderCode   string          `db:"order_code" json:"orderCode"`
	OrderTime   time.Time       `db:"order_time" json:"orderTime"`
	CreatedBy   uuid.UUID       `db:"created_by" json:"createdBy"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status      string          `db:"status" json:"status"`
	Items       []OrderItem     `db:"-" json:"items"`
}

// OrderItem is a line of an order. UnitPrice is a snapshot of the product
// price at the time of sale, so historical orders are immune to later
// price changes. Lines are written once with the order and never updated.
type OrderItem struct {
	OrderID   uuid.UUID       `db:"order_id" json:"orderId"`
	ProductID int64           `db:"product_id" json:"productId"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
}

// Order statuses. Paid is terminal and assigned at creation; there is no
// separate payment flow in this service.
const (
	OrderStatusPending = "Pending"
	OrderStatusPaid    = "Paid"
)

// OrderItemResponse is the line-item read model.
type OrderItemResponse struct {
	ProductID int64           `db:"product_id" json:"productId"`
	Name      string          `db:"name" json:"name"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
}

// OrderResponse is the order read model returned by the API and pushed to
// connected terminals.
type OrderResponse struct {
	OrderID       uuid.UUID           `db:"order_id" json:"orderId"`
	OrderCode     string              `db:"order_code" json:"orderCode"`
	OrderTime     time.Time           `db:"order_time" json:"orderTime"`
	CreatedBy     uuid.UUID           `db:"created_by" json:"createdBy"`
	CreatedByName string              `db:"created_by_name" json:"createdByName"`
	TotalAmount   decimal.Decimal     `db:"total_amount" json:"totalAmount"`
	Status        string              `db:"status" json:"status"`
	Items         []OrderItemResponse `db:"-" json:"items"`
}

// PageResult is a single page of a listing.
type PageResult[T any] struct {
	Items       []T `json:"items"`
	TotalCount  int `json:"totalCount"`
	PageSize    int `json:"pageSize"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// NewPageResult computes TotalPages from the count and page size.
func NewPageResult[T any](items []T, totalCount, pageSize, currentPage int) *PageResult[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return &PageResult[T]{
		Items:       items,
		TotalCount:  totalCount,
		PageSize:    pageSize,
		CurrentPage: currentPage,
		TotalPages:  totalPages,
	}
}
