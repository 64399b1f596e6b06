package models

import "time"

// Event types pushed to connected terminals and, when configured, to the
// Kafka order-events topic.
const (
	EventTypeOrderCreated = "ORDER_CREATED"
	EventTypeStockChanged = "STOCK_CHANGED"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent is broadcast after an order commits. Delivery is
// best-effort: observers connected after the commit never see it.
type OrderCreatedEvent struct {
	BaseEvent
	Order OrderResponse `json:"order"`
}

// StockChangedEvent is broadcast after a committed stock mutation so
// terminal displays track the true quantity.
type StockChangedEvent struct {
	BaseEvent
	ProductID       int64 `json:"product_id"`
	QuantityInStock int   `json:"quantity_in_stock"`
}
