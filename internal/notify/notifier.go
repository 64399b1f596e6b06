// Package notify is the notification fanout: it takes committed state
// changes and pushes them to every currently connected terminal, and to
// Kafka when a broker is configured. Publishing is fire-and-forget
// relative to the checkout transaction; a fanout failure is logged and
// swallowed, never propagated.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"
	"pos-service/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const queueSize = 256

// StockObserver receives committed stock quantities; the Redis display
// cache implements it.
type StockObserver interface {
	SetStock(ctx context.Context, productID int64, quantity int) error
}

// Notifier serialises all publishes through one worker goroutine, so
// every terminal sees events in the order Publish calls were made while
// callers never block.
type Notifier struct {
	hub      *ws.Hub
	producer *broker.Producer
	stock    StockObserver
	queue    chan any
	done     chan struct{}
	logger   *zap.Logger
}

// NewNotifier creates a notifier. producer and stock may be nil; the
// corresponding sinks are then skipped.
func NewNotifier(hub *ws.Hub, producer *broker.Producer, stock StockObserver) *Notifier {
	return &Notifier{
		hub:      hub,
		producer: producer,
		stock:    stock,
		queue:    make(chan any, queueSize),
		done:     make(chan struct{}),
		logger:   util.GetLogger(),
	}
}

// Run drains the queue until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	defer close(n.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			n.deliver(event)
		}
	}
}

// Wait blocks until Run has returned.
func (n *Notifier) Wait() {
	<-n.done
}

// OrderCreated queues an order-created event for broadcast.
func (n *Notifier) OrderCreated(order *models.OrderResponse) {
	n.enqueue(&models.OrderCreatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderCreated),
		Order:     *order,
	})
	util.EventsPublishedTotal.WithLabelValues(models.EventTypeOrderCreated).Inc()
}

// StockChanged queues a stock-changed event for broadcast and updates
// the display cache.
func (n *Notifier) StockChanged(productID int64, quantityInStock int) {
	n.enqueue(&models.StockChangedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeStockChanged),
		ProductID:       productID,
		QuantityInStock: quantityInStock,
	})
	util.EventsPublishedTotal.WithLabelValues(models.EventTypeStockChanged).Inc()
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// enqueue never blocks; when the queue is full the event is dropped and
// counted, which is acceptable for a best-effort channel with no replay.
func (n *Notifier) enqueue(event any) {
	select {
	case n.queue <- event:
	default:
		util.EventsDroppedTotal.Inc()
		n.logger.Warn("Notification queue full, dropping event")
	}
}

func (n *Notifier) deliver(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	n.hub.Broadcast(data)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if sc, ok := event.(*models.StockChangedEvent); ok && n.stock != nil {
		if err := n.stock.SetStock(ctx, sc.ProductID, sc.QuantityInStock); err != nil {
			n.logger.Warn("Failed to refresh stock cache",
				zap.Int64("product_id", sc.ProductID),
				zap.Error(err))
		}
	}

	if n.producer != nil {
		key := eventKey(event)
		if err := n.producer.PublishEvent(ctx, key, event); err != nil {
			n.logger.Warn("Failed to publish event to kafka", zap.Error(err))
		}
	}
}

func eventKey(event any) string {
	switch e := event.(type) {
	case *models.OrderCreatedEvent:
		return "order-" + e.Order.OrderID.String()
	case *models.StockChangedEvent:
		return fmt.Sprintf("stock-%d", e.ProductID)
	default:
		return "event"
	}
}
