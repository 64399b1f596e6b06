package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/ws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStockObserver struct {
	mu     sync.Mutex
	stocks map[int64]int
}

func (o *memStockObserver) SetStock(ctx context.Context, productID int64, quantity int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stocks[productID] = quantity
	return nil
}

func (o *memStockObserver) get(productID int64) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	qty, ok := o.stocks[productID]
	return qty, ok
}

func newFanoutFixture(t *testing.T) (*Notifier, *memStockObserver, *websocket.Conn) {
	t.Helper()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))

	observer := &memStockObserver{stocks: make(map[int64]int)}
	notifier := NewNotifier(hub, nil, observer)
	go notifier.Run(ctx)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Close()
		cancel()
		notifier.Wait()
	})

	// Give the hub's loop time to register the connection.
	time.Sleep(50 * time.Millisecond)
	return notifier, observer, conn
}

func readEvent(t *testing.T, conn *websocket.Conn, out any) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestOrderCreatedReachesTerminal(t *testing.T) {
	notifier, _, conn := newFanoutFixture(t)

	order := &models.OrderResponse{
		OrderID:     uuid.New(),
		OrderCode:   "HD042",
		OrderTime:   time.Now().UTC(),
		CreatedBy:   uuid.New(),
		TotalAmount: decimal.RequireFromString("12.75"),
		Status:      models.OrderStatusPaid,
	}
	notifier.OrderCreated(order)

	var event models.OrderCreatedEvent
	readEvent(t, conn, &event)

	assert.Equal(t, models.EventTypeOrderCreated, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, order.OrderID, event.Order.OrderID)
	assert.Equal(t, "HD042", event.Order.OrderCode)
}

func TestStockChangedUpdatesCacheAndTerminal(t *testing.T) {
	notifier, observer, conn := newFanoutFixture(t)

	notifier.StockChanged(7, 42)

	var event models.StockChangedEvent
	readEvent(t, conn, &event)

	assert.Equal(t, models.EventTypeStockChanged, event.EventType)
	assert.Equal(t, int64(7), event.ProductID)
	assert.Equal(t, 42, event.QuantityInStock)

	require.Eventually(t, func() bool {
		_, ok := observer.get(7)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	qty, _ := observer.get(7)
	assert.Equal(t, 42, qty)
}

func TestEventsArriveInPublishOrder(t *testing.T) {
	notifier, _, conn := newFanoutFixture(t)

	for qty := 10; qty > 0; qty-- {
		notifier.StockChanged(1, qty)
	}

	for qty := 10; qty > 0; qty-- {
		var event models.StockChangedEvent
		readEvent(t, conn, &event)
		assert.Equal(t, qty, event.QuantityInStock,
			"each terminal must observe stock changes in publish order")
	}
}

func TestPublishNeverBlocksWithoutWorker(t *testing.T) {
	hub := ws.NewHub()
	observer := &memStockObserver{stocks: make(map[int64]int)}
	notifier := NewNotifier(hub, nil, observer)
	// No Run: the queue fills and further publishes must drop, not block.

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < queueSize*2; i++ {
			notifier.StockChanged(1, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a full queue")
	}
}
