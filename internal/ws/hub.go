// Package ws pushes order and stock events to connected POS terminals
// over websockets. Delivery is best-effort with no persistence or
// replay: a terminal that connects after an event was broadcast never
// receives it.
package ws

import (
	"context"

	"pos-service/internal/util"

	"go.uber.org/zap"
)

// Hub tracks connected terminals and fans broadcast frames out to them.
// Frames pushed through Broadcast reach each terminal in push order;
// there is no ordering guarantee across terminals.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger
}

// NewHub creates an empty hub. Run must be started before serving
// connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     util.GetLogger(),
	}
}

// Run owns the client set; all membership changes and broadcasts go
// through this loop, so no locking is needed elsewhere.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			util.WSConnectionsActive.Inc()
			h.logger.Info("Terminal connected",
				zap.Int("connections", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				util.WSConnectionsActive.Dec()
				h.logger.Info("Terminal disconnected",
					zap.Int("connections", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// A terminal that cannot keep up is dropped rather
					// than allowed to stall the fanout.
					delete(h.clients, client)
					close(client.send)
					util.WSConnectionsActive.Dec()
					h.logger.Warn("Dropping slow terminal")
				}
			}
		}
	}
}

// Broadcast queues a frame for every currently connected terminal. It
// drops the frame instead of blocking when the hub is backed up.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		util.EventsDroppedTotal.Inc()
		h.logger.Warn("Broadcast queue full, dropping frame")
	}
}
