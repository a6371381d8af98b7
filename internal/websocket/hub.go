package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/pkg/logger"
)

const sendBufferSize = 64

// OrderEvent is the payload pushed to admin dashboards.
type OrderEvent struct {
	Type          string              `json:"type"`
	OrderID       uint                `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Email         string              `json:"email"`
	Total         float64             `json:"total"`
	ItemCount     int                 `json:"item_count"`
	At            time.Time           `json:"at"`
}

// Client is one admin dashboard connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	UserID uint
	send   chan []byte
}

// Hub fans order events out to every connected admin.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	upgrader   websocket.Upgrader

	mu sync.RWMutex
}

// NewHub builds a hub accepting handshakes from allowedOrigins. "*" allows
// any origin; a request without an Origin header is always accepted.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Info("Admin order hub stopped", nil)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Admin dashboard connected", map[string]interface{}{
				"user_id":     client.UserID,
				"connections": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Admin dashboard disconnected", map[string]interface{}{
				"user_id":     client.UserID,
				"connections": total,
			})

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the feed.
					delete(h.clients, client)
					close(client.send)
					logger.Warn("Admin dashboard send buffer full, disconnecting", map[string]interface{}{
						"user_id": client.UserID,
					})
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishOrderEvent queues an order event for every connected admin. It never
// blocks; when the queue is full the event is dropped and logged.
func (h *Hub) PublishOrderEvent(event string, order *model.Order) {
	data, err := json.Marshal(OrderEvent{
		Type:          event,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Email:         order.Email,
		Total:         order.Total,
		ItemCount:     len(order.Items),
		At:            time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to marshal order event", err, nil)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Order event queue full, event dropped", map[string]interface{}{
			"event":        event,
			"order_number": order.OrderNumber,
		})
	}
}

// Serve upgrades the request and attaches the connection to the hub. The
// caller has already authorised userID as an admin.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
	h.register <- client

	go client.WritePump()
	go client.ReadPump()
	return nil
}

// ClientCount reports how many dashboards are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
