package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub fans owner events out to every live connection of that owner
type Hub struct {
	// Registered clients (ownerID -> set of clients)
	clients map[string]map[*Client]struct{}

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log *logrus.Logger
	mu  sync.RWMutex
}

// Message is one event addressed to an owner
type Message struct {
	OwnerID string
	Event   Event
}

// Event is the JSON envelope written to clients
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for ownerID, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, ownerID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.OwnerID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.OwnerID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"owner_id": client.OwnerID, "owner_connections": len(set)}).Info("✅ [WEBSOCKET] Client connected")

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Event)
			if err != nil {
				h.log.WithError(err).WithField("event", message.Event.Type).Error("❌ Failed to marshal event")
				continue
			}

			h.mu.RLock()
			var slow []*Client
			for client := range h.clients[message.OwnerID] {
				select {
				case client.send <- data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				h.log.WithField("owner_id", client.OwnerID).Warn("⚠️ Client buffer full, disconnecting")
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.OwnerID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.OwnerID)
	}
	h.log.WithFields(logrus.Fields{"owner_id": client.OwnerID, "owner_connections": len(set)}).Info("🔴 [WEBSOCKET] Client disconnected")
}

// Notify queues an event for every connection of ownerID. It never blocks:
// when the queue is full the event is dropped.
func (h *Hub) Notify(ownerID, eventType string, data interface{}) {
	msg := &Message{
		OwnerID: ownerID,
		Event:   Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()},
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.WithFields(logrus.Fields{"owner_id": ownerID, "event": eventType}).Warn("⚠️ Broadcast queue full, dropping event")
	}
}

func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ConnectionCount returns the number of live connections for ownerID
func (h *Hub) ConnectionCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerID])
}
