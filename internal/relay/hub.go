package relay

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/db"
)

// subscriberBuffer bounds each subscriber's queue; a viewer that stops
// draining loses messages instead of blocking the relay.
const subscriberBuffer = 16

// Hub is the observer registry for live viewers. Subscriptions follow the
// client connection lifecycle: subscribe on connect, unsubscribe on
// disconnect.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan db.ChatMessage
	logger      *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		subscribers: make(map[string]chan db.ChatMessage),
		logger:      logger,
	}
}

// Subscribe registers a new viewer and returns its id and message channel.
func (h *Hub) Subscribe() (string, <-chan db.ChatMessage) {
	id := uuid.NewString()
	ch := make(chan db.ChatMessage, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a viewer and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// Broadcast delivers a message to every subscriber without blocking.
func (h *Hub) Broadcast(msg db.ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			h.logger.Warnw("dropping message for slow subscriber", "subscriber", id)
		}
	}
}

// Count reports the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
