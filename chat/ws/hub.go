package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/juicy-forest/server/chat/models"
	"github.com/juicy-forest/server/chat/service"
	"github.com/juicy-forest/server/pkg/logger"
)

// MessageService defines the message persistence operations the dispatcher needs
type MessageService interface {
	Save(ctx context.Context, authorID uint, username, avatarColor, content string, channelID, gardenID uint) (*models.Message, error)
	Edit(ctx context.Context, messageID uint, newContent string, requesterID uint) (*models.Message, error)
	Delete(ctx context.Context, messageID uint, requesterID uint) (*models.Message, error)
	ListByGarden(ctx context.Context, gardenID uint) ([]models.Message, error)
}

// ChannelService defines the channel directory operations the dispatcher needs
type ChannelService interface {
	FormattedByGarden(gardenID uint) ([]service.ChannelView, error)
}

// Event is any outbound envelope
type Event interface {
	EventType() string
}

func (e TextEvent) EventType() string        { return e.Type }
func (e InitialLoadEvent) EventType() string { return e.Type }
func (e EditEvent) EventType() string        { return e.Type }
func (e DeleteEvent) EventType() string      { return e.Type }
func (e ActivityEvent) EventType() string    { return e.Type }

// Hub tracks all live connections and fans events out to them. It also
// carries the services the per-connection dispatchers invoke.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	messages MessageService
	channels ChannelService
	log      *logger.Logger
}

// NewHub creates a hub over the given services
func NewHub(messages MessageService, channels ChannelService, log *logger.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		messages: messages,
		channels: channels,
		log:      log,
	}
}

// Register adds a connection to the live set. No-op on duplicate register.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client] {
		return
	}
	h.clients[client] = true
	connectionsGauge.Inc()

	h.log.Info("client connected", "user_id", client.user.UserID, "username", client.user.Username)
}

// Unregister removes a connection from the live set. Idempotent.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	connectionsGauge.Dec()

	h.log.Info("client disconnected", "user_id", client.user.UserID, "username", client.user.Username)
}

// BroadcastAll sends an event to every open connection. A send failure on
// one connection never blocks or fails delivery to the others.
func (h *Hub) BroadcastAll(event Event) {
	h.broadcast(event, nil)
}

// BroadcastExcept sends an event to every open connection except one,
// used for typing notices so the typist doesn't see their own
func (h *Hub) BroadcastExcept(event Event, exclude *Client) {
	h.broadcast(event, exclude)
}

func (h *Hub) broadcast(event Event, exclude *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.LogError(err, "failed to marshal broadcast event", "type", event.EventType())
		return
	}

	broadcastsTotal.WithLabelValues(event.EventType()).Inc()

	// Snapshot under the read lock so connections can come and go while
	// the fan-out is in progress
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client != exclude {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.enqueue(data) {
			droppedSendsTotal.Inc()
			h.log.Warn("dropped broadcast to connection",
				"type", event.EventType(),
				"user_id", client.user.UserID,
			)
		}
	}
}

// ConnectionCount returns the number of live connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
