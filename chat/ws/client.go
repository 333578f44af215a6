package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	jwtpkg "github.com/juicy-forest/server/pkg/jwt"
	"github.com/juicy-forest/server/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum envelope size allowed from peer. Content is capped at 3000
	// runes, so this leaves room for the envelope framing.
	maxEnvelopeSize = 16 * 1024
)

// Client is one live connection with its authenticated identity attached.
// Envelopes are read in order but each is handled on its own goroutine, so
// two back-to-back envelopes from the same connection may complete and
// broadcast out of submission order when the first's persistence is slower.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	user *jwtpkg.UserClaims
	log  *logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection with its identity claims
func NewClient(hub *Hub, conn *websocket.Conn, user *jwtpkg.UserClaims, sendBuffer int, log *logger.Logger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		user: user,
		log:  log.WithUser(user.UserID, user.Username).WithGarden(user.GardenID),
	}
}

// enqueue queues data for delivery. Returns false if the connection is
// closed or its send buffer is full; the caller skips it either way.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close marks the connection closed and releases the write pump. Idempotent.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads envelopes off the connection until it closes. Malformed
// JSON is logged and ignored; the connection stays active.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxEnvelopeSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.LogError(err, "unexpected connection close")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("ignoring malformed envelope", "error", err.Error())
			continue
		}

		envelopesTotal.WithLabelValues(env.Type).Inc()

		// Handled off the read loop so a slow persistence call doesn't
		// stall subsequent envelopes from this connection.
		go c.handleEnvelope(env)
	}
}

// handleEnvelope dispatches one inbound envelope by its type discriminator.
// All failures are caught here, logged, and dropped without a reply; the
// connection keeps processing subsequent envelopes.
func (c *Client) handleEnvelope(env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic handling envelope", "type", env.Type, "panic", r)
		}
	}()

	ctx := context.Background()

	switch env.Type {
	case TypeMessage:
		c.handleNewMessage(ctx, env)
	case TypeGetMessages:
		c.handleGetMessages(ctx, env)
	case TypeEditMessage:
		c.handleEditMessage(ctx, env)
	case TypeDeleteMessage:
		c.handleDeleteMessage(ctx, env)
	case TypeActivity:
		c.handleActivity(env)
	default:
		c.log.Debug("ignoring unknown envelope type", "type", env.Type)
	}
}

func (c *Client) handleNewMessage(ctx context.Context, env Envelope) {
	avatarColor := env.AvatarColor
	if avatarColor == "" {
		avatarColor = c.user.AvatarColor
	}
	gardenID := env.GardenID
	if gardenID == 0 {
		gardenID = c.user.GardenID
	}

	saved, err := c.hub.messages.Save(ctx, c.user.UserID, c.user.Username, avatarColor, env.Content, env.ChannelID, gardenID)
	if err != nil {
		c.log.LogError(err, "failed to save message", "channel_id", env.ChannelID)
		return
	}

	c.hub.BroadcastAll(NewTextEvent(saved))
}

func (c *Client) handleGetMessages(ctx context.Context, env Envelope) {
	gardenID := env.GardenID
	if gardenID == 0 {
		gardenID = c.user.GardenID
	}

	event, err := c.buildInitialLoad(ctx, gardenID)
	if err != nil {
		c.log.LogError(err, "failed to load history", "garden_id", gardenID)
		return
	}

	// Reply to the requesting connection only
	c.sendEvent(event)
}

func (c *Client) handleEditMessage(ctx context.Context, env Envelope) {
	edited, err := c.hub.messages.Edit(ctx, env.MessageID, env.NewContent, c.user.UserID)
	if err != nil {
		c.log.LogError(err, "failed to edit message", "message_id", env.MessageID)
		return
	}

	c.hub.BroadcastAll(NewEditEvent(edited))
}

func (c *Client) handleDeleteMessage(ctx context.Context, env Envelope) {
	deleted, err := c.hub.messages.Delete(ctx, env.MessageID, c.user.UserID)
	if err != nil {
		c.log.LogError(err, "failed to delete message", "message_id", env.MessageID)
		return
	}

	c.hub.BroadcastAll(NewDeleteEvent(deleted))
}

func (c *Client) handleActivity(env Envelope) {
	if env.ChannelID == 0 {
		c.log.Debug("ignoring activity without channel id")
		return
	}

	avatarColor := env.AvatarColor
	if avatarColor == "" {
		avatarColor = c.user.AvatarColor
	}

	// The typist doesn't hear about their own typing
	c.hub.BroadcastExcept(NewActivityEvent(env.ChannelID, c.user.Username, avatarColor), c)
}

// buildInitialLoad assembles the history-plus-channels snapshot for a garden
func (c *Client) buildInitialLoad(ctx context.Context, gardenID uint) (InitialLoadEvent, error) {
	messages, err := c.hub.messages.ListByGarden(ctx, gardenID)
	if err != nil {
		return InitialLoadEvent{}, err
	}

	channels, err := c.hub.channels.FormattedByGarden(gardenID)
	if err != nil {
		return InitialLoadEvent{}, err
	}

	return NewInitialLoadEvent(messages, channels), nil
}

// sendEvent delivers an event to this connection only
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.log.LogError(err, "failed to marshal event", "type", event.EventType())
		return
	}

	if !c.enqueue(data) {
		droppedSendsTotal.Inc()
		c.log.Warn("dropped event to connection", "type", event.EventType())
	}
}

// WritePump drains the send queue onto the connection and keeps the peer
// alive with periodic pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
