package ws

import (
	"time"

	"github.com/juicy-forest/server/chat/models"
	"github.com/juicy-forest/server/chat/service"
)

// Inbound envelope types. Anything else is ignored.
const (
	TypeMessage       = "message"
	TypeGetMessages   = "getMessages" // legacy reply-only history fetch
	TypeEditMessage   = "editMessage"
	TypeDeleteMessage = "deleteMessage"
	TypeActivity      = "activity"
)

// Outbound envelope types
const (
	TypeInitialLoad = "initialLoad"
	TypeText        = "text"
)

// Envelope is a single client-to-server message, tagged with a type
// discriminator. Fields beyond the ones a given type requires are ignored.
type Envelope struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	ChannelID   uint   `json:"channelId"`
	GardenID    uint   `json:"gardenId"`
	AvatarColor string `json:"avatarColor"`
	MessageID   uint   `json:"messageId"`
	NewContent  string `json:"newContent"`
}

// AuthorPayload is the author snapshot carried on text events
type AuthorPayload struct {
	ID          uint   `json:"_id"`
	Username    string `json:"username"`
	AvatarColor string `json:"avatarColor"`
}

// MessagePayload is the wire form of a persisted message
type MessagePayload struct {
	ID          uint          `json:"_id"`
	Content     string        `json:"content"`
	ChannelID   uint          `json:"channelId"`
	ChannelName string        `json:"channelName"`
	Author      AuthorPayload `json:"author"`
	Timestamp   time.Time     `json:"timestamp"`
}

// TextEvent announces a new message to all connections
type TextEvent struct {
	Type    string         `json:"type"`
	Payload MessagePayload `json:"payload"`
}

// NewTextEvent builds a text event from a message whose channel has been resolved
func NewTextEvent(m *models.Message) TextEvent {
	return TextEvent{
		Type: TypeText,
		Payload: MessagePayload{
			ID:          m.ID,
			Content:     m.Content,
			ChannelID:   m.ChannelID,
			ChannelName: m.Channel.Name,
			Author: AuthorPayload{
				ID:          m.AuthorID,
				Username:    m.AuthorUsername,
				AvatarColor: m.AuthorAvatarColor,
			},
			Timestamp: m.CreatedAt,
		},
	}
}

// InitialLoadEvent carries a garden's full history plus its channel list,
// pushed once when a connection becomes active
type InitialLoadEvent struct {
	Type     string                `json:"type"`
	Messages []TextEvent           `json:"messages"`
	Channels []service.ChannelView `json:"channels"`
}

// NewInitialLoadEvent formats messages and channels into a single envelope
func NewInitialLoadEvent(messages []models.Message, channels []service.ChannelView) InitialLoadEvent {
	formatted := make([]TextEvent, 0, len(messages))
	for i := range messages {
		formatted = append(formatted, NewTextEvent(&messages[i]))
	}
	if channels == nil {
		channels = []service.ChannelView{}
	}
	return InitialLoadEvent{
		Type:     TypeInitialLoad,
		Messages: formatted,
		Channels: channels,
	}
}

// EditPayload carries an edited message's new content and updated timestamp
type EditPayload struct {
	ID        uint      `json:"_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// EditEvent announces an edit to all connections
type EditEvent struct {
	Type    string      `json:"type"`
	Payload EditPayload `json:"payload"`
}

// NewEditEvent builds an edit event from the edited message
func NewEditEvent(m *models.Message) EditEvent {
	return EditEvent{
		Type: TypeEditMessage,
		Payload: EditPayload{
			ID:        m.ID,
			Content:   m.Content,
			Timestamp: m.UpdatedAt,
		},
	}
}

// DeletePayload identifies a removed message
type DeletePayload struct {
	ID uint `json:"_id"`
}

// DeleteEvent announces a deletion to all connections
type DeleteEvent struct {
	Type    string        `json:"type"`
	Payload DeletePayload `json:"payload"`
}

// NewDeleteEvent builds a delete event from the pre-deletion snapshot
func NewDeleteEvent(m *models.Message) DeleteEvent {
	return DeleteEvent{
		Type:    TypeDeleteMessage,
		Payload: DeletePayload{ID: m.ID},
	}
}

// ActivityPayload identifies who is typing
type ActivityPayload struct {
	Username    string `json:"username"`
	AvatarColor string `json:"avatarColor"`
}

// ActivityEvent is an ephemeral typing notice, never persisted
type ActivityEvent struct {
	Type      string          `json:"type"`
	ChannelID uint            `json:"channelId"`
	Payload   ActivityPayload `json:"payload"`
}

// NewActivityEvent builds a typing notice for a channel
func NewActivityEvent(channelID uint, username, avatarColor string) ActivityEvent {
	return ActivityEvent{
		Type:      TypeActivity,
		ChannelID: channelID,
		Payload: ActivityPayload{
			Username:    username,
			AvatarColor: avatarColor,
		},
	}
}
