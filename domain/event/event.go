// Package event defines the outbound frames fanned out to live connections.
// Every event carries a "type" discriminator so clients can route on it.
package event

import "time"

// ChatEvent is anything that can be delivered to a registered connection.
type ChatEvent interface {
	EventType() string
}

const (
	TypeMessage       = "message"
	TypePresence      = "presence"
	TypeMessageRead   = "message_read"
	TypeMessageDelete = "message_delete"
	TypeTypingStart   = "typing_start"
	TypeTypingStop    = "typing_stop"
	TypeError         = "error"
)

// Presence announces an online/offline transition. LastSeen is only set
// for the offline status.
type Presence struct {
	Type           string     `json:"type"`
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	Username       string     `json:"username"`
	Status         string     `json:"status"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
}

func (e Presence) EventType() string { return e.Type }

// Message is the fanned-out form of a freshly persisted message.
type Message struct {
	Type           string    `json:"type"`
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	IsEdited       bool      `json:"is_edited"`
	IsDeleted      bool      `json:"is_deleted"`
	Timestamp      time.Time `json:"timestamp"`
}

func (e Message) EventType() string { return e.Type }

// MessageRead is the read receipt broadcast to the other participants.
type MessageRead struct {
	Type           string    `json:"type"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	ReaderID       string    `json:"reader_id"`
	ReadAt         time.Time `json:"read_at"`
}

func (e MessageRead) EventType() string { return e.Type }

// MessageDelete announces a soft delete. Content is already redacted.
type MessageDelete struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	DeletedBy      string    `json:"deleted_by"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	IsDeleted      bool      `json:"is_deleted"`
	Content        string    `json:"content"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (e MessageDelete) EventType() string { return e.Type }

// Typing is the passthrough for typing_start / typing_stop.
type Typing struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
}

func (e Typing) EventType() string { return e.Type }

// Error is sent back to the offending connection only.
type Error struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func (e Error) EventType() string { return e.Type }

// NewError builds an error event with the type field already set.
func NewError(detail string) Error {
	return Error{Type: TypeError, Detail: detail}
}
