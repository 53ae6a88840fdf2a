// Package domain contains core concepts of the conversation system.
// This file defines the Message lifecycle record.
// Messages are soft-deleted, never removed.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is the persisted chat message with its delivery lifecycle.
// DeliveredAt is set once, asynchronously, after the first broadcast.
// ReadAt is a single shared field across recipients, first writer wins.
// IsDeleted is terminal and implies Content == "".
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	Lang           string     `json:"lang,omitempty"`
	IsEdited       bool       `json:"is_edited"`
	IsDeleted      bool       `json:"is_deleted"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
