package domain

import "time"

// Conversation groups a set of participants sharing a message stream.
type Conversation struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	Description    string    `json:"description,omitempty"`
	IsGroup        bool      `json:"is_group"`
	ParticipantIDs []string  `json:"participant_ids"`
	CreatedAt      time.Time `json:"created_at"`
}
