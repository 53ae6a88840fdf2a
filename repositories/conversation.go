package repositories

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"pulse/domain"
	"pulse/errors"
)

type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func convKey(id string) []byte { return []byte("conv:" + id) }

// memberKey marks membership of one user in one conversation. The value is
// empty; existence of the key is the fact.
func memberKey(conversationID, userID string) []byte {
	return []byte("member:" + conversationID + ":" + userID)
}

// CreateConversation persists the conversation and one membership key per
// participant in a single transaction. Duplicate participant ids collapse.
func (c *ConversationRepository) CreateConversation(name, description string, isGroup bool, participantIDs []string) (domain.Conversation, error) {
	conversation := domain.Conversation{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		IsGroup:        isGroup,
		ParticipantIDs: lo.Uniq(participantIDs),
		CreatedAt:      time.Now().UTC(),
	}

	data, err := json.Marshal(conversation)
	if err != nil {
		return domain.Conversation{}, err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(convKey(conversation.ID), data); err != nil {
			return err
		}
		for _, userID := range conversation.ParticipantIDs {
			if err := txn.Set(memberKey(conversation.ID, userID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Conversation{}, err
	}

	return conversation, nil
}

func (c *ConversationRepository) FindConversation(id string) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(convKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conversation)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	return conversation, nil
}

// IsMember checks the membership key. Absence is a clean false, not an error.
func (c *ConversationRepository) IsMember(conversationID, userID string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(conversationID, userID))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
