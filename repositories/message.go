package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"pulse/domain"
	"pulse/errors"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// messageKey is the primary record, addressed by message id.
func messageKey(id string) []byte { return []byte("msgid:" + id) }

// historyKey orders messages inside a conversation. The timestamp uses
// 19-digit zero padding so lexicographic order is chronological order, with
// the UUID as a collision disconnector for same-nanosecond messages.
func historyKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		m.ConversationID, m.CreatedAt.UnixNano(), m.ID))
}

// CreateMessage persists the primary record plus its history index entry.
func (r *MessageRepository) CreateMessage(m domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(m.ID.String()), data); err != nil {
			return err
		}
		return txn.Set(historyKey(m), nil)
	})
}

func (r *MessageRepository) FindMessage(id string) (domain.Message, error) {
	var m domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		return readMessage(txn, id, &m)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// MarkDelivered stamps the delivery time once. Later calls are no-ops so the
// first broadcast wins.
func (r *MessageRepository) MarkDelivered(messageID string, at time.Time) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		var m domain.Message
		if err := readMessage(txn, messageID, &m); err != nil {
			return err
		}
		if m.DeliveredAt != nil {
			return nil
		}
		m.DeliveredAt = &at
		return writeMessage(txn, m)
	})
	if err == badger.ErrKeyNotFound {
		return errors.ErrNotFound
	}
	return err
}

// MarkRead sets read_at if unset and returns the stored message either way.
// The field is shared across recipients: first writer wins, later readers
// observe the original timestamp.
func (r *MessageRepository) MarkRead(messageID, conversationID string, at time.Time) (domain.Message, error) {
	var m domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := readMessage(txn, messageID, &m); err != nil {
			return err
		}
		if m.ConversationID != conversationID {
			return badger.ErrKeyNotFound
		}
		if m.ReadAt != nil {
			return nil
		}
		m.ReadAt = &at
		return writeMessage(txn, m)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// SoftDelete redacts the content and flips the terminal is_deleted flag.
// Only the sender may delete their message.
func (r *MessageRepository) SoftDelete(messageID, requesterID, conversationID string) (domain.Message, error) {
	var m domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := readMessage(txn, messageID, &m); err != nil {
			return err
		}
		if conversationID != "" && m.ConversationID != conversationID {
			return badger.ErrKeyNotFound
		}
		if m.SenderID != requesterID {
			return errors.ErrForbidden
		}
		m.IsDeleted = true
		m.Content = ""
		m.UpdatedAt = time.Now().UTC()
		return writeMessage(txn, m)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// GetMessages scans the history index in chronological order and resolves
// each entry against the primary record, up to limit entries.
func (r *MessageRepository) GetMessages(conversationID string, limit int) ([]domain.Message, error) {
	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:" + conversationID + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(ids) == limit {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			key := string(it.Item().Key())
			// Trailing UUID after the padded timestamp
			ids = append(ids, key[len(key)-36:])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		m, err := r.FindMessage(id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func readMessage(txn *badger.Txn, id string, m *domain.Message) error {
	item, err := txn.Get(messageKey(id))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, m)
	})
}

func writeMessage(txn *badger.Txn, m domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return txn.Set(messageKey(m.ID.String()), data)
}
