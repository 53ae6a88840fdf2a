package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pulse/domain"
	"pulse/errors"
)

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// diskUser is the stored form. The domain type hides the password hash from
// JSON rendering, so persistence gets its own record.
type diskUser struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name,omitempty"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"password_hash"`
	IsActive     bool       `json:"is_active"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func userKey(id string) []byte { return []byte("user:" + id) }

func emailKey(email string) []byte { return []byte("useremail:" + email) }

func usernameKey(name string) []byte { return []byte("username:" + name) }

// CreateUser persists a new user and its email/username lookup indexes in a
// single transaction. Uniqueness is enforced on both indexes.
func (u *UserRepository) CreateUser(username, email, fullName, passwordHash string) (domain.User, error) {
	record := diskUser{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Role:         "user",
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(record.ID), data); err != nil {
			return err
		}
		if err := txn.Set(emailKey(email), []byte(record.ID)); err != nil {
			return err
		}
		return txn.Set(usernameKey(username), []byte(record.ID))
	})
	if err != nil {
		return domain.User{}, err
	}

	return toUser(record), nil
}

// GetUserByEmail resolves the email index and loads the user record.
func (u *UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u.FindUser(id)
}

func (u *UserRepository) FindUser(id string) (domain.User, error) {
	var record diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

// SetPresence updates the durable presence fields. LastSeen is only written
// on the offline transition and never cleared by a later online one.
func (u *UserRepository) SetPresence(userID string, online bool, lastSeen *time.Time) error {
	return u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err == badger.ErrKeyNotFound {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}

		var record diskUser
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		}); err != nil {
			return err
		}

		record.IsOnline = online
		if !online && lastSeen != nil {
			record.LastSeen = lastSeen
		}

		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(userKey(userID), data)
	})
}

func toUser(record diskUser) domain.User {
	return domain.User{
		ID:           record.ID,
		Username:     record.Username,
		Email:        record.Email,
		FullName:     record.FullName,
		Role:         record.Role,
		PasswordHash: record.PasswordHash,
		IsActive:     record.IsActive,
		IsOnline:     record.IsOnline,
		LastSeen:     record.LastSeen,
		CreatedAt:    record.CreatedAt,
	}
}
