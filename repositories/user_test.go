package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pulse/errors"
)

func Test_Create_User_And_Lookup(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	created, err := repository.CreateUser("alice", "alice@example.com", "Alice A.", "hash")
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.Equal("user", created.Role)
	req.True(created.IsActive)

	byEmail, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(created.ID, byEmail.ID)
	req.Equal("hash", byEmail.PasswordHash)

	byID, err := repository.FindUser(created.ID)
	req.NoError(err)
	req.Equal("alice", byID.Username)
}

func Test_Create_User_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser("alice", "alice@example.com", "", "hash")
	req.NoError(err)

	_, err = repository.CreateUser("alice2", "alice@example.com", "", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	_, err = repository.CreateUser("alice", "other@example.com", "", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Set_Presence_Transitions(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	created, err := repository.CreateUser("bob", "bob@example.com", "", "hash")
	req.NoError(err)

	// Online: no last_seen write
	req.NoError(repository.SetPresence(created.ID, true, nil))
	online, err := repository.FindUser(created.ID)
	req.NoError(err)
	req.True(online.IsOnline)
	req.Nil(online.LastSeen)

	// Offline: last_seen recorded
	lastSeen := time.Now().UTC()
	req.NoError(repository.SetPresence(created.ID, false, &lastSeen))
	offline, err := repository.FindUser(created.ID)
	req.NoError(err)
	req.False(offline.IsOnline)
	req.NotNil(offline.LastSeen)

	// Going online again keeps the old last_seen
	req.NoError(repository.SetPresence(created.ID, true, nil))
	again, err := repository.FindUser(created.ID)
	req.NoError(err)
	req.True(again.IsOnline)
	req.NotNil(again.LastSeen)
}

func Test_Find_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.FindUser("nope")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrNotFound)
}
