package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pulse/domain"
	"pulse/errors"
	"pulse/mocks"
	"pulse/moderation"
)

func newChatService(t *testing.T) (*ChatService, *mocks.MockIConversationRepository, *mocks.MockIMessageRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	conversations := mocks.NewMockIConversationRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	moderator, err := moderation.NewModerator([]string{"badword"}, '*')
	require.NoError(t, err)
	service := NewChatService(conversations, messages, &moderator, slog.Default())
	return service, conversations, messages
}

func TestCreateMessage_Persists_Trimmed_Content(t *testing.T) {
	req := require.New(t)
	service, _, messages := newChatService(t)

	var stored domain.Message
	messages.EXPECT().CreateMessage(gomock.Any()).
		DoAndReturn(func(m domain.Message) error {
			stored = m
			return nil
		})

	// When a padded message is sent
	m, err := service.CreateMessage("conv1", "alice", "  hello there  ")

	// Then the stored copy is trimmed and stamped
	req.NoError(err)
	req.Equal("hello there", m.Content)
	req.Equal(stored.ID, m.ID)
	req.Equal("conv1", stored.ConversationID)
	req.Equal("alice", stored.SenderID)
	req.False(stored.CreatedAt.IsZero())
}

func TestCreateMessage_Rejects_Blank_Content(t *testing.T) {
	req := require.New(t)
	service, _, _ := newChatService(t)

	_, err := service.CreateMessage("conv1", "alice", "   ")
	req.ErrorIs(err, errors.ErrBlankContent)
}

func TestCreateMessage_Censors_Before_Persisting(t *testing.T) {
	req := require.New(t)
	service, _, messages := newChatService(t)

	var stored domain.Message
	messages.EXPECT().CreateMessage(gomock.Any()).
		DoAndReturn(func(m domain.Message) error {
			stored = m
			return nil
		})

	m, err := service.CreateMessage("conv1", "alice", "you badword you")

	req.NoError(err)
	req.NotContains(m.Content, "badword")
	req.NotContains(stored.Content, "badword")
}

func TestHistory_Delegates_With_Limit(t *testing.T) {
	req := require.New(t)
	service, _, messages := newChatService(t)

	expected := []domain.Message{{Content: "hi"}}
	messages.EXPECT().GetMessages("conv1", 50).Return(expected, nil)

	got, err := service.History("conv1", 50)
	req.NoError(err)
	req.Equal(expected, got)
}

func TestMarkRead_Delegates(t *testing.T) {
	req := require.New(t)
	service, _, messages := newChatService(t)

	at := time.Now().UTC()
	messages.EXPECT().MarkRead("m1", "conv1", at).Return(domain.Message{}, errors.ErrNotFound)

	_, err := service.MarkRead("m1", "conv1", at)
	req.ErrorIs(err, errors.ErrNotFound)
}
