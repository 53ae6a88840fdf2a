package services

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pulse/contract"
	"pulse/domain"
	"pulse/errors"
	"pulse/moderation"
)

// ChatService fronts message storage for the session handler. Content passes
// through moderation before it is persisted, so neither storage nor fanout
// ever see the raw text.
type ChatService struct {
	conversations contract.IConversationRepository
	messages      contract.IMessageRepository
	moderator     *moderation.Moderator
	log           *slog.Logger
}

func NewChatService(conversations contract.IConversationRepository,
	messages contract.IMessageRepository, moderator *moderation.Moderator,
	log *slog.Logger) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		moderator:     moderator,
		log:           log,
	}
}

func (s *ChatService) IsMember(conversationID, userID string) (bool, error) {
	return s.conversations.IsMember(conversationID, userID)
}

// CreateMessage validates, moderates and persists one message. Blank content
// (after trimming) is rejected before any storage work.
func (s *ChatService) CreateMessage(conversationID, senderID, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, errors.ErrBlankContent
	}

	censored, found := s.moderator.Censor(content)
	if len(found) > 0 {
		s.log.Info("Censored message content",
			slog.String("conversation_id", conversationID),
			slog.String("sender_id", senderID),
			slog.Int("words", len(found)))
	}

	now := time.Now().UTC()
	m := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        censored,
		Lang:           moderation.DetectLang(censored),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.messages.CreateMessage(m); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

func (s *ChatService) MarkDelivered(messageID string, at time.Time) error {
	return s.messages.MarkDelivered(messageID, at)
}

func (s *ChatService) MarkRead(messageID, conversationID string, at time.Time) (domain.Message, error) {
	return s.messages.MarkRead(messageID, conversationID, at)
}

func (s *ChatService) SoftDelete(messageID, requesterID, conversationID string) (domain.Message, error) {
	return s.messages.SoftDelete(messageID, requesterID, conversationID)
}

func (s *ChatService) History(conversationID string, limit int) ([]domain.Message, error) {
	return s.messages.GetMessages(conversationID, limit)
}
