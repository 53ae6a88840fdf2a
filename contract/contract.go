//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"pulse/domain"
	"pulse/domain/event"
)

// Connection is the registry's view of one live client attachment.
// Send must be safe for concurrent callers; the adapter serializes writes.
type Connection interface {
	Send(ctx context.Context, e event.ChatEvent) error
	Close() error
}

// IRegistry owns the conversation -> user -> connections structure.
// Callers never see the maps, only these operations.
type IRegistry interface {
	Register(conversationID, userID string, conn Connection) (previous int)
	Deregister(conversationID, userID string, conn Connection) (remaining int)
	ConnectionCount(userID string) int
	Broadcast(ctx context.Context, conversationID string, e event.ChatEvent)
	BroadcastExcept(ctx context.Context, conversationID string, e event.ChatEvent, excludeUserID string)
}

// ILimiter is a sliding-window rate limiter. Keys from different families
// (login, ws, msg) must never collide; callers prefix accordingly.
type ILimiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

type IUserRepository interface {
	CreateUser(username, email, fullName, passwordHash string) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	FindUser(id string) (domain.User, error)
	SetPresence(userID string, online bool, lastSeen *time.Time) error
}

type IConversationRepository interface {
	CreateConversation(name, description string, isGroup bool, participantIDs []string) (domain.Conversation, error)
	FindConversation(id string) (domain.Conversation, error)
	IsMember(conversationID, userID string) (bool, error)
}

type IMessageRepository interface {
	CreateMessage(m domain.Message) error
	FindMessage(id string) (domain.Message, error)
	MarkDelivered(messageID string, at time.Time) error
	MarkRead(messageID, conversationID string, at time.Time) (domain.Message, error)
	SoftDelete(messageID, requesterID, conversationID string) (domain.Message, error)
	GetMessages(conversationID string, limit int) ([]domain.Message, error)
}

// IChatService is the storage collaborator consumed by the session handler.
type IChatService interface {
	IsMember(conversationID, userID string) (bool, error)
	CreateMessage(conversationID, senderID, content string) (domain.Message, error)
	MarkDelivered(messageID string, at time.Time) error
	MarkRead(messageID, conversationID string, at time.Time) (domain.Message, error)
	SoftDelete(messageID, requesterID, conversationID string) (domain.Message, error)
	History(conversationID string, limit int) ([]domain.Message, error)
}

// ITasks accepts fire-and-forget background work. Failures are logged by
// the worker, never surfaced to the enqueuing session.
type ITasks interface {
	Enqueue(name string, fn func(ctx context.Context) error)
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
