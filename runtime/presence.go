package runtime

import (
	"context"
	"log/slog"
	"time"

	"pulse/contract"
	"pulse/domain"
	"pulse/domain/event"
)

// PresenceTracker turns connection-count transitions into durable presence
// writes and presence fanout. All of its work is dispatched to the
// background task queue: a slow storage write must never stall the session
// that triggered it. Failures are logged by the worker, not retried.
type PresenceTracker struct {
	registry contract.IRegistry
	users    contract.IUserRepository
	tasks    contract.ITasks
	log      *slog.Logger
}

func NewPresenceTracker(registry contract.IRegistry, users contract.IUserRepository,
	tasks contract.ITasks, log *slog.Logger) *PresenceTracker {
	return &PresenceTracker{registry: registry, users: users, tasks: tasks, log: log}
}

// Online handles the 0->1 transition: mark the user online in storage and
// announce it to the other participants.
func (t *PresenceTracker) Online(conversationID string, user domain.User) {
	t.tasks.Enqueue("presence-online", func(ctx context.Context) error {
		return t.users.SetPresence(user.ID, true, nil)
	})

	announcement := event.Presence{
		Type:           event.TypePresence,
		ConversationID: conversationID,
		UserID:         user.ID,
		Username:       user.Username,
		Status:         "online",
	}
	t.tasks.Enqueue("presence-broadcast", func(ctx context.Context) error {
		t.registry.BroadcastExcept(ctx, conversationID, announcement, user.ID)
		return nil
	})
}

// Offline handles the 1->0 transition: record last_seen, mark offline and
// announce it with the timestamp.
func (t *PresenceTracker) Offline(conversationID string, user domain.User, lastSeen time.Time) {
	t.tasks.Enqueue("presence-offline", func(ctx context.Context) error {
		return t.users.SetPresence(user.ID, false, &lastSeen)
	})

	announcement := event.Presence{
		Type:           event.TypePresence,
		ConversationID: conversationID,
		UserID:         user.ID,
		Username:       user.Username,
		Status:         "offline",
		LastSeen:       &lastSeen,
	}
	t.tasks.Enqueue("presence-broadcast", func(ctx context.Context) error {
		t.registry.BroadcastExcept(ctx, conversationID, announcement, user.ID)
		return nil
	})
}
