package runtime

import (
	"context"
	"log/slog"
	"sync"

	"pulse/contract"
	"pulse/domain/event"
)

type connectionSet map[contract.Connection]struct{}

// ConnectionRegistry owns the conversation -> user -> connections structure.
// It is the only state shared across session goroutines; every operation
// serializes through its lock and callers never see the raw maps.
type ConnectionRegistry struct {
	mu            sync.RWMutex
	log           *slog.Logger
	conversations map[string]map[string]connectionSet
}

func NewConnectionRegistry(log *slog.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		log:           log,
		conversations: make(map[string]map[string]connectionSet),
	}
}

// Register files a connection under its (conversation, user) bucket,
// creating intermediate maps on demand, and returns the user's total
// connection count before the insert. Count and insert happen under one
// lock acquisition so concurrent first connections of the same user
// observe exactly one zero. Adding the same connection twice is a no-op.
func (r *ConnectionRegistry) Register(conversationID, userID string, conn contract.Connection) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.countLocked(userID)

	conversation, ok := r.conversations[conversationID]
	if !ok {
		conversation = make(map[string]connectionSet)
		r.conversations[conversationID] = conversation
	}
	connections, ok := conversation[userID]
	if !ok {
		connections = make(connectionSet)
		conversation[userID] = connections
	}
	connections[conn] = struct{}{}
	return previous
}

// Deregister removes a connection, prunes empty user and conversation
// entries so the maps never leak, and returns the user's remaining total
// connection count. Removal and count share one lock acquisition so
// concurrent last disconnections of the same user observe exactly one
// zero. Removing an absent connection is a no-op, which makes duplicate
// or concurrent deregistration safe.
func (r *ConnectionRegistry) Deregister(conversationID, userID string, conn contract.Connection) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[conversationID]
	if ok {
		if connections, ok := conversation[userID]; ok {
			delete(connections, conn)
			if len(connections) == 0 {
				delete(conversation, userID)
			}
		}
		if len(conversation) == 0 {
			delete(r.conversations, conversationID)
		}
	}
	return r.countLocked(userID)
}

// ConnectionCount totals a user's live connections across all conversations.
func (r *ConnectionRegistry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(userID)
}

// countLocked requires the caller to hold mu. The 0->1 and 1->0
// transitions of this count drive presence.
func (r *ConnectionRegistry) countLocked(userID string) int {
	count := 0
	for _, conversation := range r.conversations {
		count += len(conversation[userID])
	}
	return count
}

// Broadcast delivers an event to every connection in the conversation,
// including the sender's own connections.
func (r *ConnectionRegistry) Broadcast(ctx context.Context, conversationID string, e event.ChatEvent) {
	r.broadcast(ctx, conversationID, e, "")
}

// BroadcastExcept skips every connection belonging to excludeUserID.
func (r *ConnectionRegistry) BroadcastExcept(ctx context.Context, conversationID string, e event.ChatEvent, excludeUserID string) {
	r.broadcast(ctx, conversationID, e, excludeUserID)
}

type registered struct {
	userID string
	conn   contract.Connection
}

// broadcast iterates over a snapshot of the bucket so a concurrent
// register/deregister never mutates the set mid-pass. Failed sends are
// collected and deregistered after the pass completes; one broken
// connection must not abort delivery to the rest. Fire and forget: there
// is no retry and no acknowledgment.
func (r *ConnectionRegistry) broadcast(ctx context.Context, conversationID string, e event.ChatEvent, excludeUserID string) {
	r.mu.RLock()
	conversation := r.conversations[conversationID]
	targets := make([]registered, 0, len(conversation))
	for userID, connections := range conversation {
		if excludeUserID != "" && userID == excludeUserID {
			continue
		}
		for conn := range connections {
			targets = append(targets, registered{userID: userID, conn: conn})
		}
	}
	r.mu.RUnlock()

	var failed []registered
	for _, target := range targets {
		if err := target.conn.Send(ctx, e); err != nil {
			failed = append(failed, target)
		}
	}

	for _, target := range failed {
		r.log.Warn("Dropping connection after failed send",
			"conversation_id", conversationID,
			"user_id", target.userID,
			"event_type", e.EventType())
		r.Deregister(conversationID, target.userID, target.conn)
	}
}
