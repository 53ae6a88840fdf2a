package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pulse/auth"
	"pulse/contract"
	"pulse/domain"
	"pulse/domain/event"
	"pulse/errors"
	"pulse/ratelimit"
	"pulse/runtime"
)

// Transport is the session's view of one socket. *Conn satisfies it; tests
// substitute an in-memory fake.
type Transport interface {
	contract.Connection
	CloseWithReason(code int, reason string) error
	ReadFrame(ctx context.Context) ([]byte, error)
}

// Session lifecycle phases, for logging.
type sessionState string

const (
	stateConnecting     sessionState = "connecting"
	stateAuthenticating sessionState = "authenticating"
	stateAuthorizing    sessionState = "authorizing"
	stateActive         sessionState = "active"
	stateClosing        sessionState = "closing"
	stateClosed         sessionState = "closed"
)

// Handler drives one websocket session from upgrade to teardown.
type Handler struct {
	registry contract.IRegistry
	presence *runtime.PresenceTracker
	limiter  contract.ILimiter
	chat     contract.IChatService
	users    contract.IUserRepository
	tasks    contract.ITasks
	log      *slog.Logger
}

func NewHandler(registry contract.IRegistry, presence *runtime.PresenceTracker,
	limiter contract.ILimiter, chat contract.IChatService,
	users contract.IUserRepository, tasks contract.ITasks, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		presence: presence,
		limiter:  limiter,
		chat:     chat,
		users:    users,
		tasks:    tasks,
		log:      log,
	}
}

// session is the per-connection state threaded through the event loop.
type session struct {
	conn           Transport
	conversationID string
	user           domain.User
	state          sessionState
}

// Serve authenticates, authorizes, registers and then pumps events until the
// client goes away. Cleanup runs exactly once on every exit path.
func (h *Handler) Serve(ctx context.Context, conn Transport, conversationID, token string) {
	s := &session{conn: conn, conversationID: conversationID, state: stateConnecting}

	// A cancelled server context closes the socket, which unblocks ReadFrame.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.state = stateAuthenticating
	if token == "" {
		_ = conn.CloseWithReason(websocket.ClosePolicyViolation, "Missing authentication token")
		return
	}
	claims, err := auth.ValidateAccessToken(token)
	if err != nil {
		_ = conn.CloseWithReason(websocket.ClosePolicyViolation, "Invalid or expired token")
		return
	}

	s.state = stateAuthorizing
	user, ok := h.authorize(conn, conversationID, claims.UserID)
	if !ok {
		return
	}
	s.user = user

	// Register reports the prior connection count atomically, so of any
	// number of concurrent first connections exactly one announces online.
	if h.registry.Register(conversationID, user.ID, conn) == 0 {
		h.presence.Online(conversationID, user)
	}

	// The single deferred teardown covers every exit path of the loop below,
	// so deregistration and the offline transition run exactly once.
	defer h.teardown(s)

	s.state = stateActive
	h.log.Info("Session active",
		slog.String("state", string(s.state)),
		slog.String("conversation_id", conversationID),
		slog.String("user_id", user.ID))

	for {
		data, err := conn.ReadFrame(ctx)
		if err != nil {
			return
		}
		h.dispatch(ctx, s, data)
	}
}

// authorize checks membership and loads the user record. Unexpected failures
// close with a server error; policy failures close with the reason spelled out.
func (h *Handler) authorize(conn Transport, conversationID, userID string) (domain.User, bool) {
	isMember, err := h.chat.IsMember(conversationID, userID)
	if err != nil {
		h.log.Error("Membership check failed", slog.String("error", err.Error()))
		_ = conn.CloseWithReason(websocket.CloseInternalServerErr, "Failed to authorize websocket")
		return domain.User{}, false
	}
	if !isMember {
		_ = conn.CloseWithReason(websocket.ClosePolicyViolation, "Not a participant in this conversation")
		return domain.User{}, false
	}

	user, err := h.users.FindUser(userID)
	if errors.Is(err, errors.ErrNotFound) {
		_ = conn.CloseWithReason(websocket.ClosePolicyViolation, "User not found")
		return domain.User{}, false
	}
	if err != nil {
		h.log.Error("User lookup failed", slog.String("error", err.Error()))
		_ = conn.CloseWithReason(websocket.CloseInternalServerErr, "Failed to authorize websocket")
		return domain.User{}, false
	}
	return user, true
}

// teardown deregisters the connection and, when it was the user's last one,
// flips presence to offline.
func (h *Handler) teardown(s *session) {
	s.state = stateClosing
	// Deregister reports the remaining count atomically, so of any number
	// of concurrent last disconnections exactly one announces offline.
	if h.registry.Deregister(s.conversationID, s.user.ID, s.conn) == 0 {
		h.presence.Offline(s.conversationID, s.user, time.Now().UTC())
	}
	s.state = stateClosed
	h.log.Info("Session closed",
		slog.String("state", string(s.state)),
		slog.String("conversation_id", s.conversationID),
		slog.String("user_id", s.user.ID))
}

// dispatch decodes one inbound frame and routes it. Malformed frames and
// failed operations answer with an error event; the session survives.
func (h *Handler) dispatch(ctx context.Context, s *session, data []byte) {
	if !json.Valid(data) {
		h.sendError(ctx, s, "Invalid JSON payload")
		return
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil || frame == nil {
		h.sendError(ctx, s, "Invalid message format")
		return
	}

	if !h.limiter.Allow(ratelimit.EventKey(s.user.ID), ratelimit.EventLimit, ratelimit.EventWindow) {
		h.sendError(ctx, s, "Rate limit exceeded. Please slow down.")
		return
	}

	eventType := stringField(frame, "type")
	switch eventType {
	case event.TypeTypingStart, event.TypeTypingStop:
		h.handleTyping(ctx, s, eventType)
	case event.TypeMessageDelete:
		h.handleDelete(ctx, s, frame)
	case event.TypeMessageRead:
		h.handleRead(ctx, s, frame)
	default:
		// Anything else is treated as a chat message, matching clients that
		// omit the type field entirely.
		h.handleMessage(ctx, s, frame)
	}
}

func (h *Handler) handleTyping(ctx context.Context, s *session, eventType string) {
	h.registry.BroadcastExcept(ctx, s.conversationID, event.Typing{
		Type:           eventType,
		ConversationID: s.conversationID,
		SenderID:       s.user.ID,
		SenderUsername: s.user.Username,
	}, s.user.ID)
}

func (h *Handler) handleDelete(ctx context.Context, s *session, frame map[string]any) {
	messageID := messageIDField(frame)
	if messageID == "" {
		h.sendError(ctx, s, "Message ID is required")
		return
	}

	m, err := h.chat.SoftDelete(messageID, s.user.ID, s.conversationID)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrForbidden):
		h.sendError(ctx, s, "Not authorized to delete this message")
		return
	case errors.Is(err, errors.ErrNotFound):
		h.sendError(ctx, s, "Message not found")
		return
	default:
		h.log.Error("Message delete failed", slog.String("error", err.Error()))
		h.sendError(ctx, s, "Failed to delete message")
		return
	}

	// Deletion goes to everyone, the deleter included, so all views redact.
	h.registry.Broadcast(ctx, s.conversationID, event.MessageDelete{
		Type:           event.TypeMessageDelete,
		ConversationID: s.conversationID,
		DeletedBy:      s.user.ID,
		MessageID:      m.ID.String(),
		SenderID:       m.SenderID,
		IsDeleted:      m.IsDeleted,
		Content:        m.Content,
		UpdatedAt:      m.UpdatedAt,
	})
}

func (h *Handler) handleRead(ctx context.Context, s *session, frame map[string]any) {
	messageID := messageIDField(frame)
	if messageID == "" {
		h.sendError(ctx, s, "Message ID is required")
		return
	}

	m, err := h.chat.MarkRead(messageID, s.conversationID, time.Now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrForbidden):
		h.sendError(ctx, s, "Not authorized to read this message")
		return
	case errors.Is(err, errors.ErrNotFound):
		h.sendError(ctx, s, "Message not found")
		return
	default:
		h.log.Error("Read receipt failed", slog.String("error", err.Error()))
		h.sendError(ctx, s, "Failed to mark message as read")
		return
	}

	var readAt time.Time
	if m.ReadAt != nil {
		readAt = *m.ReadAt
	}
	h.registry.BroadcastExcept(ctx, s.conversationID, event.MessageRead{
		Type:           event.TypeMessageRead,
		MessageID:      m.ID.String(),
		ConversationID: s.conversationID,
		ReaderID:       s.user.ID,
		ReadAt:         readAt,
	}, s.user.ID)
}

func (h *Handler) handleMessage(ctx context.Context, s *session, frame map[string]any) {
	if !h.limiter.Allow(ratelimit.SendKey(s.conversationID, s.user.ID),
		ratelimit.SendLimit, ratelimit.SendWindow) {
		h.sendError(ctx, s, "Too many messages. Please slow down.")
		return
	}

	content := stringField(frame, "content")
	m, err := h.chat.CreateMessage(s.conversationID, s.user.ID, content)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrBlankContent):
		h.sendError(ctx, s, "Message content is required")
		return
	default:
		h.log.Error("Message create failed", slog.String("error", err.Error()))
		h.sendError(ctx, s, "Failed to send message")
		return
	}

	h.registry.Broadcast(ctx, s.conversationID, event.Message{
		Type:           event.TypeMessage,
		ID:             m.ID.String(),
		ConversationID: s.conversationID,
		SenderID:       s.user.ID,
		SenderUsername: s.user.Username,
		Content:        m.Content,
		IsEdited:       m.IsEdited,
		IsDeleted:      m.IsDeleted,
		Timestamp:      m.CreatedAt,
	})

	// Delivery time is best effort and must not delay the next frame.
	messageID := m.ID.String()
	h.tasks.Enqueue("message-delivered", func(ctx context.Context) error {
		return h.chat.MarkDelivered(messageID, time.Now().UTC())
	})
}

func (h *Handler) sendError(ctx context.Context, s *session, detail string) {
	if err := s.conn.Send(ctx, event.NewError(detail)); err != nil {
		h.log.Warn("Failed to deliver error event",
			slog.String("user_id", s.user.ID),
			slog.String("error", err.Error()))
	}
}

func stringField(frame map[string]any, key string) string {
	value, _ := frame[key].(string)
	return value
}

// messageIDField reads message_id, tolerating clients that send id instead.
func messageIDField(frame map[string]any) string {
	id := stringField(frame, "message_id")
	if id == "" {
		id = stringField(frame, "id")
	}
	return strings.TrimSpace(id)
}
