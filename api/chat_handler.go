package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"pulse/auth"
	"pulse/contract"
	"pulse/errors"
)

const defaultHistoryLimit = 50

// ChatHandler serves conversation setup and history over plain HTTP. The
// realtime traffic itself lives on the websocket endpoint.
type ChatHandler struct {
	conversations contract.IConversationRepository
	chat          contract.IChatService
	log           *slog.Logger
}

func NewChatHandler(conversations contract.IConversationRepository,
	chat contract.IChatService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{conversations: conversations, chat: chat, log: log}
}

func (h *ChatHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/conversations", h.createConversation)
	mux.HandleFunc("GET /api/conversations/{conversation_id}/messages", h.history)
}

// authenticate resolves the bearer token to a user id or writes a 401.
func (h *ChatHandler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeError(w, http.StatusUnauthorized, "Missing authentication token")
		return "", false
	}
	claims, err := auth.ValidateAccessToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return "", false
	}
	return claims.UserID, true
}

type createConversationBody struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	IsGroup        bool     `json:"is_group"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (h *ChatHandler) createConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var body createConversationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	// The creator is always a participant.
	conversation, err := h.conversations.CreateConversation(
		body.Name, body.Description, body.IsGroup,
		append(body.ParticipantIDs, userID))
	if err != nil {
		logRequestError(h.log, r, err)
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conversation)
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	conversationID := r.PathValue("conversation_id")

	isMember, err := h.chat.IsMember(conversationID, userID)
	if err != nil {
		logRequestError(h.log, r, err)
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, "Not a participant in this conversation")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	messages, err := h.chat.History(conversationID, limit)
	if errors.Is(err, errors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		logRequestError(h.log, r, err)
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
