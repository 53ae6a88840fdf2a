package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pulse/auth"
	"pulse/domain"
	"pulse/mocks"
)

func serveChat(t *testing.T, conversations *mocks.MockIConversationRepository,
	chat *mocks.MockIChatService, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewChatHandler(conversations, chat, slog.Default()).Register(mux)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, r)
	return recorder
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, auth.KindAccess, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestCreateConversation_Adds_Creator_As_Participant(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	conversations := mocks.NewMockIConversationRepository(ctrl)
	chat := mocks.NewMockIChatService(ctrl)

	conversations.EXPECT().
		CreateConversation("general", "", true, []string{"bob", "alice"}).
		Return(domain.Conversation{ID: "conv1", Name: "general"}, nil)

	r := httptest.NewRequest(http.MethodPost, "/api/conversations",
		strings.NewReader(`{"name":"general","is_group":true,"participant_ids":["bob"]}`))
	r.Header.Set("Authorization", bearer(t, "alice"))

	res := serveChat(t, conversations, chat, r)

	req.Equal(http.StatusCreated, res.Code)
	req.Contains(res.Body.String(), "conv1")
}

func TestCreateConversation_Requires_Token(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	r := httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(`{}`))
	res := serveChat(t, mocks.NewMockIConversationRepository(ctrl),
		mocks.NewMockIChatService(ctrl), r)

	req.Equal(http.StatusUnauthorized, res.Code)
}

func TestHistory_Requires_Membership(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	conversations := mocks.NewMockIConversationRepository(ctrl)
	chat := mocks.NewMockIChatService(ctrl)

	chat.EXPECT().IsMember("conv1", "alice").Return(false, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/conversations/conv1/messages", nil)
	r.Header.Set("Authorization", bearer(t, "alice"))

	res := serveChat(t, conversations, chat, r)

	req.Equal(http.StatusForbidden, res.Code)
	req.Contains(res.Body.String(), "Not a participant in this conversation")
}

func TestHistory_Honors_Limit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	conversations := mocks.NewMockIConversationRepository(ctrl)
	chat := mocks.NewMockIChatService(ctrl)

	chat.EXPECT().IsMember("conv1", "alice").Return(true, nil)
	chat.EXPECT().History("conv1", 10).
		Return([]domain.Message{{Content: "hello"}}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/conversations/conv1/messages?limit=10", nil)
	r.Header.Set("Authorization", bearer(t, "alice"))

	res := serveChat(t, conversations, chat, r)

	req.Equal(http.StatusOK, res.Code)
	req.Contains(res.Body.String(), "hello")
}
