package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Router upgrades HTTP requests on /ws/chat/{conversation_id} and hands the
// socket to the session handler. Token extraction happens before the upgrade
// but rejection happens after it, over a close frame, so browser clients can
// read the reason.
type Router struct {
	handler  *Handler
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewRouter(handler *Handler, log *slog.Logger) *Router {
	return &Router{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/chat/{conversation_id}", rt.serveChat)
}

func (rt *Router) serveChat(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("conversation_id")
	token := extractToken(r)

	ws, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.log.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	rt.handler.Serve(r.Context(), NewConn(ws), conversationID, token)
}

// extractToken reads the bearer token from the token query parameter, falling
// back to the Authorization header.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return ""
}
