// Package api carries the thin HTTP surface around the realtime endpoint:
// account registration, login, conversation setup and message history.
package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody mirrors the {"detail": ...} shape clients already parse from
// websocket error events.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// clientAddr strips the port so one client maps to one throttle key
// regardless of the ephemeral port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func logRequestError(log *slog.Logger, r *http.Request, err error) {
	log.Error("Request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
}
