package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pulse/domain/event"
)

const (
	writeTimeout = 10 * time.Second
	closeTimeout = time.Second
)

// Conn wraps a gorilla connection behind the registry's Connection interface.
// Gorilla permits one concurrent writer, so every outbound frame goes through
// the mutex, including close control frames.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send serializes the event as one JSON text frame.
func (c *Conn) Send(_ context.Context, e event.ChatEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(e)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// CloseWithReason writes a close control frame carrying the code and reason,
// then tears the connection down.
func (c *Conn) CloseWithReason(code int, reason string) error {
	c.mu.Lock()
	deadline := time.Now().Add(closeTimeout)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	c.mu.Unlock()
	return c.ws.Close()
}

// ReadFrame blocks until the next inbound text frame. Cancelling ctx from
// the caller closes the socket, which unblocks the read with an error.
func (c *Conn) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, data, err := c.ws.ReadMessage()
	return data, err
}
