package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const wsWriteTimeout = 5 * time.Second

// WSFrame is the JSON frame exchanged with browser clients. Clients send
// {"text": "..."}; the server sends type "session", "message" or "typing".
type WSFrame struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// WebSocketChannel serves quiz sessions to browser clients. Each user holds
// at most one connection; a new connection replaces the old one.
type WebSocketChannel struct {
	originPatterns []string

	mu      sync.RWMutex
	conns   map[string]*websocket.Conn
	handler func(InboundMessage)
}

// NewWebSocketChannel creates a WebSocket channel. originPatterns are passed
// to the handshake; empty allows same-origin requests only.
func NewWebSocketChannel(originPatterns ...string) *WebSocketChannel {
	return &WebSocketChannel{
		originPatterns: originPatterns,
		conns:          make(map[string]*websocket.Conn),
	}
}

func (c *WebSocketChannel) Start(_ context.Context, handler func(InboundMessage)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	return nil
}

func (c *WebSocketChannel) Stop() error {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*websocket.Conn)
	c.handler = nil
	c.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}

func (c *WebSocketChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	return c.write(ctx, userID, WSFrame{Type: "message", Text: msg.Text})
}

// SendTyping is best effort: a user who has gone away gets nothing.
func (c *WebSocketChannel) SendTyping(ctx context.Context, userID string) error {
	if !c.Connected(userID) {
		return nil
	}
	return c.write(ctx, userID, WSFrame{Type: "typing"})
}

func (c *WebSocketChannel) write(ctx context.Context, userID string, frame WSFrame) error {
	c.mu.RLock()
	conn, ok := c.conns[userID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("websocket user %s is not connected", userID)
	}

	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Connected reports whether userID has an open connection.
func (c *WebSocketChannel) Connected(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.conns[userID]
	return ok
}

// ServeHTTP upgrades GET /ws?user=<id> and reads frames until the client
// goes away. Without a user parameter the connection gets a fresh id, sent
// to the client in a "session" frame. Frames from one connection are handled
// in order.
func (c *WebSocketChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		userID = uuid.NewString()
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		http.Error(w, "websocket channel not started", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: c.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	c.register(userID, conn)
	defer c.unregister(userID, conn)
	slog.Info("websocket connected", "user_id", userID)

	ctx := r.Context()
	if err := c.write(ctx, userID, WSFrame{Type: "session", Text: userID}); err != nil {
		slog.Warn("websocket session frame failed", "user_id", userID, "error", err)
		return
	}
	for {
		var in WSFrame
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			logReadError(userID, err)
			return
		}
		text := strings.TrimSpace(in.Text)
		if text == "" {
			continue
		}
		handler(InboundMessage{
			Channel:    "websocket",
			UserID:     userID,
			ExternalID: userID,
			Text:       text,
		})
	}
}

func (c *WebSocketChannel) register(userID string, conn *websocket.Conn) {
	c.mu.Lock()
	old, ok := c.conns[userID]
	c.conns[userID] = conn
	c.mu.Unlock()

	if ok {
		_ = old.Close(websocket.StatusPolicyViolation, "replaced by a new connection")
	}
}

func (c *WebSocketChannel) unregister(userID string, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[userID] == conn {
		delete(c.conns, userID)
	}
}

func logReadError(userID string, err error) {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		slog.Info("websocket closed", "user_id", userID)
		return
	}
	if errors.Is(err, context.Canceled) {
		slog.Info("websocket closed", "user_id", userID)
		return
	}
	slog.Warn("websocket read failed", "user_id", userID, "error", err)
}
