package client

import (
	"context"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
)

// Conn is one open push connection.
type Conn interface {
	// ReadMessage blocks until a frame arrives or the connection drops.
	ReadMessage() ([]byte, error)
	// WriteMessage sends a text frame (used for the heartbeat).
	WriteMessage(data []byte) error
	Close() error
}

// Transport opens push connections. The production implementation dials a
// websocket; tests inject fakes so the session state machine runs without a
// network.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type wsTransport struct {
	dialer *websocket.Dialer
}

// NewWebSocketTransport returns the production websocket transport.
func NewWebSocketTransport() Transport {
	return &wsTransport{
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (t *wsTransport) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
