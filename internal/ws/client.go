package ws

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/fleetflow/realtime/internal/metrics"
)

const sendBuffer = 256

// Client is one live websocket connection. It satisfies hub.Conn: the
// registry pushes frames into the buffered send channel and the write pump
// drains it in order, which is what gives per-connection ordered delivery.
type Client struct {
	conn   *websocket.Conn
	handle string
	userID string

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID, handle string) *Client {
	return &Client{
		conn:   conn,
		handle: handle,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) Handle() string { return c.handle }

func (c *Client) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Push enqueues a frame. A closed client or a full buffer drops the frame;
// a saturated consumer must never block the hub.
func (c *Client) Push(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		metrics.PushesDropped.Inc()
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump drains the send channel and keeps the connection alive with
// protocol pings. Runs in its own goroutine; exits when the client closes.
func (c *Client) writePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
