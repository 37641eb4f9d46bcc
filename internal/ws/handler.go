package ws

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleetflow/realtime/internal/auth"
	"github.com/fleetflow/realtime/internal/hub"
	"github.com/fleetflow/realtime/internal/metrics"
	"github.com/fleetflow/realtime/internal/presence"
)

// Close code sent when the handshake token is missing, invalid or expired.
const closeInvalidToken = 4001

const readDeadline = 90 * time.Second

type Options struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	MaxMsgSize    int64
	// MessagesPerSecond caps inbound frames per connection.
	MessagesPerSecond int
}

// Handler upgrades authenticated clients and wires them into the registry.
type Handler struct {
	reg      *hub.Registry
	presence *presence.Store // nil when redis is not configured
	secret   string
	opts     Options
	log      *zap.SugaredLogger
}

func NewHandler(reg *hub.Registry, pres *presence.Store, secret string, opts Options, log *zap.SugaredLogger) *Handler {
	return &Handler{reg: reg, presence: pres, secret: secret, opts: opts, log: log}
}

// Upgrade guards the route so only websocket upgrade requests reach Serve.
func (h *Handler) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Serve authenticates the handshake token (query parameter, since browsers
// cannot set headers on the upgrade request) and runs the connection pumps.
func (h *Handler) Serve() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		claims, err := auth.ValidateToken(h.secret, conn.Query("token"))
		if err != nil {
			h.log.Warnw("ws handshake rejected", "err", err)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeInvalidToken, "invalid token"),
				time.Now().Add(time.Second))
			_ = conn.Close()
			return
		}
		userID := claims.UserID()

		client := newClient(conn, userID, uuid.NewString())
		h.reg.Register(userID, client)
		metrics.Connections.Inc()
		if h.presence != nil {
			_ = h.presence.Online(context.Background(), userID)
		}
		h.log.Infow("ws connected", "user", userID, "handle", client.Handle(), "sessions", h.reg.Sessions())

		go client.writePump(h.opts.PingInterval, h.opts.WriteDeadline)
		h.readPump(client)

		remaining := h.reg.Unregister(userID, client)
		metrics.Connections.Dec()
		if h.presence != nil && remaining == 0 {
			_ = h.presence.Offline(context.Background(), userID)
		}
		h.log.Infow("ws disconnected", "user", userID, "handle", client.Handle())
	}
}

// readPump consumes inbound frames until the connection drops. The only
// client frame in the protocol is a bare "ping" keepalive, answered with
// "pong"; everything else is tolerated and ignored. Absence of heartbeats is
// not treated as an error beyond the read deadline refreshed by pongs.
func (h *Handler) readPump(c *Client) {
	defer c.close()

	limiter := rate.NewLimiter(rate.Limit(h.opts.MessagesPerSecond), h.opts.MessagesPerSecond)

	c.conn.SetReadLimit(h.opts.MaxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		if !limiter.Allow() {
			continue
		}
		if h.presence != nil {
			_ = h.presence.Online(context.Background(), c.userID)
		}
		if string(data) == "ping" {
			c.Push([]byte("pong"))
		}
	}
}
