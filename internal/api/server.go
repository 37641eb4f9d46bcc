package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fleetflow/realtime/internal/hub"
	"github.com/fleetflow/realtime/internal/store"
	"github.com/fleetflow/realtime/internal/ws"
)

type Server struct {
	hub   *hub.Hub
	store store.Store
	log   *zap.SugaredLogger
}

// New assembles the fiber app: the REST surface under /api, the websocket
// upgrade route, and health.
func New(h *hub.Hub, st store.Store, wsHandler *ws.Handler, secret string, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	s := &Server{hub: h, store: st, log: log}

	app.Use(requestLogger(log))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/ws/notifications", wsHandler.Upgrade(), websocket.New(wsHandler.Serve()))

	api := app.Group("/api")
	authd := RequireAuth(secret)
	api.Get("/notifications", authd, s.list)
	api.Get("/notifications/unread-count", authd, s.unreadCount)
	// read-all must be registered before the :id route
	api.Patch("/notifications/read-all", authd, s.markAllRead)
	api.Patch("/notifications/:id/read", authd, s.markRead)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
}

func requestLogger(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debugw("http",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"took", time.Since(start),
		)
		return err
	}
}
