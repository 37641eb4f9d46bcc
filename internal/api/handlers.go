package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetflow/realtime/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GET /api/notifications?page=&page_size=&type=&unread_only=
func (s *Server) list(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter := store.ListFilter{
		Type:       c.Query("type"),
		UnreadOnly: c.QueryBool("unread_only", false),
	}

	result, err := s.store.List(c.Context(), userID(c), page, pageSize, filter)
	if err != nil {
		s.log.Errorw("list notifications", "err", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(result)
}

// GET /api/notifications/unread-count
func (s *Server) unreadCount(c *fiber.Ctx) error {
	count, err := s.hub.UnreadCount(c.Context(), userID(c))
	if err != nil {
		s.log.Errorw("unread count", "err", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// PATCH /api/notifications/:id/read
func (s *Server) markRead(c *fiber.Ctx) error {
	n, err := s.hub.MarkRead(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Notification not found")
		}
		s.log.Errorw("mark read", "id", c.Params("id"), "err", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(n)
}

// PATCH /api/notifications/read-all
func (s *Server) markAllRead(c *fiber.Ctx) error {
	changed, err := s.hub.MarkAllRead(c.Context(), userID(c))
	if err != nil {
		s.log.Errorw("mark all read", "err", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"updated": changed})
}
