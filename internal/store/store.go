package store

import (
	"context"
	"errors"

	"github.com/fleetflow/realtime/internal/models"
)

// ErrNotFound is returned when a notification does not exist or is not owned
// by the requesting user.
var ErrNotFound = errors.New("notification not found")

// ListFilter narrows a List call. Zero value means no filtering.
type ListFilter struct {
	Type       string
	UnreadOnly bool
}

// Page is the paginated envelope returned by List.
type Page struct {
	Items      []*models.Notification `json:"items"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

// Store is the durable record of notifications and their read state.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	// List returns the given user's notifications newest first.
	List(ctx context.Context, userID string, page, pageSize int, f ListFilter) (*Page, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead is idempotent; marking an already-read notification succeeds.
	// Returns ErrNotFound if the id is absent or owned by someone else.
	MarkRead(ctx context.Context, userID, id string) (*models.Notification, error)
	// MarkAllRead returns the number of notifications flipped to read.
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// normalizePage guards List implementations against out-of-range paging
// from callers that bypass the HTTP handlers.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	if total == 0 || pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
