package store

import (
	"context"
	"sync"

	"github.com/fleetflow/realtime/internal/models"
)

// MemoryStore keeps notifications in process memory. Used when no mongo URI
// is configured (single-node dev installs) and by tests.
type MemoryStore struct {
	mu    sync.RWMutex
	byUsr map[string][]*models.Notification // append order = oldest first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUsr: make(map[string][]*models.Notification)}
}

func (s *MemoryStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.byUsr[n.UserID] = append(s.byUsr[n.UserID], &cp)
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID string, page, pageSize int, f ListFilter) (*Page, error) {
	page, pageSize = normalizePage(page, pageSize)
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byUsr[userID]
	matched := make([]*models.Notification, 0, len(all))
	// newest first
	for i := len(all) - 1; i >= 0; i-- {
		n := all[i]
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.UnreadOnly && n.IsRead {
			continue
		}
		matched = append(matched, n)
	}

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	items := make([]*models.Notification, 0, end-start)
	for _, n := range matched[start:end] {
		cp := *n
		items = append(items, &cp)
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *MemoryStore) UnreadCount(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.byUsr[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, userID, id string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.byUsr[userID] {
		if n.ID == id {
			n.IsRead = true
			cp := *n
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.byUsr[userID] {
		if !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}
