package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetflow/realtime/internal/metrics"
	"github.com/fleetflow/realtime/internal/models"
	"github.com/fleetflow/realtime/internal/store"
)

// Hub is the single entry point for turning a domain event into a persisted
// notification and a best-effort live push.
type Hub struct {
	store store.Store
	reg   *Registry
	log   *zap.SugaredLogger
}

func New(st store.Store, reg *Registry, log *zap.SugaredLogger) *Hub {
	return &Hub{store: st, reg: reg, log: log}
}

// Notify validates the candidate, persists it for the user, then pushes it to
// any live connections. Push failure never rolls back persistence: the row is
// already durable and the client's next catch-up will observe it.
func (h *Hub) Notify(ctx context.Context, userID string, c models.Candidate) (*models.Notification, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	n := &models.Notification{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       c.Type,
		Severity:   c.Severity,
		Title:      c.Title,
		Message:    c.Message,
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		IsRead:     false,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persisting notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()

	h.push(userID, n)
	return n, nil
}

// NotifyMany persists one notification per target user and pushes to each.
// Validation happens once, up front; a store error aborts remaining targets.
func (h *Hub) NotifyMany(ctx context.Context, userIDs []string, c models.Candidate) ([]*models.Notification, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := make([]*models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		n, err := h.Notify(ctx, uid, c)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (h *Hub) push(userID string, n *models.Notification) {
	payload, err := json.Marshal(models.NewNotificationEvent(n))
	if err != nil {
		h.log.Errorw("marshal push event", "id", n.ID, "err", err)
		return
	}
	sent := h.reg.Fanout(userID, payload)
	metrics.PushesSent.Add(float64(sent))
	h.log.Debugw("notification pushed", "id", n.ID, "user", userID, "type", n.Type, "sessions", sent)
}

// MarkRead is idempotent: marking an already-read notification is a no-op
// success. Returns store.ErrNotFound if the id is not owned by userID.
func (h *Hub) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	return h.store.MarkRead(ctx, userID, id)
}

// MarkAllRead flips every unread notification for the user and returns how
// many changed.
func (h *Hub) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return h.store.MarkAllRead(ctx, userID)
}

// UnreadCount is the authoritative unread count, independent of anything a
// client has cached.
func (h *Hub) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return h.store.UnreadCount(ctx, userID)
}
