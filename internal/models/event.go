package models

import "time"

// Push event kinds. Anything else on the wire is reserved and ignored by clients.
const EventNewNotification = "new_notification"

// PushEvent is the wire format for server->client frames.
type PushEvent struct {
	Event      string    `json:"event"`
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewNotificationEvent(n *Notification) PushEvent {
	return PushEvent{
		Event:      EventNewNotification,
		ID:         n.ID,
		Type:       n.Type,
		Severity:   n.Severity,
		Title:      n.Title,
		Message:    n.Message,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		CreatedAt:  n.CreatedAt,
	}
}
