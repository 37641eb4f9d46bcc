// Package client implements the sync engine dashboards embed: one logical
// push connection per authenticated session with automatic reconnection,
// merged with REST catch-up so the local notification set survives dropped
// connections and server restarts.
package client

import (
	"encoding/json"
	"time"
)

// Notification mirrors the server's wire representation. The client keeps
// its own type so importers do not depend on server internals.
type Notification struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// State of the push channel, as exposed to UI bindings.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Snapshot is one coherent view of local state, published to subscribers on
// every mutation. Notifications are newest first; UnreadCount always matches
// the number of unread items the client believes it has.
type Snapshot struct {
	Notifications []Notification
	UnreadCount   int
	State         State
}

// pushEvent is the inbound tagged union. Only new_notification is acted on;
// unknown event values are reserved and ignored.
type pushEvent struct {
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

// decodeEvent parses an inbound frame. Non-JSON frames (including the
// server's "pong" keepalive reply) report ok=false.
func decodeEvent(data []byte) (pushEvent, bool) {
	var ev pushEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return pushEvent{}, false
	}
	if ev.Event == "" {
		return pushEvent{}, false
	}
	return ev, true
}

func (e pushEvent) notification() Notification {
	return Notification{
		ID:         e.ID,
		Type:       e.Type,
		Severity:   e.Severity,
		Title:      e.Title,
		Message:    e.Message,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		IsRead:     false,
		CreatedAt:  e.CreatedAt,
	}
}
