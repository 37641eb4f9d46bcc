package models

import (
	"errors"
	"fmt"
	"time"
)

// Notification type constants
const (
	TypeSafety      = "safety"
	TypeFinancial   = "financial"
	TypeMaintenance = "maintenance"
	TypeCompliance  = "compliance"
	TypeOperational = "operational"
)

// Severity constants
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

var ErrInvalidCandidate = errors.New("invalid notification candidate")

var validTypes = map[string]bool{
	TypeSafety:      true,
	TypeFinancial:   true,
	TypeMaintenance: true,
	TypeCompliance:  true,
	TypeOperational: true,
}

var validSeverities = map[string]bool{
	SeverityInfo:     true,
	SeverityWarning:  true,
	SeverityCritical: true,
}

// Notification is one delivered-or-deliverable fleet event, owned by a single user.
type Notification struct {
	ID         string    `bson:"_id" json:"id"`
	UserID     string    `bson:"user_id" json:"user_id"`
	Type       string    `bson:"type" json:"type"`
	Severity   string    `bson:"severity" json:"severity"`
	Title      string    `bson:"title" json:"title"`
	Message    string    `bson:"message" json:"message"`
	EntityType string    `bson:"entity_type,omitempty" json:"entity_type,omitempty"`
	EntityID   string    `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	IsRead     bool      `bson:"is_read" json:"is_read"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Candidate is what an event source submits. The hub assigns id, owner,
// created_at and read state on ingestion.
type Candidate struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
}

func (c Candidate) Validate() error {
	if !validTypes[c.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCandidate, c.Type)
	}
	if !validSeverities[c.Severity] {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidCandidate, c.Severity)
	}
	if c.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidCandidate)
	}
	return nil
}
