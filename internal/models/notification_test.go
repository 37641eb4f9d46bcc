package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidate_Validate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		c       Candidate
		wantErr bool
	}{
		{"valid safety critical", Candidate{Type: TypeSafety, Severity: SeverityCritical, Title: "t"}, false},
		{"valid operational info", Candidate{Type: TypeOperational, Severity: SeverityInfo, Title: "t"}, false},
		{"unknown type", Candidate{Type: "bogus", Severity: SeverityInfo, Title: "t"}, true},
		{"unknown severity", Candidate{Type: TypeFinancial, Severity: "urgent", Title: "t"}, true},
		{"empty type", Candidate{Severity: SeverityInfo, Title: "t"}, true},
		{"empty severity", Candidate{Type: TypeCompliance, Title: "t"}, true},
		{"missing title", Candidate{Type: TypeMaintenance, Severity: SeverityWarning}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCandidate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewNotificationEvent_WireShape(t *testing.T) {
	t.Parallel()
	n := &Notification{
		ID:         "n-1",
		UserID:     "alice",
		Type:       TypeCompliance,
		Severity:   SeverityWarning,
		Title:      "Inspection due",
		Message:    "Vehicle AB-123 inspection due in 7 days",
		EntityType: "vehicle",
		EntityID:   "v-9",
		CreatedAt:  time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(NewNotificationEvent(n))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "new_notification", m["event"])
	assert.Equal(t, "n-1", m["id"])
	assert.Equal(t, "compliance", m["type"])
	assert.Equal(t, "warning", m["severity"])
	assert.Equal(t, "vehicle", m["entity_type"])
	// the owner never travels on the wire
	assert.NotContains(t, m, "user_id")
}

func TestNewNotificationEvent_OmitsEmptyEntityRef(t *testing.T) {
	t.Parallel()
	n := &Notification{ID: "n-2", Type: TypeSafety, Severity: SeverityInfo, Title: "t", CreatedAt: time.Now()}

	b, err := json.Marshal(NewNotificationEvent(n))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "entity_type")
	assert.NotContains(t, m, "entity_id")
}
