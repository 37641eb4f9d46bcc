package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleetflow/realtime/internal/auth"
	"github.com/fleetflow/realtime/internal/hub"
	"github.com/fleetflow/realtime/internal/models"
	"github.com/fleetflow/realtime/internal/store"
	"github.com/fleetflow/realtime/internal/ws"
)

const testSecret = "test-secret"

type testEnv struct {
	app *fiber.App
	hub *hub.Hub
	st  *store.MemoryStore
	reg *hub.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop().Sugar()
	st := store.NewMemoryStore()
	reg := hub.NewRegistry()
	h := hub.New(st, reg, log)
	wsHandler := ws.NewHandler(reg, nil, testSecret, ws.Options{
		PingInterval:      25 * time.Second,
		WriteDeadline:     10 * time.Second,
		MaxMsgSize:        64 * 1024,
		MessagesPerSecond: 10,
	}, log)
	return &testEnv{app: New(h, st, wsHandler, testSecret, log), hub: h, st: st, reg: reg}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserUUID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (e *testEnv) request(t *testing.T, method, path, userID string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out))
}

func notify(t *testing.T, h *hub.Hub, userID string, c models.Candidate) *models.Notification {
	t.Helper()
	n, err := h.Notify(context.Background(), userID, c)
	require.NoError(t, err)
	return n
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/notifications", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/notifications/unread-count", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ListNotifications(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		notify(t, env.hub, "alice", models.Candidate{
			Type:     models.TypeFinancial,
			Severity: models.SeverityInfo,
			Title:    fmt.Sprintf("Fuel spend alert %d", i),
			Message:  "m",
		})
	}
	notify(t, env.hub, "bob", models.Candidate{
		Type: models.TypeSafety, Severity: models.SeverityCritical, Title: "x", Message: "m",
	})

	resp := env.request(t, http.MethodGet, "/api/notifications?page_size=2", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items      []models.Notification `json:"items"`
		Total      int64                 `json:"total"`
		Page       int                   `json:"page"`
		PageSize   int                   `json:"page_size"`
		TotalPages int                   `json:"total_pages"`
	}
	decodeBody(t, resp, &page)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	// newest first
	assert.Equal(t, "Fuel spend alert 2", page.Items[0].Title)
}

func TestAPI_ListRoundTripsNotifyFields(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	created := notify(t, env.hub, "alice", models.Candidate{
		Type:       models.TypeCompliance,
		Severity:   models.SeverityWarning,
		Title:      "Inspection due",
		Message:    "Vehicle AB-123 inspection due",
		EntityType: "vehicle",
		EntityID:   "v-1",
	})

	resp := env.request(t, http.MethodGet, "/api/notifications?page_size=10", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items []models.Notification `json:"items"`
	}
	decodeBody(t, resp, &page)
	require.Len(t, page.Items, 1)
	got := page.Items[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Type, got.Type)
	assert.Equal(t, created.Severity, got.Severity)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Message, got.Message)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)
}

func TestAPI_UnreadCount(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	for i := 0; i < 4; i++ {
		notify(t, env.hub, "alice", models.Candidate{
			Type: models.TypeOperational, Severity: models.SeverityInfo, Title: "t", Message: "m",
		})
	}

	resp := env.request(t, http.MethodGet, "/api/notifications/unread-count", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, int64(4), out.UnreadCount)
}

func TestAPI_MarkRead(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	n := notify(t, env.hub, "alice", models.Candidate{
		Type: models.TypeSafety, Severity: models.SeverityCritical, Title: "t", Message: "m",
	})

	resp := env.request(t, http.MethodPatch, "/api/notifications/"+n.ID+"/read", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Notification
	decodeBody(t, resp, &got)
	assert.True(t, got.IsRead)

	// idempotent: second call is still a success
	resp = env.request(t, http.MethodPatch, "/api/notifications/"+n.ID+"/read", "alice")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// another user's token cannot read-mark it
	resp = env.request(t, http.MethodPatch, "/api/notifications/"+n.ID+"/read", "bob")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodPatch, "/api/notifications/unknown/read", "alice")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_MarkAllRead(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		notify(t, env.hub, "alice", models.Candidate{
			Type: models.TypeMaintenance, Severity: models.SeverityWarning, Title: "t", Message: "m",
		})
	}
	for i := 0; i < 3; i++ {
		n := notify(t, env.hub, "alice", models.Candidate{
			Type: models.TypeMaintenance, Severity: models.SeverityWarning, Title: "t", Message: "m",
		})
		_, err := env.hub.MarkRead(ctx, "alice", n.ID)
		require.NoError(t, err)
	}

	resp := env.request(t, http.MethodPatch, "/api/notifications/read-all", "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Updated int64 `json:"updated"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, int64(5), out.Updated)

	resp = env.request(t, http.MethodGet, "/api/notifications/unread-count", "alice")
	var count struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decodeBody(t, resp, &count)
	assert.Equal(t, int64(0), count.UnreadCount)
}

func TestAPI_Healthz(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_WSRouteRequiresUpgrade(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// plain GET without upgrade headers is rejected before any auth
	resp := env.request(t, http.MethodGet, "/ws/notifications?token=x", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
