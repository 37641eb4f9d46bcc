package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &RESTClient{
		base:       srv.URL,
		token:      "tok",
		http:       srv.Client(),
		maxElapsed: 3 * time.Second,
	}
}

func TestRESTClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	c := newRetryClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"unread_count": 3}`))
	})

	count, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
}

func TestRESTClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	c := newRetryClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.MarkRead(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int64(1), calls.Load())
}

func TestRESTClient_SendsBearerToken(t *testing.T) {
	t.Parallel()
	var gotAuth atomic.Value
	c := newRetryClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"items": [], "total": 0}`))
	})

	_, err := c.Notifications(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth.Load())
}
