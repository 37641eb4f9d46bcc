package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RESTClient talks to the notification REST surface. Transient failures
// (network errors, 5xx) are retried with exponential backoff; 4xx are not.
type RESTClient struct {
	base       string
	token      string
	http       *http.Client
	maxElapsed time.Duration
}

func NewRESTClient(base, token string) *RESTClient {
	return &RESTClient{
		base:       base,
		token:      token,
		http:       &http.Client{Timeout: 15 * time.Second},
		maxElapsed: 20 * time.Second,
	}
}

// do runs one request with retries. Errors returned bare are retried by
// backoff; backoff.Permanent stops immediately.
func (r *RESTClient) do(ctx context.Context, method, path string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, r.base+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+r.token)

		resp, err := r.http.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("decoding %s %s: %w", method, path, err))
			}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsed
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

type listResponse struct {
	Items []Notification `json:"items"`
	Total int64          `json:"total"`
}

// Notifications fetches the most recent pageSize notifications, newest first.
func (r *RESTClient) Notifications(ctx context.Context, pageSize int) ([]Notification, error) {
	var out listResponse
	path := fmt.Sprintf("/api/notifications?page_size=%d", pageSize)
	if err := r.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// UnreadCount fetches the authoritative unread count.
func (r *RESTClient) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/notifications/unread-count", &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

// MarkRead marks one notification read. Idempotent server-side.
func (r *RESTClient) MarkRead(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodPatch, "/api/notifications/"+id+"/read", nil)
}

// MarkAllRead marks everything read and returns the changed count.
func (r *RESTClient) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := r.do(ctx, http.MethodPatch, "/api/notifications/read-all", &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}
