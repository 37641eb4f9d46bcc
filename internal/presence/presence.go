package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps per-user presence in redis so the dashboard (and other
// processes) can tell whether a user has a live push channel.
// Keys: <prefix>:presence:<userID> -> {"status":...,"last_seen":...}
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type Status struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func New(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

// Online marks the user online with a TTL. Called on connect and refreshed by
// inbound traffic, so a crashed process leaves no stale online entries.
func (s *Store) Online(ctx context.Context, userID string) error {
	return s.set(ctx, userID, "online", s.ttl)
}

// Offline marks the user offline. Called when the last connection for the
// user goes away.
func (s *Store) Offline(ctx context.Context, userID string) error {
	return s.set(ctx, userID, "offline", 0)
}

func (s *Store) set(ctx context.Context, userID, status string, ttl time.Duration) error {
	b, err := json.Marshal(Status{Status: status, LastSeen: time.Now().Unix()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), b, ttl).Err()
}

// Get returns the stored presence, or a zero-value "offline" status when the
// key is absent or expired.
func (s *Store) Get(ctx context.Context, userID string) (*Status, error) {
	b, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &Status{Status: "offline"}, nil
		}
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
