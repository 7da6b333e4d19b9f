// Package selection stores the in-progress text selection a user holds on a
// section while composing a comment. Selections are transient: they live in
// Redis with a short TTL and disappear on their own when the user walks away.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Selection is one user's pending highlight on one section.
type Selection struct {
	Start        int       `json:"start"`
	End          int       `json:"end"`
	SelectedText string    `json:"selected_text"`
	CreatedAt    time.Time `json:"created_at"`
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "selection:", ttl: ttl}, nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "selection:", ttl: ttl}
}

func (s *RedisStore) key(sectionID, userID string) string {
	return s.prefix + sectionID + ":" + userID
}

// Set replaces the user's pending selection on the section and restarts the TTL.
func (s *RedisStore) Set(ctx context.Context, sectionID, userID string, sel Selection) error {
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sectionID, userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// Get returns the user's pending selection, or nil when there is none.
func (s *RedisStore) Get(ctx context.Context, sectionID, userID string) (*Selection, error) {
	payload, err := s.client.Get(ctx, s.key(sectionID, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup selection: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal([]byte(payload), &sel); err != nil {
		return nil, fmt.Errorf("unmarshal selection: %w", err)
	}
	return &sel, nil
}

// Clear drops the user's pending selection. Clearing a missing key is fine.
func (s *RedisStore) Clear(ctx context.Context, sectionID, userID string) error {
	if err := s.client.Del(ctx, s.key(sectionID, userID)).Err(); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
