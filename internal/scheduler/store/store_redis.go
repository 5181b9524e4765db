package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"ballotwatch/internal/scheduler"
)

const runStateKey = "ballotwatch:run-state"

// RedisStateStore persists run state as a JSON blob in redis.
type RedisStateStore struct {
	client *goredis.Client
}

// NewRedis wraps an existing redis client.
func NewRedis(client *goredis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Load reads the persisted state; a missing key means no run has completed.
func (s *RedisStateStore) Load(ctx context.Context) (scheduler.RunState, error) {
	raw, err := s.client.Get(ctx, runStateKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return scheduler.RunState{}, nil
	}
	if err != nil {
		return scheduler.RunState{}, fmt.Errorf("store: load run state: %w", err)
	}

	var state scheduler.RunState
	if err := json.Unmarshal(raw, &state); err != nil {
		return scheduler.RunState{}, fmt.Errorf("store: decode run state: %w", err)
	}
	return state, nil
}

// Save replaces the persisted state. No TTL; the state is tiny and the next
// run overwrites it.
func (s *RedisStateStore) Save(ctx context.Context, state scheduler.RunState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: encode run state: %w", err)
	}
	if err := s.client.Set(ctx, runStateKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("store: save run state: %w", err)
	}
	return nil
}
