package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "portal:session:"

// Store records session start times in Redis with a sliding TTL.
type Store struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewStore creates a Store. Keys expire ttl after the session was last touched.
func NewStore(client goredis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func startKey(id string) string {
	return keyPrefix + id + ":start"
}

// Start records now as the start of session id unless one is already recorded, and
// returns the effective start. An existing session has its TTL extended.
func (s *Store) Start(ctx context.Context, id string, now time.Time) (time.Time, error) {
	key := startKey(id)
	now = now.UTC().Truncate(time.Second)

	created, err := s.client.SetNX(ctx, key, now.Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to record session start: %w", err)
	}
	if created {
		return now, nil
	}

	started, err := s.StartedAt(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if started == nil {
		// expired between SETNX and GET
		return now, nil
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return time.Time{}, fmt.Errorf("failed to extend session: %w", err)
	}
	return *started, nil
}

// StartedAt returns the recorded start of session id, or nil when there is none.
func (s *Store) StartedAt(ctx context.Context, id string) (*time.Time, error) {
	raw, err := s.client.Get(ctx, startKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session start: %w", err)
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session start %q: %w", raw, err)
	}
	return &t, nil
}

// End forgets session id.
func (s *Store) End(ctx context.Context, id string) error {
	return s.client.Del(ctx, startKey(id)).Err()
}
