package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore provides a Redis-backed implementation of the Store interface,
// suitable for multi-process deployments that need session snapshots to
// survive a reconnect landing on a different process.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the time-to-live for session snapshots. Default 24h, 0 disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for Redis keys. Default "voiceagent".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore creates a new Redis-backed session snapshot store.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    defaultTTLHours * time.Hour,
		prefix: "voiceagent",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sessionID)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:sessions", s.prefix)
}

// Load retrieves a session snapshot by ID from Redis.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	if sessionID == "" {
		return nil, ErrInvalidID
	}

	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Save persists a session snapshot to Redis with TTL, tracking it in a
// sorted set keyed by last-access time for List.
func (s *RedisStore) Save(ctx context.Context, snapshot *SessionSnapshot) error {
	if snapshot == nil {
		return ErrInvalidSnapshot
	}
	if snapshot.SessionID == "" {
		return ErrInvalidID
	}

	stored := snapshot.clone()
	if stored.CreatedAt.IsZero() {
		if existing, err := s.Load(ctx, snapshot.SessionID); err == nil {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = time.Now()
		}
	}
	stored.LastAccessedAt = time.Now()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(stored.SessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(stored.LastAccessedAt.UnixNano()), Member: stored.SessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Delete removes a session snapshot from Redis.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidID
	}

	pipe := s.client.Pipeline()
	delCmd := pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	if delCmd.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns session IDs from the sorted index, most recently updated first.
func (s *RedisStore) List(ctx context.Context, opts ListOptions) ([]string, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100
	}

	ascending := strings.EqualFold(opts.SortOrder, "asc")
	var ids []string
	var err error
	if opts.SortBy == SortByCreatedAt {
		ids, err = s.listSortedByCreatedAt(ctx, ascending, opts.Offset, limit)
	} else if ascending {
		ids, err = s.client.ZRange(ctx, s.indexKey(), int64(opts.Offset), int64(opts.Offset+limit-1)).Result()
	} else {
		ids, err = s.client.ZRevRange(ctx, s.indexKey(), int64(opts.Offset), int64(opts.Offset+limit-1)).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redis range failed: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) listSortedByCreatedAt(ctx context.Context, ascending bool, offset, limit int) ([]string, error) {
	all, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	type entry struct {
		id string
		t  time.Time
	}
	entries := make([]entry, 0, len(all))
	for _, id := range all {
		snap, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		entries = append(entries, entry{id: id, t: snap.CreatedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].t.Before(entries[j].t)
		}
		return entries[i].t.After(entries[j].t)
	})

	if offset >= len(entries) {
		return []string{}, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}

	out := make([]string, end-offset)
	for i, e := range entries[offset:end] {
		out[i] = e.id
	}
	return out, nil
}
