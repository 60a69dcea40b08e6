package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

const keyPrefix = "PROFILE_CACHE:"

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "board_profile_cache_lookups_total",
	Help: "Profile cache lookups by result.",
}, []string{"result"})

// Value stored under PROFILE_CACHE:<id>
type profileEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// RedisProfileStore takes a redis.Cmdable so that a client, a cluster client
// or a test double can be injected.
type RedisProfileStore struct {
	client redis.Cmdable
}

func NewRedisProfileStore(client redis.Cmdable) *RedisProfileStore {
	return &RedisProfileStore{client: client}
}

func Key(memberID string) string {
	return keyPrefix + memberID
}

// GetProfiles : one MGET for the whole batch
func (s *RedisProfileStore) GetProfiles(ctx context.Context, ids []string) (map[string]domain.AuthorProfile, error) {
	out := make(map[string]domain.AuthorProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w: %w", domain.ErrStoreUnavailable, err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// nil = miss
			continue
		}
		var e profileEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.ID != ids[i] {
			// Corrupt entry: treat as a miss, the write-back overwrites it
			slog.Warn("⚠️ Dropping unreadable profile cache entry", "key", keys[i], "error", err)
			continue
		}
		out[ids[i]] = domain.AuthorProfile{ID: e.ID, DisplayName: e.DisplayName, AvatarRef: e.AvatarRef}
	}

	lookups.WithLabelValues("hit").Add(float64(len(out)))
	lookups.WithLabelValues("miss").Add(float64(len(ids) - len(out)))
	return out, nil
}

// SetProfiles : pipelined SET EX, a single round trip
func (s *RedisProfileStore) SetProfiles(ctx context.Context, profiles []domain.AuthorProfile, ttl time.Duration) error {
	if len(profiles) == 0 {
		return nil
	}

	payloads := make([][]byte, len(profiles))
	for i, p := range profiles {
		raw, err := json.Marshal(profileEntry{ID: p.ID, DisplayName: p.DisplayName, AvatarRef: p.AvatarRef})
		if err != nil {
			return fmt.Errorf("marshal profile %s: %w", p.ID, err)
		}
		payloads[i] = raw
	}

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range profiles {
			pipe.Set(ctx, Key(p.ID), payloads[i], ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline set: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisProfileStore) DeleteProfile(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
