package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/ports"
)

const DefaultProfileTTL = time.Hour

// ProfileCache is a cache-aside lookup of author profiles.
// Per call: one bulk read, one batch load for the misses, one pipelined write-back.
type ProfileCache struct {
	store ports.ProfileCacheStore
	repo  ports.ProfileRepository
	ttl   time.Duration
}

func NewProfileCache(store ports.ProfileCacheStore, repo ports.ProfileRepository, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{store: store, repo: repo, ttl: ttl}
}

// GetMany returns the profiles found for ids. Ids that exist neither in the
// cache nor in the store are absent from the result.
func (c *ProfileCache) GetMany(ctx context.Context, ids []string) (map[string]domain.AuthorProfile, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return map[string]domain.AuthorProfile{}, nil
	}

	// 1. Bulk read
	hits, err := c.store.GetProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("profile cache read: %w", err)
	}

	result := make(map[string]domain.AuthorProfile, len(ids))
	misses := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := hits[id]; ok {
			result[id] = p
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	// 2. One batch load for everything we missed
	loaded, err := c.repo.GetProfiles(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("profile load: %w", err)
	}
	if len(loaded) == 0 {
		return result, nil
	}

	// 3. Write-back. Missing members are not cached, they stay misses.
	if err := c.store.SetProfiles(ctx, loaded, c.ttl); err != nil {
		return nil, fmt.Errorf("profile cache write: %w", err)
	}
	for _, p := range loaded {
		result[p.ID] = p
	}

	slog.Debug("profile cache lookup", "requested", len(ids), "hits", len(ids)-len(misses), "loaded", len(loaded))
	return result, nil
}

func (c *ProfileCache) Get(ctx context.Context, id string) (domain.AuthorProfile, bool, error) {
	profiles, err := c.GetMany(ctx, []string{id})
	if err != nil {
		return domain.AuthorProfile{}, false, err
	}
	p, ok := profiles[id]
	return p, ok, nil
}

// Invalidate drops a member's cached profile so the next lookup reloads it.
func (c *ProfileCache) Invalidate(ctx context.Context, memberID string) error {
	if memberID == "" {
		return nil
	}
	if err := c.store.DeleteProfile(ctx, memberID); err != nil {
		return fmt.Errorf("profile cache invalidate %s: %w", memberID, err)
	}
	return nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
