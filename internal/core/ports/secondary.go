package ports

import (
	"context"
	"time"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// --- DRIVEN (what the service needs) ---

// PostRepository is the keyset query engine over posts.
type PostRepository interface {
	// ListPosts returns at most limit visible posts after pos (nil = from the start),
	// in the strategy's order, with a single store query.
	ListPosts(ctx context.Context, strategy domain.Strategy, pos domain.Position, limit int) ([]domain.Post, error)

	// FindByID returns a visible post, or domain.ErrPostNotFound.
	FindByID(ctx context.Context, postID string) (*domain.Post, error)

	// IncrementViews applies buffered view counts in one round trip.
	IncrementViews(ctx context.Context, counts map[string]int64) error
}

// CommentRepository pages comments of one post with the RECENT order.
type CommentRepository interface {
	ListComments(ctx context.Context, postID string, pos domain.Position, limit int) ([]domain.Comment, error)
}

// ProfileRepository is the source of truth for member profiles.
// Unknown or removed members are simply missing from the result.
type ProfileRepository interface {
	GetProfiles(ctx context.Context, ids []string) ([]domain.AuthorProfile, error)
}

// ProfileCacheStore is the key-value side of the profile cache.
type ProfileCacheStore interface {
	// GetProfiles reads all keys in one call; misses are absent from the map.
	GetProfiles(ctx context.Context, ids []string) (map[string]domain.AuthorProfile, error)
	// SetProfiles writes all profiles in one pipelined round trip.
	SetProfiles(ctx context.Context, profiles []domain.AuthorProfile, ttl time.Duration) error
	DeleteProfile(ctx context.Context, id string) error
}

// LikeStatsRepository aggregates likes per post.
type LikeStatsRepository interface {
	// GetStats runs one grouped query; posts without likes are absent.
	GetStats(ctx context.Context, postIDs []string, viewerID string) (map[string]domain.InteractionStats, error)
	// GetStat is the single-post variant; a post without likes yields zero stats.
	GetStat(ctx context.Context, postID, viewerID string) (domain.InteractionStats, error)
}
