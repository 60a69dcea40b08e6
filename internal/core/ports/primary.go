package ports

import (
	"context"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// --- DRIVING (what the service exposes) ---

type FeedService interface {
	// ListPosts returns one page of visible posts. An empty token asks for the first page.
	ListPosts(ctx context.Context, viewerID string, strategy domain.Strategy, token string) (domain.PageSlice[domain.FeedItem], error)

	// GetPost is the detail view of a single post; it also counts a view.
	GetPost(ctx context.Context, viewerID, postID string) (*domain.PostDetail, error)

	// ListComments pages the comments of a post, newest first.
	ListComments(ctx context.Context, postID, token string) (domain.PageSlice[domain.CommentItem], error)
}

// ProfileProvider resolves author profiles, cache first.
type ProfileProvider interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.AuthorProfile, error)
	Get(ctx context.Context, id string) (domain.AuthorProfile, bool, error)
}

// ProfileInvalidator is called when a member profile changes upstream.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, memberID string) error
}

// ViewRecorder buffers view increments for the detail view.
type ViewRecorder interface {
	Record(postID string)
}
