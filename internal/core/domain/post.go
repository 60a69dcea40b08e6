package domain

import "time"

type Post struct {
	ID           string
	AuthorID     string
	Title        string
	Content      string // Only loaded for the detail view
	Views        int64
	LikeCount    int64
	CommentCount int64
	CreatedAt    time.Time
	DeletedAt    *time.Time
}

// Visible reports whether the post may appear in listings (soft delete).
func (p *Post) Visible() bool {
	return p.DeletedAt == nil
}

func (p *Post) SortKey() SortKey {
	return SortKey{ID: p.ID, CreatedAt: p.CreatedAt, Views: p.Views}
}

type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (c *Comment) Visible() bool {
	return c.DeletedAt == nil
}

// Comments only page by recency, so their key never carries views.
func (c *Comment) SortKey() SortKey {
	return SortKey{ID: c.ID, CreatedAt: c.CreatedAt}
}

// InteractionStats is the like aggregate of one post as seen by one viewer.
// It is recomputed on every request and never cached.
type InteractionStats struct {
	PostID              string
	Count               int64
	ViewerHasInteracted bool
}

// FeedItem is one enriched row of a post listing.
type FeedItem struct {
	Post   Post
	Author AuthorProfile
	Likes  InteractionStats
}

type CommentItem struct {
	Comment Comment
	Author  AuthorProfile
}

type PostDetail struct {
	Post   Post
	Author AuthorProfile
	Likes  InteractionStats
}
