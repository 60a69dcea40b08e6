package rest

import (
	"time"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// --- RESPONSE DTOs ---

type pageResponse[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor"`
	HasNext    bool    `json:"has_next"`
}

type authorDTO struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

type likesDTO struct {
	Count         int64 `json:"count"`
	LikedByViewer bool  `json:"liked_by_viewer"`
}

type postSummaryDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Views        int64     `json:"views"`
	CommentCount int64     `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	Author       authorDTO `json:"author"`
	Likes        likesDTO  `json:"likes"`
}

type postDetailDTO struct {
	postSummaryDTO
	Content string `json:"content"`
}

type commentDTO struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    authorDTO `json:"author"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Mappers ---

func toPageResponse[In, Out any](page domain.PageSlice[In], mapItem func(In) Out) pageResponse[Out] {
	items := make([]Out, len(page.Items))
	for i, it := range page.Items {
		items[i] = mapItem(it)
	}
	resp := pageResponse[Out]{Items: items, HasNext: page.HasNext}
	if page.HasNext {
		next := page.NextCursor
		resp.NextCursor = &next
	}
	return resp
}

func toAuthorDTO(p domain.AuthorProfile) authorDTO {
	return authorDTO{ID: p.ID, DisplayName: p.DisplayName, AvatarRef: p.AvatarRef}
}

func toLikesDTO(s domain.InteractionStats) likesDTO {
	return likesDTO{Count: s.Count, LikedByViewer: s.ViewerHasInteracted}
}

func toPostSummaryDTO(p domain.Post, author domain.AuthorProfile, likes domain.InteractionStats) postSummaryDTO {
	return postSummaryDTO{
		ID:           p.ID,
		Title:        p.Title,
		Views:        p.Views,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
		Author:       toAuthorDTO(author),
		Likes:        toLikesDTO(likes),
	}
}

func toFeedItemDTO(it domain.FeedItem) postSummaryDTO {
	return toPostSummaryDTO(it.Post, it.Author, it.Likes)
}

func toPostDetailDTO(d *domain.PostDetail) postDetailDTO {
	return postDetailDTO{
		postSummaryDTO: toPostSummaryDTO(d.Post, d.Author, d.Likes),
		Content:        d.Post.Content,
	}
}

func toCommentDTO(it domain.CommentItem) commentDTO {
	return commentDTO{
		ID:        it.Comment.ID,
		PostID:    it.Comment.PostID,
		Content:   it.Comment.Content,
		CreatedAt: it.Comment.CreatedAt,
		UpdatedAt: it.Comment.UpdatedAt,
		Author:    toAuthorDTO(it.Author),
	}
}
