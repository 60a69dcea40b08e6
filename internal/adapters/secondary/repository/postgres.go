package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const (
	postListColumns = `id, author_id, title, views, like_count, comment_count, created_at`

	listPostsBase = `SELECT ` + postListColumns + ` FROM posts WHERE deleted_at IS NULL`

	findPostQuery = `
		SELECT id, author_id, title, content, views, like_count, comment_count, created_at
		FROM posts
		WHERE id = $1 AND deleted_at IS NULL
	`

	incrementViewsQuery = `UPDATE posts SET views = views + $1 WHERE id = $2`

	listCommentsBase = `SELECT id, post_id, author_id, content, created_at, updated_at FROM comments WHERE deleted_at IS NULL AND post_id = $1`
)

type PostgresPostRepo struct {
	db DB
}

func NewPostgresPostRepo(db DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// ListPosts : PAGINATION KEYSET
// A single bounded statement; the seek predicate replaces OFFSET entirely.
func (r *PostgresPostRepo) ListPosts(ctx context.Context, strategy domain.Strategy, pos domain.Position, limit int) ([]domain.Post, error) {
	query, args, err := buildKeysetSQL(listPostsBase, nil, strategy, pos, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	defer rows.Close()

	posts := make([]domain.Post, 0, limit)
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Views, &p.LikeCount, &p.CommentCount, &p.CreatedAt); err != nil {
			return nil, storeErr("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list posts", err)
	}
	return posts, nil
}

func (r *PostgresPostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	var p domain.Post
	err := r.db.QueryRow(ctx, findPostQuery, postID).
		Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Views, &p.LikeCount, &p.CommentCount, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, storeErr("find post", err)
	}
	return &p, nil
}

// IncrementViews : one batch, one round trip
func (r *PostgresPostRepo) IncrementViews(ctx context.Context, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for id, n := range counts {
		batch.Queue(incrementViewsQuery, n, id)
	}

	br := r.db.SendBatch(ctx, batch)
	for range counts {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return storeErr("increment views", err)
		}
	}
	if err := br.Close(); err != nil {
		return storeErr("increment views", err)
	}
	return nil
}

type PostgresCommentRepo struct {
	db DB
}

func NewPostgresCommentRepo(db DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

func (r *PostgresCommentRepo) ListComments(ctx context.Context, postID string, pos domain.Position, limit int) ([]domain.Comment, error) {
	query, args, err := buildKeysetSQL(listCommentsBase, []any{postID}, domain.StrategyRecent, pos, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0, limit)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, storeErr("scan comment", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list comments", err)
	}
	return comments, nil
}

// --- Helpers ---

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
