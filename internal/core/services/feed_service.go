package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/ports"
)

const DefaultPageSize = 10

var tracer = otel.Tracer("board-service")

// FeedService assembles page slices: one keyset query, then a batched enrichment
// of the page with author profiles and like stats.
type FeedService struct {
	posts    ports.PostRepository
	comments ports.CommentRepository
	profiles ports.ProfileProvider
	likes    ports.LikeStatsRepository
	views    ports.ViewRecorder
	codec    CursorCodec
	pageSize int
}

func NewFeedService(
	posts ports.PostRepository,
	comments ports.CommentRepository,
	profiles ports.ProfileProvider,
	likes ports.LikeStatsRepository,
	views ports.ViewRecorder,
	pageSize int,
) *FeedService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FeedService{
		posts:    posts,
		comments: comments,
		profiles: profiles,
		likes:    likes,
		views:    views,
		codec:    NewCursorCodec(),
		pageSize: pageSize,
	}
}

func (s *FeedService) ListPosts(ctx context.Context, viewerID string, strategy domain.Strategy, token string) (domain.PageSlice[domain.FeedItem], error) {
	if !strategy.Valid() {
		return domain.PageSlice[domain.FeedItem]{}, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}

	// 1. Decode before touching any store
	var pos domain.Position
	if token != "" {
		cursor, err := s.codec.Decode(token, strategy)
		if err != nil {
			return domain.PageSlice[domain.FeedItem]{}, err
		}
		pos = cursor.Position
	}

	ctx, span := tracer.Start(ctx, "FeedService.ListPosts",
		trace.WithAttributes(
			attribute.String("feed.strategy", string(strategy)),
			attribute.Bool("feed.first_page", pos == nil),
		))
	defer span.End()

	// 2. One bounded query, one extra row to detect the next page
	rows, err := s.posts.ListPosts(ctx, strategy, pos, s.pageSize+1)
	if err != nil {
		return domain.PageSlice[domain.FeedItem]{}, failSpan(span, err)
	}

	// 3. Trim the probe row
	page, hasNext := trimPage(rows, s.pageSize)
	if len(page) == 0 {
		return domain.EmptyPage[domain.FeedItem](), nil
	}

	// 4. Batch keys
	authorIDs := make([]string, 0, len(page))
	postIDs := make([]string, 0, len(page))
	seenAuthors := make(map[string]struct{}, len(page))
	for i := range page {
		postIDs = append(postIDs, page[i].ID)
		if _, ok := seenAuthors[page[i].AuthorID]; !ok {
			seenAuthors[page[i].AuthorID] = struct{}{}
			authorIDs = append(authorIDs, page[i].AuthorID)
		}
	}

	// 5. Fan-out, no data dependency between the two lookups
	var (
		profiles map[string]domain.AuthorProfile
		stats    map[string]domain.InteractionStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.profiles.GetMany(gctx, authorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.likes.GetStats(gctx, postIDs, viewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.PageSlice[domain.FeedItem]{}, failSpan(span, err)
	}

	// 6. Zip in store order
	items := make([]domain.FeedItem, len(page))
	for i, p := range page {
		items[i] = domain.FeedItem{
			Post:   p,
			Author: domain.ProfileOrPlaceholder(profiles, p.AuthorID),
			Likes:  statsOrZero(stats, p.ID),
		}
	}

	// 7. Next cursor from the last included row
	next := ""
	if hasNext {
		next, err = s.nextToken(strategy, page[len(page)-1].SortKey())
		if err != nil {
			return domain.PageSlice[domain.FeedItem]{}, failSpan(span, err)
		}
	}

	slog.Debug("feed page assembled", "strategy", strategy, "items", len(items), "has_next", hasNext)
	return domain.NewPageSlice(items, next), nil
}

func (s *FeedService) GetPost(ctx context.Context, viewerID, postID string) (*domain.PostDetail, error) {
	ctx, span := tracer.Start(ctx, "FeedService.GetPost", trace.WithAttributes(attribute.String("post.id", postID)))
	defer span.End()

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, failSpan(span, err)
	}

	var (
		author domain.AuthorProfile
		found  bool
		stats  domain.InteractionStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		author, found, err = s.profiles.Get(gctx, post.AuthorID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.likes.GetStat(gctx, post.ID, viewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, failSpan(span, err)
	}
	if !found {
		author = domain.RemovedAuthor()
	}

	s.views.Record(post.ID)

	return &domain.PostDetail{Post: *post, Author: author, Likes: stats}, nil
}

// ListComments follows the same slice algorithm as ListPosts, RECENT order only.
func (s *FeedService) ListComments(ctx context.Context, postID, token string) (domain.PageSlice[domain.CommentItem], error) {
	var pos domain.Position
	if token != "" {
		cursor, err := s.codec.Decode(token, domain.StrategyRecent)
		if err != nil {
			return domain.PageSlice[domain.CommentItem]{}, err
		}
		pos = cursor.Position
	}

	ctx, span := tracer.Start(ctx, "FeedService.ListComments", trace.WithAttributes(attribute.String("post.id", postID)))
	defer span.End()

	rows, err := s.comments.ListComments(ctx, postID, pos, s.pageSize+1)
	if err != nil {
		return domain.PageSlice[domain.CommentItem]{}, failSpan(span, err)
	}

	page, hasNext := trimPage(rows, s.pageSize)
	if len(page) == 0 {
		return domain.EmptyPage[domain.CommentItem](), nil
	}

	authorIDs := make([]string, 0, len(page))
	for i := range page {
		authorIDs = append(authorIDs, page[i].AuthorID)
	}
	profiles, err := s.profiles.GetMany(ctx, authorIDs)
	if err != nil {
		return domain.PageSlice[domain.CommentItem]{}, failSpan(span, err)
	}

	items := make([]domain.CommentItem, len(page))
	for i, c := range page {
		items[i] = domain.CommentItem{Comment: c, Author: domain.ProfileOrPlaceholder(profiles, c.AuthorID)}
	}

	next := ""
	if hasNext {
		next, err = s.nextToken(domain.StrategyRecent, page[len(page)-1].SortKey())
		if err != nil {
			return domain.PageSlice[domain.CommentItem]{}, failSpan(span, err)
		}
	}
	return domain.NewPageSlice(items, next), nil
}

// --- Helpers ---

func (s *FeedService) nextToken(strategy domain.Strategy, last domain.SortKey) (string, error) {
	return s.codec.Encode(domain.Cursor{Strategy: strategy, Position: strategy.PositionOf(last)})
}

// trimPage drops the probe row fetched beyond size.
func trimPage[T any](rows []T, size int) ([]T, bool) {
	if len(rows) > size {
		return rows[:size], true
	}
	return rows, false
}

func statsOrZero(stats map[string]domain.InteractionStats, postID string) domain.InteractionStats {
	if st, ok := stats[postID]; ok {
		return st
	}
	return domain.InteractionStats{PostID: postID}
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
