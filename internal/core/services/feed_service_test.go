package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type feedFixture struct {
	posts    *memPostRepo
	comments *memCommentRepo
	profiles *fakeProfiles
	likes    *fakeLikes
	views    *fakeViews
	svc      *FeedService
}

func newFeedFixture(posts []domain.Post, pageSize int) *feedFixture {
	f := &feedFixture{
		posts:    &memPostRepo{posts: posts},
		comments: &memCommentRepo{},
		profiles: &fakeProfiles{profiles: map[string]domain.AuthorProfile{}},
		likes:    &fakeLikes{stats: map[string]domain.InteractionStats{}},
		views:    &fakeViews{},
	}
	for _, p := range posts {
		f.profiles.profiles[p.AuthorID] = domain.AuthorProfile{ID: p.AuthorID, DisplayName: "name-" + p.AuthorID}
	}
	f.svc = NewFeedService(f.posts, f.comments, f.profiles, f.likes, f.views, pageSize)
	return f
}

// seqID returns a UUID whose string order follows n within a group.
func seqID(group, n int) string {
	return fmt.Sprintf("00000000-0000-7000-8%03d-%012d", group, n)
}

// makePosts builds n posts with plenty of ties on created_at and views.
func makePosts(n int) []domain.Post {
	posts := make([]domain.Post, n)
	for i := range posts {
		posts[i] = domain.Post{
			ID:        seqID(1, i),
			AuthorID:  fmt.Sprintf("member-%d", i%4),
			Title:     fmt.Sprintf("title %d", i),
			Views:     int64(i % 3),
			CreatedAt: baseTime.Add(time.Duration(i/5) * time.Minute),
		}
	}
	return posts
}

func expectedOrder(posts []domain.Post, strategy domain.Strategy) []string {
	sorted := append([]domain.Post(nil), posts...)
	sort.Slice(sorted, func(i, j int) bool {
		return strategy.Before(sorted[i].SortKey(), sorted[j].SortKey())
	})
	ids := make([]string, 0, len(sorted))
	for _, p := range sorted {
		if p.Visible() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func collect(t *testing.T, svc *FeedService, strategy domain.Strategy, between func(page int)) []string {
	t.Helper()
	var ids []string
	token := ""
	for page := 0; page < 100; page++ {
		slice, err := svc.ListPosts(context.Background(), "viewer", strategy, token)
		require.NoError(t, err)
		assert.Equal(t, slice.HasNext, slice.NextCursor != "")
		for _, it := range slice.Items {
			ids = append(ids, it.Post.ID)
		}
		if !slice.HasNext {
			return ids
		}
		if between != nil {
			between(page)
		}
		token = slice.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestListPosts_ExhaustiveEnumeration(t *testing.T) {
	for _, strategy := range []domain.Strategy{domain.StrategyRecent, domain.StrategyPopular} {
		t.Run(string(strategy), func(t *testing.T) {
			posts := makePosts(47)
			f := newFeedFixture(posts, 10)

			got := collect(t, f.svc, strategy, nil)

			assert.Equal(t, expectedOrder(posts, strategy), got)
			assert.Equal(t, 5, f.posts.listCalls)
		})
	}
}

func TestListPosts_FullTiesFallBackToID(t *testing.T) {
	posts := make([]domain.Post, 23)
	for i := range posts {
		posts[i] = domain.Post{
			ID:        uuid.Must(uuid.NewV7()).String(),
			AuthorID:  "member-1",
			Views:     5,
			CreatedAt: baseTime,
		}
	}

	for _, strategy := range []domain.Strategy{domain.StrategyRecent, domain.StrategyPopular} {
		f := newFeedFixture(posts, 10)
		got := collect(t, f.svc, strategy, nil)

		want := make([]string, len(posts))
		for i := range posts {
			want[len(posts)-1-i] = posts[i].ID
		}
		assert.Equal(t, want, got, string(strategy))
	}
}

func TestListPosts_SoftDeleteWhilePaging(t *testing.T) {
	for _, strategy := range []domain.Strategy{domain.StrategyRecent, domain.StrategyPopular} {
		t.Run(string(strategy), func(t *testing.T) {
			posts := makePosts(35)
			f := newFeedFixture(posts, 10)
			order := expectedOrder(posts, strategy)

			// Delete one not-yet-scanned post after each page
			victims := []string{order[15], order[27]}
			got := collect(t, f.svc, strategy, func(page int) {
				if page < len(victims) {
					f.posts.softDelete(victims[page])
				}
			})

			seen := make(map[string]bool)
			for _, id := range got {
				assert.False(t, seen[id], "duplicate %s", id)
				seen[id] = true
			}
			for _, id := range order {
				if id == victims[0] || id == victims[1] {
					assert.False(t, seen[id], "deleted post %s listed", id)
					continue
				}
				assert.True(t, seen[id], "post %s skipped", id)
			}
		})
	}
}

func TestListPosts_PageBoundaries(t *testing.T) {
	t.Run("exactly one page", func(t *testing.T) {
		f := newFeedFixture(makePosts(10), 10)

		slice, err := f.svc.ListPosts(context.Background(), "", domain.StrategyRecent, "")
		require.NoError(t, err)
		assert.Len(t, slice.Items, 10)
		assert.False(t, slice.HasNext)
		assert.Empty(t, slice.NextCursor)
		assert.Equal(t, []int{11}, f.posts.limits)
	})

	t.Run("one extra row", func(t *testing.T) {
		f := newFeedFixture(makePosts(11), 10)

		first, err := f.svc.ListPosts(context.Background(), "", domain.StrategyRecent, "")
		require.NoError(t, err)
		assert.Len(t, first.Items, 10)
		require.True(t, first.HasNext)

		second, err := f.svc.ListPosts(context.Background(), "", domain.StrategyRecent, first.NextCursor)
		require.NoError(t, err)
		assert.Len(t, second.Items, 1)
		assert.False(t, second.HasNext)
		assert.Empty(t, second.NextCursor)
	})

	t.Run("empty store", func(t *testing.T) {
		f := newFeedFixture(nil, 10)

		slice, err := f.svc.ListPosts(context.Background(), "", domain.StrategyPopular, "")
		require.NoError(t, err)
		assert.NotNil(t, slice.Items)
		assert.Empty(t, slice.Items)
		assert.False(t, slice.HasNext)
		assert.Zero(t, f.profiles.calls)
		assert.Zero(t, f.likes.calls)
	})
}

func TestListPosts_Enrichment(t *testing.T) {
	posts := makePosts(3)
	posts[1].AuthorID = "gone"
	f := newFeedFixture(posts, 10)
	delete(f.profiles.profiles, "gone")
	f.likes.stats[posts[0].ID] = domain.InteractionStats{PostID: posts[0].ID, Count: 7, ViewerHasInteracted: true}

	slice, err := f.svc.ListPosts(context.Background(), "viewer-1", domain.StrategyRecent, "")
	require.NoError(t, err)
	require.Len(t, slice.Items, 3)

	byID := make(map[string]domain.FeedItem)
	for _, it := range slice.Items {
		byID[it.Post.ID] = it
	}

	assert.Equal(t, domain.RemovedAuthor(), byID[posts[1].ID].Author)
	assert.Equal(t, "name-"+posts[0].AuthorID, byID[posts[0].ID].Author.DisplayName)
	assert.Equal(t, int64(7), byID[posts[0].ID].Likes.Count)
	assert.True(t, byID[posts[0].ID].Likes.ViewerHasInteracted)
	assert.Equal(t, domain.InteractionStats{PostID: posts[2].ID}, byID[posts[2].ID].Likes)

	assert.Equal(t, 1, f.profiles.calls)
	assert.Equal(t, 1, f.likes.calls)
	assert.Equal(t, "viewer-1", f.likes.viewer)
}

func TestListPosts_EnrichmentFailureFailsPage(t *testing.T) {
	boom := errors.New("redis down")

	f := newFeedFixture(makePosts(5), 10)
	f.profiles.err = boom
	_, err := f.svc.ListPosts(context.Background(), "", domain.StrategyRecent, "")
	assert.ErrorIs(t, err, boom)

	f = newFeedFixture(makePosts(5), 10)
	f.likes.err = boom
	_, err = f.svc.ListPosts(context.Background(), "", domain.StrategyRecent, "")
	assert.ErrorIs(t, err, boom)
}

func TestListPosts_RejectsBadInputBeforeQuerying(t *testing.T) {
	f := newFeedFixture(makePosts(25), 10)

	recent, err := f.svc.ListPosts(context.Background(), "", domain.StrategyRecent, "")
	require.NoError(t, err)
	require.True(t, recent.HasNext)
	calls := f.posts.listCalls

	_, err = f.svc.ListPosts(context.Background(), "", domain.StrategyPopular, recent.NextCursor)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)

	_, err = f.svc.ListPosts(context.Background(), "", domain.StrategyRecent, "garbage!")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)

	_, err = f.svc.ListPosts(context.Background(), "", domain.Strategy("OLDEST"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)

	assert.Equal(t, calls, f.posts.listCalls)
}

func TestGetPost(t *testing.T) {
	posts := makePosts(2)
	f := newFeedFixture(posts, 10)
	f.likes.stats[posts[0].ID] = domain.InteractionStats{PostID: posts[0].ID, Count: 2}

	detail, err := f.svc.GetPost(context.Background(), "viewer", posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, posts[0].ID, detail.Post.ID)
	assert.Equal(t, posts[0].AuthorID, detail.Author.ID)
	assert.Equal(t, int64(2), detail.Likes.Count)
	assert.Equal(t, []string{posts[0].ID}, f.views.recorded)

	delete(f.profiles.profiles, posts[1].AuthorID)
	detail, err = f.svc.GetPost(context.Background(), "viewer", posts[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RemovedAuthor(), detail.Author)
	assert.Zero(t, detail.Likes.Count)

	f.posts.softDelete(posts[0].ID)
	_, err = f.svc.GetPost(context.Background(), "viewer", posts[0].ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	assert.Len(t, f.views.recorded, 2)
}

func TestListComments(t *testing.T) {
	f := newFeedFixture(nil, 4)
	for i := 0; i < 9; i++ {
		f.comments.comments = append(f.comments.comments, domain.Comment{
			ID:        seqID(2, i),
			PostID:    "post-1",
			AuthorID:  "member-1",
			CreatedAt: baseTime.Add(time.Duration(i/2) * time.Second),
		})
	}
	f.comments.comments = append(f.comments.comments, domain.Comment{ID: "other", PostID: "post-2", CreatedAt: baseTime})
	f.profiles.profiles["member-1"] = domain.AuthorProfile{ID: "member-1", DisplayName: "one"}

	var want []string
	for i := 8; i >= 0; i-- {
		want = append(want, seqID(2, i))
	}

	var got []string
	token := ""
	for {
		slice, err := f.svc.ListComments(context.Background(), "post-1", token)
		require.NoError(t, err)
		for _, it := range slice.Items {
			got = append(got, it.Comment.ID)
			assert.Equal(t, "one", it.Author.DisplayName)
		}
		if !slice.HasNext {
			break
		}
		token = slice.NextCursor
	}
	assert.Equal(t, want, got)

	popular, err := NewCursorCodec().Encode(domain.Cursor{
		Strategy: domain.StrategyPopular,
		Position: domain.ViewPosition{ID: seqID(2, 1), CreatedAt: baseTime, Views: 1},
	})
	require.NoError(t, err)
	_, err = f.svc.ListComments(context.Background(), "post-1", popular)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}
