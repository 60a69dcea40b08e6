package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// --- In-memory ports used by the service tests ---

type memPostRepo struct {
	mu        sync.Mutex
	posts     []domain.Post
	listCalls int
	limits    []int
	views     map[string]int64
	incErr    error
}

func (r *memPostRepo) ListPosts(_ context.Context, strategy domain.Strategy, pos domain.Position, limit int) ([]domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	r.limits = append(r.limits, limit)

	sorted := make([]domain.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if p.Visible() {
			sorted = append(sorted, p)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return strategy.Before(sorted[i].SortKey(), sorted[j].SortKey())
	})

	out := make([]domain.Post, 0, limit)
	for _, p := range sorted {
		if pos != nil && !strategy.Before(pos.SortKey(), p.SortKey()) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memPostRepo) FindByID(_ context.Context, postID string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ID == postID && p.Visible() {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrPostNotFound
}

func (r *memPostRepo) IncrementViews(_ context.Context, counts map[string]int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incErr != nil {
		return r.incErr
	}
	if r.views == nil {
		r.views = make(map[string]int64)
	}
	for id, n := range counts {
		r.views[id] += n
	}
	return nil
}

func (r *memPostRepo) softDelete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts[i].DeletedAt = &now
		}
	}
}

type memCommentRepo struct {
	comments []domain.Comment
}

func (r *memCommentRepo) ListComments(_ context.Context, postID string, pos domain.Position, limit int) ([]domain.Comment, error) {
	sorted := make([]domain.Comment, 0, len(r.comments))
	for _, c := range r.comments {
		if c.PostID == postID && c.Visible() {
			sorted = append(sorted, c)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return domain.StrategyRecent.Before(sorted[i].SortKey(), sorted[j].SortKey())
	})

	out := make([]domain.Comment, 0, limit)
	for _, c := range sorted {
		if pos != nil && !domain.StrategyRecent.Before(pos.SortKey(), c.SortKey()) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.AuthorProfile
	err      error
	calls    int
}

func (f *fakeProfiles) GetMany(_ context.Context, ids []string) (map[string]domain.AuthorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.AuthorProfile, len(ids))
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) Get(ctx context.Context, id string) (domain.AuthorProfile, bool, error) {
	m, err := f.GetMany(ctx, []string{id})
	if err != nil {
		return domain.AuthorProfile{}, false, err
	}
	p, ok := m[id]
	return p, ok, nil
}

type fakeLikes struct {
	mu     sync.Mutex
	stats  map[string]domain.InteractionStats
	err    error
	calls  int
	viewer string
}

func (f *fakeLikes) GetStats(_ context.Context, postIDs []string, viewerID string) (map[string]domain.InteractionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.viewer = viewerID
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.InteractionStats)
	for _, id := range postIDs {
		if st, ok := f.stats[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (f *fakeLikes) GetStat(ctx context.Context, postID, viewerID string) (domain.InteractionStats, error) {
	m, err := f.GetStats(ctx, []string{postID}, viewerID)
	if err != nil {
		return domain.InteractionStats{}, err
	}
	if st, ok := m[postID]; ok {
		return st, nil
	}
	return domain.InteractionStats{PostID: postID}, nil
}

type fakeViews struct {
	mu       sync.Mutex
	recorded []string
}

func (f *fakeViews) Record(postID string) {
	f.mu.Lock()
	f.recorded = append(f.recorded, postID)
	f.mu.Unlock()
}

type fakeCacheStore struct {
	mu       sync.Mutex
	entries  map[string]domain.AuthorProfile
	getCalls int
	setCalls int
	lastTTL  time.Duration
	getErr   error
	setErr   error
	deleted  []string
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: make(map[string]domain.AuthorProfile)}
}

func (s *fakeCacheStore) GetProfiles(_ context.Context, ids []string) (map[string]domain.AuthorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := make(map[string]domain.AuthorProfile)
	for _, id := range ids {
		if p, ok := s.entries[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *fakeCacheStore) SetProfiles(_ context.Context, profiles []domain.AuthorProfile, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	s.lastTTL = ttl
	if s.setErr != nil {
		return s.setErr
	}
	for _, p := range profiles {
		s.entries[p.ID] = p
	}
	return nil
}

func (s *fakeCacheStore) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.entries, id)
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.AuthorProfile
	calls    int
	asked    [][]string
	err      error
}

func (r *fakeProfileRepo) GetProfiles(_ context.Context, ids []string) ([]domain.AuthorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.asked = append(r.asked, append([]string(nil), ids...))
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.AuthorProfile
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
