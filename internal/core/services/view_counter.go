package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/ports"
)

const DefaultViewFlushInterval = time.Minute

// ViewCounter buffers post views in memory and writes them in batches.
type ViewCounter struct {
	repo     ports.PostRepository
	interval time.Duration

	mu      sync.Mutex
	pending map[string]int64
}

func NewViewCounter(repo ports.PostRepository, interval time.Duration) *ViewCounter {
	if interval <= 0 {
		interval = DefaultViewFlushInterval
	}
	return &ViewCounter{
		repo:     repo,
		interval: interval,
		pending:  make(map[string]int64),
	}
}

func (v *ViewCounter) Record(postID string) {
	if postID == "" {
		return
	}
	v.mu.Lock()
	v.pending[postID]++
	v.mu.Unlock()
}

// Run flushes on every tick until ctx is done, then flushes one last time.
func (v *ViewCounter) Run(ctx context.Context) {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = v.flush(ctx)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if n, err := v.flush(shutdownCtx); err == nil && n > 0 {
				slog.Info("✅ View counts flushed on shutdown", "posts", n)
			}
			cancel()
			return
		}
	}
}

// Flush writes the buffered counts. On failure the counts go back into the
// buffer and are retried on the next flush.
func (v *ViewCounter) Flush(ctx context.Context) error {
	_, err := v.flush(ctx)
	return err
}

// flush returns how many posts were written.
func (v *ViewCounter) flush(ctx context.Context) (int, error) {
	batch := v.drain()
	if len(batch) == 0 {
		return 0, nil
	}

	if err := v.repo.IncrementViews(ctx, batch); err != nil {
		v.restore(batch)
		slog.Error("❌ View flush failed", "posts", len(batch), "error", err)
		return 0, err
	}
	slog.Debug("view counts flushed", "posts", len(batch))
	return len(batch), nil
}

func (v *ViewCounter) drain() map[string]int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.pending) == 0 {
		return nil
	}
	batch := v.pending
	v.pending = make(map[string]int64, len(batch))
	return batch
}

func (v *ViewCounter) restore(batch map[string]int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, n := range batch {
		v.pending[id] += n
	}
}
