package repository

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"evograder/internal/common/cache"
	"evograder/internal/grading/model"
)

type countingGraderSource struct {
	inner GraderSource
	calls atomic.Int64
}

func (c *countingGraderSource) GetGrader(ctx context.Context, id int64) (*model.DataGrader, error) {
	c.calls.Add(1)
	return c.inner.GetGrader(ctx, id)
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachedGraderSourceReadThrough(t *testing.T) {
	repo, grader := seedRepo(t)
	ctx := context.Background()

	source := &countingGraderSource{inner: repo}
	cached := NewCachedGraderSource(source, newTestCache(t), time.Minute)

	for i := 0; i < 3; i++ {
		g, err := cached.GetGrader(ctx, grader.ID)
		if err != nil {
			t.Fatal(err)
		}
		if g.ID != grader.ID || g.ScriptKey != grader.ScriptKey {
			t.Fatalf("grader = %+v", g)
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("source hit %d times, want 1", got)
	}
}

func TestCachedGraderSourceInvalidate(t *testing.T) {
	repo, grader := seedRepo(t)
	ctx := context.Background()

	source := &countingGraderSource{inner: repo}
	cached := NewCachedGraderSource(source, newTestCache(t), time.Minute)

	if _, err := cached.GetGrader(ctx, grader.ID); err != nil {
		t.Fatal(err)
	}
	if err := cached.Invalidate(ctx, grader.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.GetGrader(ctx, grader.ID); err != nil {
		t.Fatal(err)
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("source hit %d times, want 2", got)
	}
}

func TestCachedGraderSourceMissingGrader(t *testing.T) {
	repo, _ := seedRepo(t)
	cached := NewCachedGraderSource(repo, newTestCache(t), time.Minute)

	if _, err := cached.GetGrader(context.Background(), 404); err == nil {
		t.Fatal("expected error for unknown grader")
	}
}
