package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evograder/internal/common/cache"
	"evograder/internal/grading/model"
	"evograder/pkg/utils/logger"
)

// DefaultGraderTTL bounds how stale a cached grader may be. Graders change
// rarely (contest setup), so a short TTL is enough to pick up edits.
const DefaultGraderTTL = 5 * time.Minute

// GraderSource is the read side of grader lookup.
type GraderSource interface {
	GetGrader(ctx context.Context, id int64) (*model.DataGrader, error)
}

// CachedGraderSource is a read-through cache in front of grader lookups.
// Every attempt for the same grader would otherwise hit the database with
// an identical join.
type CachedGraderSource struct {
	source GraderSource
	cache  cache.Cache
	ttl    time.Duration
}

func NewCachedGraderSource(source GraderSource, c cache.Cache, ttl time.Duration) *CachedGraderSource {
	if ttl <= 0 {
		ttl = DefaultGraderTTL
	}
	return &CachedGraderSource{source: source, cache: c, ttl: ttl}
}

func graderCacheKey(id int64) string {
	return fmt.Sprintf("grading:grader:%d", id)
}

func (c *CachedGraderSource) GetGrader(ctx context.Context, id int64) (*model.DataGrader, error) {
	key := graderCacheKey(id)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var g model.DataGrader
		if err := json.Unmarshal([]byte(raw), &g); err == nil {
			return &g, nil
		}
		// Unparseable entry, fall through to the source.
		c.cache.Del(ctx, key)
	} else if err != cache.ErrCacheMiss {
		logger.Warn(ctx, "grader cache read failed", zap.Error(err))
	}

	g, err := c.source.GetGrader(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(g); err == nil {
		if err := c.cache.Set(ctx, key, string(raw), c.ttl); err != nil {
			logger.Warn(ctx, "grader cache write failed", zap.Error(err))
		}
	}
	return g, nil
}

// Invalidate drops the cached entry for a grader, used after contest
// setup edits its script or limits.
func (c *CachedGraderSource) Invalidate(ctx context.Context, id int64) error {
	return c.cache.Del(ctx, graderCacheKey(id))
}
