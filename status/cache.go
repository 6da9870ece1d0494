package status

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"
	"github.com/xiaoyuanzhu-com/project-chat/log"
	"github.com/xiaoyuanzhu-com/project-chat/metrics"
	"golang.org/x/sync/singleflight"
)

var cacheLogger = log.GetLogger("StatusCache")

// Tag is the cache tag shared by every snapshot
const Tag = "status"

// ThreadTag is the cache tag of one thread's snapshot
func ThreadTag(threadID string) string {
	return Tag + ":" + threadID
}

const defaultCacheCapacity = 1000

type cacheEntry struct {
	snapshot Snapshot
	tags     []string
}

// Cache keeps recent snapshots per thread and drops them by tag, so a chat
// reply can mark every status view stale at once.
type Cache struct {
	source  Source
	entries otter.Cache[string, cacheEntry]
	group   singleflight.Group
	metrics *metrics.Metrics

	// generation moves on every invalidation. Fetches started under an older
	// generation are returned to their callers but never stored.
	generation atomic.Uint64

	// beforeStore runs between the generation check and the store
	beforeStore func()
}

// NewCache wraps source with a TTL-bounded cache
func NewCache(source Source, ttl time.Duration, m *metrics.Metrics) (*Cache, error) {
	entries, err := otter.MustBuilder[string, cacheEntry](defaultCacheCapacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build status cache: %w", err)
	}

	return &Cache{
		source:  source,
		entries: entries,
		metrics: m,
	}, nil
}

// Get returns the cached snapshot for a thread, fetching it on a miss.
// Concurrent misses for the same thread share one fetch. Errors are not cached.
func (c *Cache) Get(ctx context.Context, threadID string) (Snapshot, error) {
	if e, ok := c.entries.Get(threadID); ok {
		c.metrics.StatusCache("hit")
		return e.snapshot, nil
	}
	c.metrics.StatusCache("miss")

	gen := c.generation.Load()
	key := threadID + "@" + strconv.FormatUint(gen, 10)

	v, err, shared := c.group.Do(key, func() (any, error) {
		// Joined callers must not fail because the first caller went away;
		// the source applies its own timeout.
		s, err := c.source.Fetch(context.WithoutCancel(ctx), threadID)
		if err != nil {
			return Snapshot{}, err
		}
		s.Normalize()
		for _, problem := range s.DropInvalidTasks() {
			cacheLogger.Warn().Err(problem).Str("thread", threadID).Msg("dropped invalid timeline task")
		}

		if c.generation.Load() == gen {
			if c.beforeStore != nil {
				c.beforeStore()
			}
			c.entries.Set(threadID, cacheEntry{
				snapshot: s,
				tags:     []string{Tag, ThreadTag(threadID)},
			})
			// An invalidation that raced the Set must still win
			if c.generation.Load() != gen {
				c.entries.Delete(threadID)
			}
		}
		return s, nil
	})
	if shared {
		cacheLogger.Debug().Str("thread", threadID).Msg("joined in-flight status fetch")
	}
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// InvalidateTag drops every entry carrying tag and returns how many were dropped
func (c *Cache) InvalidateTag(tag string) int {
	c.generation.Add(1)

	dropped := 0
	c.entries.DeleteByFunc(func(_ string, e cacheEntry) bool {
		if slices.Contains(e.tags, tag) {
			dropped++
			return true
		}
		return false
	})

	c.metrics.StatusInvalidated(dropped)
	cacheLogger.Debug().Str("tag", tag).Int("dropped", dropped).Msg("status cache invalidated")
	return dropped
}

// Invalidate drops one thread's snapshot
func (c *Cache) Invalidate(threadID string) int {
	return c.InvalidateTag(ThreadTag(threadID))
}

// Len returns the number of cached snapshots
func (c *Cache) Len() int {
	return c.entries.Size()
}

// Close releases the cache's background resources
func (c *Cache) Close() {
	c.entries.Close()
}
