package placement

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEvaluator memoises another Evaluator in a bounded LRU keyed by the
// activation bitstring. Errors are not cached.
type CachedEvaluator struct {
	inner Evaluator
	cache *lru.Cache[string, Objectives]

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Evaluator = (*CachedEvaluator)(nil)

// NewCachedEvaluator wraps inner with a cache of at most size entries.
func NewCachedEvaluator(inner Evaluator, size int) (*CachedEvaluator, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: nil evaluator", ErrInvalidConfig)
	}
	cache, err := lru.New[string, Objectives](size)
	if err != nil {
		return nil, fmt.Errorf("%w: cache size %d: %v", ErrInvalidConfig, size, err)
	}
	return &CachedEvaluator{inner: inner, cache: cache}, nil
}

func (c *CachedEvaluator) Evaluate(x []bool) (Objectives, error) {
	key := bitKey(x)
	if obj, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return obj, nil
	}
	c.misses.Add(1)
	obj, err := c.inner.Evaluate(x)
	if err != nil {
		return Objectives{}, err
	}
	c.cache.Add(key, obj)
	return obj, nil
}

func (c *CachedEvaluator) NumCandidates() int { return c.inner.NumCandidates() }
func (c *CachedEvaluator) NumSensors() int    { return c.inner.NumSensors() }

// Hits is the number of lookups served from the cache.
func (c *CachedEvaluator) Hits() int64 { return c.hits.Load() }

// Misses is the number of lookups forwarded to the wrapped evaluator.
func (c *CachedEvaluator) Misses() int64 { return c.misses.Load() }

// Len is the number of cached entries.
func (c *CachedEvaluator) Len() int { return c.cache.Len() }
