package resolve

import (
	"iter"

	"github.com/plus3/cellquery/ecs"
)

// CachedQuery keeps the views of a query between frames and only rebuilds them
// when the query result hash changes.
type CachedQuery[A ecs.ArchetypeCodec[A]] struct {
	lastHash    uint64
	cachedViews []*ecs.ArchetypeView[A]
	cacheValid  bool
	// release frees the sets backing cachedViews.
	release func()

	hits   int64
	misses int64
}

// NewCachedQuery creates an empty query cache.
func NewCachedQuery[A ecs.ArchetypeCodec[A]]() *CachedQuery[A] {
	return &CachedQuery[A]{}
}

// ExecuteLatestAt refreshes the cache from a latest-at resolver. The query
// takes ownership of r and releases it once its views leave the cache.
func (q *CachedQuery[A]) ExecuteLatestAt(r *LatestAtResolver) error {
	hash := r.QueryResultHash()
	if q.cacheValid && hash == q.lastHash {
		q.hits++
		r.Release()
		return nil
	}
	q.misses++

	view, err := LatestAtView[A](r)
	if err != nil {
		r.Release()
		q.invalidateCache()
		return err
	}
	q.releaseViews()
	q.release = r.Release
	q.cachedViews = append(q.cachedViews[:0], view)
	q.lastHash = hash
	q.cacheValid = true
	return nil
}

// ExecuteRange refreshes the cache from a range resolver. The query takes
// ownership of r and releases it once its views leave the cache.
func (q *CachedQuery[A]) ExecuteRange(r *RangeResolver) error {
	hash := r.QueryResultHash()
	if q.cacheValid && hash == q.lastHash {
		q.hits++
		r.Release()
		return nil
	}
	q.misses++

	views, err := RangeZip[A](r)
	if err != nil {
		r.Release()
		q.invalidateCache()
		return err
	}
	q.releaseViews()
	q.release = r.Release
	q.cachedViews = q.cachedViews[:0]
	for view := range views {
		q.cachedViews = append(q.cachedViews, view)
	}
	q.lastHash = hash
	q.cacheValid = true
	return nil
}

func (q *CachedQuery[A]) releaseViews() {
	if q.release != nil {
		q.release()
		q.release = nil
	}
}

func (q *CachedQuery[A]) invalidateCache() {
	q.releaseViews()
	q.cacheValid = false
	clear(q.cachedViews)
	q.cachedViews = q.cachedViews[:0]
}

// Invalidate forces the next Execute to rebuild the views.
func (q *CachedQuery[A]) Invalidate() {
	q.invalidateCache()
}

// Iter returns an iterator over the cached views. The views are valid until
// the next Execute that rebuilds them or Invalidate.
// Panics if no Execute call has succeeded since the last invalidation.
func (q *CachedQuery[A]) Iter() iter.Seq[*ecs.ArchetypeView[A]] {
	if !q.cacheValid {
		panic("CachedQuery.Iter() called before CachedQuery.Execute()")
	}

	return func(yield func(*ecs.ArchetypeView[A]) bool) {
		for _, view := range q.cachedViews {
			if !yield(view) {
				return
			}
		}
	}
}

// Len returns the number of cached views.
func (q *CachedQuery[A]) Len() int {
	return len(q.cachedViews)
}

// Stats returns how many Execute calls reused or rebuilt the cache.
func (q *CachedQuery[A]) Stats() (hits, misses int64) {
	return q.hits, q.misses
}
