package resolve

import (
	"iter"
	"log/slog"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/plus3/cellquery/ecs"
)

// RangeResolver resolves range data across the three tiers.
type RangeResolver struct {
	overrides *ecs.LatestAtResults
	results   *ecs.RangeResults
	defaults  *ecs.LatestAtResults
	bootstrap *ecs.LatestAtResults
	tiers     TierMap
	logger    *slog.Logger

	// derived holds the sets built while resolving, released by Release.
	derived []*ecs.ComponentInstances
}

// RangeOption configures a RangeResolver.
type RangeOption func(*RangeResolver)

// WithBootstrap prepends a latest-at snapshot, taken just before the range
// window, to the stored chunks. Range results carry no value at the start of
// the window, so without it optional components are missing until their
// first sample inside the window.
func WithBootstrap(snapshot *ecs.LatestAtResults) RangeOption {
	return func(r *RangeResolver) {
		r.bootstrap = snapshot
	}
}

// WithRangeLogger sets the logger used for recoverable anomalies.
func WithRangeLogger(logger *slog.Logger) RangeOption {
	return func(r *RangeResolver) {
		r.logger = logger
	}
}

// NewRange creates a resolver over independently fetched override, stored and
// default results. Any of the result sets may be nil.
func NewRange(overrides *ecs.LatestAtResults, results *ecs.RangeResults, defaults *ecs.LatestAtResults, tiers TierMap, opts ...RangeOption) *RangeResolver {
	r := &RangeResolver{
		overrides: overrides,
		results:   results,
		defaults:  defaults,
		tiers:     tiers,
		logger:    ecs.Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the chunks of a component from its assigned tier.
//
// Stored data is returned as time-ordered chunks, preceded by the bootstrap
// snapshot as a static chunk with a zeroed row id. Override and default data
// is always a single static chunk, never ranged.
func (r *RangeResolver) Get(name ecs.ComponentName) ([]*ecs.Chunk, error) {
	return r.get(name, true, true)
}

func (r *RangeResolver) get(name ecs.ComponentName, bootstrap, splat bool) ([]*ecs.Chunk, error) {
	a, err := r.tiers.assignment(name)
	if err != nil {
		return nil, err
	}

	switch a.Tier {
	case TierOverride:
		return r.staticChunks(r.overrides, name, splat), nil
	case TierDefault:
		return r.staticChunks(r.defaults, name, splat), nil
	default:
		chunks, _ := r.results.Get(name)
		if !bootstrap {
			return chunks, nil
		}
		u, ok := r.bootstrap.Get(name)
		if !ok {
			return chunks, nil
		}
		out := make([]*ecs.Chunk, 0, len(chunks)+1)
		out = append(out, ecs.StaticChunk(u.Instances))
		return append(out, chunks...), nil
	}
}

func (r *RangeResolver) staticChunks(results *ecs.LatestAtResults, name ecs.ComponentName, splat bool) []*ecs.Chunk {
	u, ok := results.Get(name)
	if !ok {
		return nil
	}
	if !splat {
		return []*ecs.Chunk{ecs.StaticChunk(u.Instances)}
	}
	instances := u.Instances.AsSplat()
	r.derived = append(r.derived, instances)
	return []*ecs.Chunk{ecs.StaticChunk(instances)}
}

// Release gives up the splat sets built while resolving. Chunks and views
// obtained from the resolver must not be used afterwards.
func (r *RangeResolver) Release() {
	releaseAll(r.derived)
	r.derived = nil
}

// QueryResultHash combines the row ids of every contributing chunk, in all
// three tiers and the bootstrap snapshot, with the hash of the tier assignments.
func (r *RangeResolver) QueryResultHash() uint64 {
	d := xxhash.New()
	hashLatestAt(d, tagOverrides, r.overrides)
	hashRange(d, tagResults, r.results)
	hashLatestAt(d, tagDefaults, r.defaults)
	hashLatestAt(d, tagBootstrap, r.bootstrap)
	hashTiers(d, r.tiers)
	return d.Sum64()
}

// zipCursor walks the rows of one component in index order, remembering the
// latest row at or before the last requested index.
type zipCursor struct {
	required bool
	rows     []ecs.ChunkRow
	pos      int
	current  *ecs.ChunkRow
}

func newZipCursor(chunks []*ecs.Chunk, required bool) *zipCursor {
	var rows []ecs.ChunkRow
	for _, chunk := range chunks {
		rows = slices.AppendSeq(rows, chunk.Rows())
	}
	slices.SortStableFunc(rows, func(a, b ecs.ChunkRow) int {
		return a.Index.Compare(b.Index)
	})
	return &zipCursor{required: required, rows: rows}
}

func (c *zipCursor) advanceTo(index ecs.Index) *ecs.ChunkRow {
	for c.pos < len(c.rows) && c.rows[c.pos].Index.Compare(index) <= 0 {
		c.current = &c.rows[c.pos]
		c.pos++
	}
	return c.current
}

func (c *zipCursor) reset() {
	c.pos = 0
	c.current = nil
}

// RangeZip yields one view per row of A's first required component. Every
// other component contributes its latest row at or before that row's index.
// Rows lacking another required component are skipped.
//
// The first required component defines the rows. It is never bootstrapped
// and configured values keep their own instance keys.
func RangeZip[A ecs.ArchetypeCodec[A]](r *RangeResolver) (iter.Seq[*ecs.ArchetypeView[A]], error) {
	var zero A
	required := zero.RequiredComponents()
	if len(required) == 0 {
		return func(func(*ecs.ArchetypeView[A]) bool) {}, nil
	}

	primaryChunks, err := r.get(required[0], false, false)
	if err != nil {
		return nil, err
	}
	primary := newZipCursor(primaryChunks, true)

	cursors := make([]*zipCursor, 0, len(required)-1+len(zero.OptionalComponents()))
	for _, name := range required[1:] {
		chunks, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		cursors = append(cursors, newZipCursor(chunks, true))
	}
	for _, name := range zero.OptionalComponents() {
		chunks, err := r.Get(name)
		if err != nil {
			r.logger.Warn("skipping optional component", "archetype", zero.ArchetypeName(), "error", err)
			continue
		}
		cursors = append(cursors, newZipCursor(chunks, false))
	}

	return func(yield func(*ecs.ArchetypeView[A]) bool) {
		for _, c := range cursors {
			c.reset()
		}
	rows:
		for _, row := range primary.rows {
			sets := make([]*ecs.ComponentInstances, 0, len(cursors)+1)
			sets = append(sets, row.Instances)
			for _, c := range cursors {
				latest := c.advanceTo(row.Index)
				if latest == nil {
					if c.required {
						continue rows
					}
					continue
				}
				sets = append(sets, latest.Instances)
			}
			if !yield(ecs.NewArchetypeView[A](row.Index.RowID, timeOf(row.Index), sets...)) {
				return
			}
		}
	}, nil
}
