// Package store is an in-memory, time-indexed component store. It produces
// the latest-at and range results consumed by the resolve package.
//
// A Store is an explicit handle: every query is made against a given store,
// and all indexing state lives as long as that handle.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/kamstrup/intmap"

	"github.com/plus3/cellquery/ecs"
)

// ErrUnsortedKeys is returned when inserted instance keys are not strictly increasing.
var ErrUnsortedKeys = errors.New("instance keys are not sorted and unique")

type row struct {
	index     ecs.Index
	instances *ecs.ComponentInstances
}

// componentTable holds every row of one component of one entity.
type componentTable struct {
	static  *row
	times   []ecs.TimeInt
	buckets *intmap.Map[ecs.TimeInt, []row]
	rows    int
	bytes   uint64
}

func newComponentTable() *componentTable {
	return &componentTable{
		buckets: intmap.New[ecs.TimeInt, []row](64),
	}
}

func (t *componentTable) insert(r row) {
	t.rows++
	t.bytes += r.instances.Keys().SizeBytes() + r.instances.Values().SizeBytes()

	if r.index.Time.IsStatic() {
		if t.static == nil || t.static.index.Compare(r.index) <= 0 {
			t.static = &r
		}
		return
	}

	bucket, ok := t.buckets.Get(r.index.Time)
	if !ok {
		pos, _ := slices.BinarySearch(t.times, r.index.Time)
		t.times = slices.Insert(t.times, pos, r.index.Time)
	}
	pos := sort.Search(len(bucket), func(i int) bool {
		return bucket[i].index.Compare(r.index) > 0
	})
	bucket = slices.Insert(bucket, pos, r)
	t.buckets.Put(r.index.Time, bucket)
}

// latestAt returns the last row at or before at. Static data shadows temporal data.
func (t *componentTable) latestAt(at ecs.TimeInt) (row, bool) {
	if t.static != nil {
		return *t.static, true
	}
	idx := sort.Search(len(t.times), func(i int) bool { return t.times[i] > at })
	if idx == 0 {
		return row{}, false
	}
	bucket, ok := t.buckets.Get(t.times[idx-1])
	if !ok || len(bucket) == 0 {
		return row{}, false
	}
	return bucket[len(bucket)-1], true
}

// inRange returns the rows with a time in r, in index order.
func (t *componentTable) inRange(r ecs.TimeRange) []row {
	lo := sort.Search(len(t.times), func(i int) bool { return t.times[i] >= r.Min })
	hi := sort.Search(len(t.times), func(i int) bool { return t.times[i] > r.Max })
	var out []row
	for _, time := range t.times[lo:hi] {
		bucket, _ := t.buckets.Get(time)
		out = append(out, bucket...)
	}
	return out
}

type entityTable struct {
	components map[ecs.ComponentName]*componentTable
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger of the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the main in-memory store.
type Store struct {
	mu       sync.RWMutex
	registry *ecs.ComponentRegistry
	entities map[ecs.EntityPath]*entityTable
	logger   *slog.Logger
}

// New creates an empty store validating inserts against registry.
func New(registry *ecs.ComponentRegistry, opts ...Option) *Store {
	s := &Store{
		registry: registry,
		entities: make(map[ecs.EntityPath]*entityTable),
		logger:   ecs.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the component registry of the store.
func (s *Store) Registry() *ecs.ComponentRegistry { return s.registry }

func (s *Store) check(set *ecs.ComponentInstances) error {
	if set.Keys().ComponentName() != ecs.InstanceKeyName {
		return fmt.Errorf("%w: keys of %s hold %s", ecs.ErrTypeMismatch, set.Name(), set.Keys().ComponentName())
	}
	if err := s.registry.Check(set.Values()); err != nil {
		return err
	}
	if set.IsSplat() {
		if set.Values().Len() != 1 {
			return fmt.Errorf("%s: splat with %d values", set.Name(), set.Values().Len())
		}
		return nil
	}
	sorted, err := set.Keys().IsSortedAndUnique()
	if err != nil {
		return err
	}
	if !sorted {
		return fmt.Errorf("%w: %s", ErrUnsortedKeys, set.Name())
	}
	if set.Keys().Len() != set.Values().Len() {
		return fmt.Errorf("%s: %d keys for %d values", set.Name(), set.Keys().Len(), set.Values().Len())
	}
	return nil
}

// Insert stores one row of component sets at index. The store takes ownership
// of the sets. Either every set is inserted or none is.
func (s *Store) Insert(entity ecs.EntityPath, index ecs.Index, sets ...*ecs.ComponentInstances) error {
	for _, set := range sets {
		if err := s.check(set); err != nil {
			return fmt.Errorf("insert %s at %s: %w", entity, index, err)
		}
		// The store is the sole owner at ingestion, so sizes can be cached now.
		if !set.Keys().ComputeSizeBytes() || !set.Values().ComputeSizeBytes() {
			s.logger.Debug("could not cache cell size", "entity", entity, "component", set.Name())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.entities[entity]
	if !ok {
		table = &entityTable{components: make(map[ecs.ComponentName]*componentTable)}
		s.entities[entity] = table
	}
	for _, set := range sets {
		ct, ok := table.components[set.Name()]
		if !ok {
			ct = newComponentTable()
			table.components[set.Name()] = ct
		}
		ct.insert(row{index: index, instances: set})
	}
	return nil
}

// InsertStatic stores a row of static data with a fresh row id.
func (s *Store) InsertStatic(entity ecs.EntityPath, sets ...*ecs.ComponentInstances) (ecs.RowID, error) {
	rowID := ecs.NewRowID()
	return rowID, s.Insert(entity, ecs.Index{Time: ecs.TimeStatic, RowID: rowID}, sets...)
}

// LogArchetype stores every component of a at time t under a fresh row id.
func (s *Store) LogArchetype(entity ecs.EntityPath, t ecs.TimeInt, a ecs.Archetype) (ecs.RowID, error) {
	sets, err := ecs.InstancesOf(a)
	if err != nil {
		return ecs.ZeroRowID, fmt.Errorf("log %s to %s: %w", a.ArchetypeName(), entity, err)
	}
	rowID := ecs.NewRowID()
	return rowID, s.Insert(entity, ecs.Index{Time: t, RowID: rowID}, sets...)
}

// LatestAt returns the latest value at or before at of each named component.
// With no names, every component of the entity is queried.
func (s *Store) LatestAt(entity ecs.EntityPath, at ecs.TimeInt, names ...ecs.ComponentName) *ecs.LatestAtResults {
	results := ecs.NewLatestAtResults(entity, at)

	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.entities[entity]
	if !ok {
		return results
	}
	for _, name := range s.namesOf(table, names) {
		ct, ok := table.components[name]
		if !ok {
			continue
		}
		if r, ok := ct.latestAt(at); ok {
			results.Add(r.index, r.instances.Clone())
		}
	}
	return results
}

// Range returns every row of each named component within timeRange as one
// chunk per component, preceded by a chunk holding static data if any.
// With no names, every component of the entity is queried.
func (s *Store) Range(entity ecs.EntityPath, timeRange ecs.TimeRange, names ...ecs.ComponentName) *ecs.RangeResults {
	results := ecs.NewRangeResults(entity, timeRange)

	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.entities[entity]
	if !ok {
		return results
	}
	for _, name := range s.namesOf(table, names) {
		ct, ok := table.components[name]
		if !ok {
			continue
		}
		if ct.static != nil {
			results.Add(ecs.NewChunk(name, ecs.ChunkRow{
				Index:     ct.static.index,
				Instances: ct.static.instances.Clone(),
			}))
		}
		rows := ct.inRange(timeRange)
		if len(rows) == 0 {
			continue
		}
		chunkRows := make([]ecs.ChunkRow, len(rows))
		for i, r := range rows {
			chunkRows[i] = ecs.ChunkRow{Index: r.index, Instances: r.instances.Clone()}
		}
		results.Add(ecs.NewChunk(name, chunkRows...))
	}
	return results
}

func (s *Store) namesOf(table *entityTable, names []ecs.ComponentName) []ecs.ComponentName {
	if len(names) > 0 {
		return names
	}
	return slices.Sorted(maps.Keys(table.components))
}

// Entities returns every entity with data, sorted.
func (s *Store) Entities() []ecs.EntityPath {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.entities))
}

// Stats summarizes the content of a store.
type Stats struct {
	Entities   int
	Components int
	Rows       int
	Times      int
	SizeBytes  uint64
}

// Stats returns a summary of the store content.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	stats.Entities = len(s.entities)
	for _, table := range s.entities {
		stats.Components += len(table.components)
		for _, ct := range table.components {
			stats.Rows += ct.rows
			stats.Times += ct.buckets.Len()
			stats.SizeBytes += ct.bytes
		}
	}
	return stats
}
