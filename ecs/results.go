package ecs

import (
	"iter"
	"maps"
	"slices"
)

// UnitResult is the value of one component at one index.
type UnitResult struct {
	Index     Index
	Instances *ComponentInstances
}

// Reindexed returns the same data at another index.
func (u *UnitResult) Reindexed(index Index) *UnitResult {
	return &UnitResult{Index: index, Instances: u.Instances}
}

// LatestAtResults holds the latest value of each component of an entity at a time.
type LatestAtResults struct {
	Entity     EntityPath
	At         TimeInt
	components map[ComponentName]*UnitResult
}

// NewLatestAtResults creates an empty result set.
func NewLatestAtResults(entity EntityPath, at TimeInt) *LatestAtResults {
	return &LatestAtResults{
		Entity:     entity,
		At:         at,
		components: make(map[ComponentName]*UnitResult),
	}
}

// Add records the value of a component, replacing any previous one.
func (r *LatestAtResults) Add(index Index, instances *ComponentInstances) {
	r.components[instances.Name()] = &UnitResult{Index: index, Instances: instances}
}

// Get returns the value of a component. It is safe to call on a nil result set.
func (r *LatestAtResults) Get(name ComponentName) (*UnitResult, bool) {
	if r == nil {
		return nil, false
	}
	u, ok := r.components[name]
	return u, ok
}

// Has reports whether a component is present.
func (r *LatestAtResults) Has(name ComponentName) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the components present, sorted.
func (r *LatestAtResults) Names() []ComponentName {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.components))
}

func (r *LatestAtResults) Len() int {
	if r == nil {
		return 0
	}
	return len(r.components)
}

// ChunkRow is one row of a chunk.
type ChunkRow struct {
	Index     Index
	Instances *ComponentInstances
}

// Chunk is a time-ordered run of rows of a single component.
type Chunk struct {
	component ComponentName
	rows      []ChunkRow
}

// NewChunk creates a chunk from rows, which must be sorted by index.
func NewChunk(component ComponentName, rows ...ChunkRow) *Chunk {
	return &Chunk{component: component, rows: rows}
}

// StaticChunk holds a single static row with a zeroed row id.
func StaticChunk(instances *ComponentInstances) *Chunk {
	return NewChunk(instances.Name(), ChunkRow{Index: StaticIndex(), Instances: instances})
}

func (c *Chunk) Component() ComponentName { return c.component }

func (c *Chunk) Len() int { return len(c.rows) }

func (c *Chunk) Row(i int) ChunkRow { return c.rows[i] }

// IsStatic reports whether every row of the chunk is static.
func (c *Chunk) IsStatic() bool {
	for _, row := range c.rows {
		if !row.Index.Time.IsStatic() {
			return false
		}
	}
	return true
}

// Rows yields the rows in index order.
func (c *Chunk) Rows() iter.Seq[ChunkRow] {
	return slices.Values(c.rows)
}

// RowIDs yields the row id of every row.
func (c *Chunk) RowIDs() iter.Seq[RowID] {
	return func(yield func(RowID) bool) {
		for _, row := range c.rows {
			if !yield(row.Index.RowID) {
				return
			}
		}
	}
}

// RangeResults holds the chunks of each component of an entity within a time range.
type RangeResults struct {
	Entity     EntityPath
	Range      TimeRange
	components map[ComponentName][]*Chunk
}

// NewRangeResults creates an empty result set.
func NewRangeResults(entity EntityPath, timeRange TimeRange) *RangeResults {
	return &RangeResults{
		Entity:     entity,
		Range:      timeRange,
		components: make(map[ComponentName][]*Chunk),
	}
}

// Add appends a chunk to its component. Chunks must be added in time order.
func (r *RangeResults) Add(chunk *Chunk) {
	r.components[chunk.component] = append(r.components[chunk.component], chunk)
}

// Get returns the chunks of a component. It is safe to call on a nil result set.
func (r *RangeResults) Get(name ComponentName) ([]*Chunk, bool) {
	if r == nil {
		return nil, false
	}
	chunks, ok := r.components[name]
	return chunks, ok
}

// Has reports whether a component has at least one chunk.
func (r *RangeResults) Has(name ComponentName) bool {
	chunks, _ := r.Get(name)
	return len(chunks) > 0
}

// Names returns the components present, sorted.
func (r *RangeResults) Names() []ComponentName {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.components))
}
