package ecs

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// allocator backs every array built by this package.
var allocator memory.Allocator = memory.NewGoAllocator()

// cellInner is the state shared by every handle of a cell.
type cellInner struct {
	name      ComponentName
	values    arrow.Array
	refs      atomic.Int64
	sizeBytes atomic.Uint64
}

// cellOverhead keeps a computed size strictly positive, even for empty arrays.
const cellOverhead = uint64(unsafe.Sizeof(cellInner{}))

// Cell is an immutable, typed Arrow array tagged with its component name.
//
// A Cell is a handle onto shared state: Clone hands out another handle in O(1)
// and Release gives one up. The backing array is released once the last handle
// is gone. The array is never mutated, so handles may be read from any number
// of goroutines concurrently. The only mutable part is the size cache, which
// is filled at most once, by a caller that found itself the sole owner (see
// ComputeSizeBytes).
type Cell struct {
	inner *cellInner
}

func newCell(name ComponentName, values arrow.Array) *Cell {
	inner := &cellInner{name: name, values: values}
	inner.refs.Store(1)
	return &Cell{inner: inner}
}

// CellFromNative encodes values into a new cell.
func CellFromNative[T Codec[T]](values iter.Seq[T]) (*Cell, error) {
	var zero T
	arr, err := zero.ToArrow(allocator, slices.Collect(values))
	if err != nil {
		return nil, serializationError(zero.ComponentName(), err)
	}
	return newCell(zero.ComponentName(), arr), nil
}

// CellFromValues is CellFromNative over a variadic list.
func CellFromValues[T Codec[T]](values ...T) (*Cell, error) {
	return CellFromNative(slices.Values(values))
}

// CellFromArrow wraps an existing array. The array is retained; it is not
// checked to be a valid encoding of the named component.
func CellFromArrow(name ComponentName, arr arrow.Array) *Cell {
	arr.Retain()
	return newCell(name, arr)
}

// EmptyCell returns a zero-length cell of the given Arrow type.
func EmptyCell(name ComponentName, dt arrow.DataType) *Cell {
	return newCell(name, array.MakeArrayOfNull(allocator, dt, 0))
}

// EmptyCellOf returns a zero-length cell for component T.
func EmptyCellOf[T Component]() *Cell {
	var zero T
	return EmptyCell(zero.ComponentName(), zero.ArrowType())
}

// ComponentName returns the name of the component stored in the cell.
func (c *Cell) ComponentName() ComponentName { return c.inner.name }

func (c *Cell) Len() int { return c.inner.values.Len() }

func (c *Cell) IsEmpty() bool { return c.inner.values.Len() == 0 }

func (c *Cell) DataType() arrow.DataType { return c.inner.values.DataType() }

// AsArrow borrows the backing array. The caller must not release it and must
// not hold it beyond the lifetime of the cell.
func (c *Cell) AsArrow() arrow.Array { return c.inner.values }

// ArrowRef returns the backing array with an extra reference taken.
// The caller must Release it.
func (c *Cell) ArrowRef() arrow.Array {
	c.inner.values.Retain()
	return c.inner.values
}

// Clone returns another handle onto the same shared data.
func (c *Cell) Clone() *Cell {
	c.inner.refs.Add(1)
	return &Cell{inner: c.inner}
}

// Release gives up this handle. The handle must not be used afterwards.
func (c *Cell) Release() {
	if c.inner == nil {
		return
	}
	if c.inner.refs.Add(-1) == 0 {
		c.inner.values.Release()
	}
	c.inner = nil
}

// RefCount returns the number of live handles onto the shared data.
func (c *Cell) RefCount() int64 { return c.inner.refs.Load() }

// IsDense reports whether the cell contains no nulls.
func (c *Cell) IsDense() bool { return c.inner.values.NullN() == 0 }

// IsSortedAndUnique reports whether the values are strictly increasing.
// Only integer and floating point arrays have an ordering here.
func (c *Cell) IsSortedAndUnique() (bool, error) {
	switch arr := c.inner.values.(type) {
	case *array.Uint64:
		return strictlyIncreasing(arr.Uint64Values()), nil
	case *array.Int64:
		return strictlyIncreasing(arr.Int64Values()), nil
	case *array.Uint32:
		return strictlyIncreasing(arr.Uint32Values()), nil
	case *array.Int32:
		return strictlyIncreasing(arr.Int32Values()), nil
	case *array.Float32:
		return strictlyIncreasing(arr.Float32Values()), nil
	case *array.Float64:
		return strictlyIncreasing(arr.Float64Values()), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedDatatype, arr.DataType())
	}
}

func strictlyIncreasing[T cmp.Ordered](values []T) bool {
	for i := 1; i < len(values); i++ {
		if !(values[i-1] < values[i]) {
			return false
		}
	}
	return true
}

// ComputeSizeBytes computes and caches the total size of the cell.
// It only succeeds for a sole owner; when other handles exist it returns false
// without blocking. Once computed the size is never recomputed.
//
// The owner check is not atomic with the write: a Clone may race with it. The
// array is immutable, so every racing caller computes the same size, and the
// compare-and-swap keeps the first one.
func (c *Cell) ComputeSizeBytes() bool {
	if c.inner.sizeBytes.Load() > 0 {
		return true
	}
	if refs := c.inner.refs.Load(); refs != 1 {
		Logger().Debug("cell is shared, not computing its size",
			"component", c.inner.name, "refs", refs)
		return false
	}
	c.inner.sizeBytes.CompareAndSwap(0, cellOverhead+arrayDataSize(c.inner.values.Data()))
	return true
}

// SizeBytes returns the cached size, or 0 if it was never computed.
func (c *Cell) SizeBytes() uint64 { return c.inner.sizeBytes.Load() }

func arrayDataSize(data arrow.ArrayData) uint64 {
	var size uint64
	for _, buf := range data.Buffers() {
		if buf != nil {
			size += uint64(buf.Len())
		}
	}
	for _, child := range data.Children() {
		size += arrayDataSize(child)
	}
	return size
}

// SameCell reports whether both handles point at the same shared data.
func (c *Cell) SameCell(other *Cell) bool {
	return other != nil && c.inner == other.inner
}

// Equal reports whether both cells hold the same component and values.
func (c *Cell) Equal(other *Cell) bool {
	if other == nil {
		return false
	}
	if c.SameCell(other) {
		return true
	}
	return c.inner.name == other.inner.name && array.Equal(c.inner.values, other.inner.values)
}

func (c *Cell) String() string {
	return fmt.Sprintf("%s%v", c.inner.name, c.inner.values)
}

// ToNative decodes the cell into native values of component T.
func ToNative[T Codec[T]](c *Cell) ([]T, error) {
	var zero T
	if name := zero.ComponentName(); name != c.inner.name {
		return nil, &TypeMismatchError{Requested: name, Actual: c.inner.name}
	}
	values, err := zero.FromArrow(c.inner.values)
	if err != nil {
		return nil, serializationError(c.inner.name, err)
	}
	return values, nil
}
