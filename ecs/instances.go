package ecs

import (
	"iter"
	"slices"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ComponentInstances pairs the instance keys of one component with its values.
//
// values.Len() == keys.Len(), unless keys is the single splat key, in which case
// there is exactly one value and it applies to every row it is joined against.
type ComponentInstances struct {
	keys   *Cell
	values *Cell
}

// NewComponentInstances pairs a key cell with a value cell, taking ownership of both.
func NewComponentInstances(keys, values *Cell) *ComponentInstances {
	return &ComponentInstances{keys: keys, values: values}
}

// ComponentInstancesFromNative encodes keys and values into a new set.
func ComponentInstancesFromNative[T Codec[T]](keys []InstanceKey, values []T) (*ComponentInstances, error) {
	keyCell, err := CellFromValues(keys...)
	if err != nil {
		return nil, err
	}
	valueCell, err := CellFromValues(values...)
	if err != nil {
		keyCell.Release()
		return nil, err
	}
	return NewComponentInstances(keyCell, valueCell), nil
}

// SequentialInstances encodes values keyed 0..n-1.
func SequentialInstances[T Codec[T]](values ...T) (*ComponentInstances, error) {
	return ComponentInstancesFromNative(SequentialKeys(len(values)), values)
}

// SplatInstances encodes a single value that applies to every instance.
func SplatInstances[T Codec[T]](value T) (*ComponentInstances, error) {
	return ComponentInstancesFromNative([]InstanceKey{Splat}, []T{value})
}

// Name returns the component name of the values.
func (ci *ComponentInstances) Name() ComponentName { return ci.values.ComponentName() }

func (ci *ComponentInstances) Keys() *Cell { return ci.keys }

func (ci *ComponentInstances) Values() *Cell { return ci.values }

func (ci *ComponentInstances) Len() int { return ci.keys.Len() }

func (ci *ComponentInstances) IsEmpty() bool { return ci.keys.IsEmpty() }

// IsSplat reports whether the keys are the single splat key.
func (ci *ComponentInstances) IsSplat() bool {
	keys, ok := ci.keys.AsArrow().(*array.Uint64)
	return ok && keys.Len() == 1 && InstanceKey(keys.Value(0)) == Splat
}

// Clone returns a set sharing both cells.
func (ci *ComponentInstances) Clone() *ComponentInstances {
	return &ComponentInstances{keys: ci.keys.Clone(), values: ci.values.Clone()}
}

// Release gives up the handles on both cells.
func (ci *ComponentInstances) Release() {
	ci.keys.Release()
	ci.values.Release()
}

// AsSplat re-keys a single-valued set as a splat. Sets with any other number of
// values, or that already are splats, are returned as a clone.
func (ci *ComponentInstances) AsSplat() *ComponentInstances {
	if ci.values.Len() != 1 || ci.IsSplat() {
		return ci.Clone()
	}
	keys, err := CellFromValues(Splat)
	if err != nil {
		return ci.Clone()
	}
	return NewComponentInstances(keys, ci.values.Clone())
}

// IterKeys yields the instance keys. Keys that are not a dense uint64 array are
// treated as corrupt and yield nothing.
func (ci *ComponentInstances) IterKeys() iter.Seq[InstanceKey] {
	return iterKeys(ci.keys)
}

func iterKeys(keys *Cell) iter.Seq[InstanceKey] {
	return func(yield func(InstanceKey) bool) {
		arr, ok := keys.AsArrow().(*array.Uint64)
		if !ok {
			Logger().Warn("instance keys are not uint64", "type", keys.DataType())
			return
		}
		for _, k := range arr.Uint64Values() {
			if !yield(InstanceKey(k)) {
				return
			}
		}
	}
}

// Lookup returns a single-element slice of the values at key.
// The returned array must be released by the caller.
func (ci *ComponentInstances) Lookup(key InstanceKey) (arrow.Array, bool) {
	keys, ok := ci.keys.AsArrow().(*array.Uint64)
	if !ok {
		Logger().Warn("instance keys are not uint64",
			"component", ci.Name(), "type", ci.keys.DataType())
		return nil, false
	}
	values := ci.values.AsArrow()

	if keys.Len() == 1 && InstanceKey(keys.Value(0)) == Splat {
		if values.Len() != 1 {
			Logger().Warn("splat instance set must have exactly one value",
				"component", ci.Name(), "values", values.Len())
			return nil, false
		}
		return array.NewSlice(values, 0, 1), true
	}

	if keys.Len() != values.Len() {
		Logger().Warn("instance keys and values have different lengths",
			"component", ci.Name(), "keys", keys.Len(), "values", values.Len())
		return nil, false
	}

	raw := keys.Uint64Values()
	idx := sort.Search(len(raw), func(i int) bool { return raw[i] >= uint64(key) })
	if idx == len(raw) || raw[idx] != uint64(key) {
		return nil, false
	}
	return array.NewSlice(values, int64(idx), int64(idx+1)), true
}

// LookupValue decodes the value stored at key.
func LookupValue[T Codec[T]](ci *ComponentInstances, key InstanceKey) (T, bool, error) {
	var zero T
	if name := zero.ComponentName(); name != ci.Name() {
		return zero, false, &TypeMismatchError{Requested: name, Actual: ci.Name()}
	}
	slice, ok := ci.Lookup(key)
	if !ok {
		return zero, false, nil
	}
	defer slice.Release()
	values, err := zero.FromArrow(slice)
	if err != nil {
		return zero, false, serializationError(ci.Name(), err)
	}
	if len(values) != 1 {
		return zero, false, nil
	}
	return values[0], true, nil
}

// Iter yields (key, value) pairs in key order.
func Iter[T Codec[T]](ci *ComponentInstances) (iter.Seq2[InstanceKey, T], error) {
	values, err := ToNative[T](ci.values)
	if err != nil {
		return nil, err
	}
	keys := slices.Collect(ci.IterKeys())
	return func(yield func(InstanceKey, T) bool) {
		for i := range min(len(keys), len(values)) {
			if !yield(keys[i], values[i]) {
				return
			}
		}
	}, nil
}
