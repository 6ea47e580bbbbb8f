package ecs

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ComponentName identifies a component type. It is the only runtime
// discriminant used for type checks; it is never used for coercion.
type ComponentName string

// Component is implemented by component value types. Both methods are
// called on the zero value and must not depend on the receiver.
type Component interface {
	ComponentName() ComponentName
	ArrowType() arrow.DataType
}

// Codec converts between native component values and Arrow arrays.
// T is the implementing type itself, e.g. `Color` implements Codec[Color].
type Codec[T any] interface {
	Component
	ToArrow(mem memory.Allocator, values []T) (arrow.Array, error)
	FromArrow(arr arrow.Array) ([]T, error)
}

// NameOf returns the component name of T.
func NameOf[T Component]() ComponentName {
	var zero T
	return zero.ComponentName()
}

// InstanceKey identifies one instance within a component array.
type InstanceKey uint64

// Splat marks a single value that applies to every instance.
const Splat InstanceKey = math.MaxUint64

// InstanceKeyName is the component name of instance key cells.
const InstanceKeyName ComponentName = "ecs.InstanceKey"

func (k InstanceKey) IsSplat() bool { return k == Splat }

func (k InstanceKey) String() string {
	if k.IsSplat() {
		return "splat"
	}
	return fmt.Sprintf("%d", uint64(k))
}

func (InstanceKey) ComponentName() ComponentName { return InstanceKeyName }

func (InstanceKey) ArrowType() arrow.DataType { return arrow.PrimitiveTypes.Uint64 }

func (InstanceKey) ToArrow(mem memory.Allocator, values []InstanceKey) (arrow.Array, error) {
	b := array.NewUint64Builder(mem)
	defer b.Release()
	b.Reserve(len(values))
	for _, v := range values {
		b.Append(uint64(v))
	}
	return b.NewArray(), nil
}

func (InstanceKey) FromArrow(arr arrow.Array) ([]InstanceKey, error) {
	keys, ok := arr.(*array.Uint64)
	if !ok {
		return nil, fmt.Errorf("expected uint64 array, got %s", arr.DataType())
	}
	if keys.NullN() > 0 {
		return nil, fmt.Errorf("instance keys contain %d nulls", keys.NullN())
	}
	raw := keys.Uint64Values()
	out := make([]InstanceKey, len(raw))
	for i, v := range raw {
		out[i] = InstanceKey(v)
	}
	return out, nil
}

// SequentialKeys returns the keys 0..n-1.
func SequentialKeys(n int) []InstanceKey {
	keys := make([]InstanceKey, n)
	for i := range keys {
		keys[i] = InstanceKey(i)
	}
	return keys
}
