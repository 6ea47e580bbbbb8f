package ecs

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Archetype is a bundle of required and optional components defining one
// visualizable row set. The methods describing the layout are called on the
// zero value and must not depend on the receiver.
type Archetype interface {
	ArchetypeName() string

	// RequiredComponents lists the components every row must have. The first
	// one defines the instance keys of the row set.
	RequiredComponents() []ComponentName
	OptionalComponents() []ComponentName

	// AsCells encodes every non-empty component of the archetype.
	AsCells() ([]*Cell, error)
}

// ArchetypeCodec is an archetype that can be rebuilt from raw Arrow arrays.
// A is the implementing type itself.
type ArchetypeCodec[A any] interface {
	Archetype
	FromArrow(arrays map[ComponentName]arrow.Array) (A, error)
}

// AllComponents returns the required components followed by the optional ones.
func AllComponents(a Archetype) []ComponentName {
	required := a.RequiredComponents()
	optional := a.OptionalComponents()
	all := make([]ComponentName, 0, len(required)+len(optional))
	all = append(all, required...)
	return append(all, optional...)
}

// DecodeComponent decodes component T from arrays, returning nil if it is absent.
func DecodeComponent[T Codec[T]](arrays map[ComponentName]arrow.Array) ([]T, error) {
	var zero T
	arr, ok := arrays[zero.ComponentName()]
	if !ok {
		return nil, nil
	}
	values, err := zero.FromArrow(arr)
	if err != nil {
		return nil, serializationError(zero.ComponentName(), err)
	}
	return values, nil
}

// EncodeComponent appends a cell for values to cells, skipping empty batches.
func EncodeComponent[T Codec[T]](cells []*Cell, values []T) ([]*Cell, error) {
	if len(values) == 0 {
		return cells, nil
	}
	cell, err := CellFromValues(values...)
	if err != nil {
		return cells, err
	}
	return append(cells, cell), nil
}

// InstancesOf keys every component of a so it can be inserted into a store.
// Components are keyed 0..n-1; a single-valued component is keyed as a splat
// when the primary component has more than one instance.
func InstancesOf(a Archetype) ([]*ComponentInstances, error) {
	cells, err := a.AsCells()
	if err != nil {
		return nil, err
	}

	primaryLen := 0
	if required := a.RequiredComponents(); len(required) > 0 {
		for _, cell := range cells {
			if cell.ComponentName() == required[0] {
				primaryLen = cell.Len()
				break
			}
		}
	}

	sets := make([]*ComponentInstances, 0, len(cells))
	for _, cell := range cells {
		var keys []InstanceKey
		if cell.Len() == 1 && primaryLen > 1 {
			keys = []InstanceKey{Splat}
		} else {
			keys = SequentialKeys(cell.Len())
		}
		keyCell, err := CellFromValues(keys...)
		if err != nil {
			return nil, err
		}
		sets = append(sets, NewComponentInstances(keyCell, cell))
	}
	return sets, nil
}
