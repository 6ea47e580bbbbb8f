package ecs

import (
	"iter"
	"maps"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
)

// ArchetypeView is an immutable snapshot of the components of one query
// result, sharing the instance key domain of A's first required component.
//
// Required components are read as-is since they define the rows. Optional
// components are joined against the primary instance keys, so each yields
// exactly NumInstances values with nil marking an absent instance.
type ArchetypeView[A ArchetypeCodec[A]] struct {
	rowID      RowID
	time       *TimeInt
	components map[ComponentName]*ComponentInstances
}

// NewArchetypeView builds a view from component sets. A nil time means the view
// carries no timestamp. Nil sets are ignored.
func NewArchetypeView[A ArchetypeCodec[A]](rowID RowID, time *TimeInt, sets ...*ComponentInstances) *ArchetypeView[A] {
	components := make(map[ComponentName]*ComponentInstances, len(sets))
	for _, set := range sets {
		if set != nil {
			components[set.Name()] = set
		}
	}
	return &ArchetypeView[A]{
		rowID:      rowID,
		time:       time,
		components: components,
	}
}

func (v *ArchetypeView[A]) RowID() RowID { return v.rowID }

// Time returns the timestamp of the view, if it has one.
func (v *ArchetypeView[A]) Time() (TimeInt, bool) {
	if v.time == nil {
		return 0, false
	}
	return *v.time, true
}

func (v *ArchetypeView[A]) primary() *ComponentInstances {
	var zero A
	required := zero.RequiredComponents()
	if len(required) == 0 {
		return nil
	}
	return v.components[required[0]]
}

// NumInstances is the number of instance keys of the first required component.
func (v *ArchetypeView[A]) NumInstances() int {
	if primary := v.primary(); primary != nil {
		return primary.Len()
	}
	return 0
}

// IterInstanceKeys yields the instance keys of the first required component.
func (v *ArchetypeView[A]) IterInstanceKeys() iter.Seq[InstanceKey] {
	primary := v.primary()
	if primary == nil {
		return func(func(InstanceKey) bool) {}
	}
	return primary.IterKeys()
}

// HasComponent reports whether the component is present and non-empty.
func (v *ArchetypeView[A]) HasComponent(name ComponentName) bool {
	ci, ok := v.components[name]
	return ok && !ci.IsEmpty()
}

// Component returns the raw instance set of a component.
func (v *ArchetypeView[A]) Component(name ComponentName) (*ComponentInstances, bool) {
	ci, ok := v.components[name]
	return ci, ok
}

// ComponentNames returns the names of all components in the view, sorted.
func (v *ArchetypeView[A]) ComponentNames() []ComponentName {
	return slices.Sorted(maps.Keys(v.components))
}

// HasComponentOf reports whether component T is present and non-empty.
func HasComponentOf[T Component, A ArchetypeCodec[A]](v *ArchetypeView[A]) bool {
	return v.HasComponent(NameOf[T]())
}

// IterRequired yields the values of a required component directly, without
// joining them against the instance keys.
func IterRequired[T Codec[T], A ArchetypeCodec[A]](v *ArchetypeView[A]) (iter.Seq[T], error) {
	name := NameOf[T]()
	ci, ok := v.components[name]
	if !ok {
		return nil, &MissingComponentError{Component: name}
	}
	values, err := ToNative[T](ci.Values())
	if err != nil {
		return nil, err
	}
	return slices.Values(values), nil
}

// IterOptional yields one value per primary instance key, nil where the
// optional component has no value. An absent component yields only nils.
func IterOptional[T Codec[T], A ArchetypeCodec[A]](v *ArchetypeView[A]) (iter.Seq[*T], error) {
	primary := v.primary()
	ci, ok := v.components[NameOf[T]()]
	if !ok || primary == nil {
		return nones[T](v.NumInstances()), nil
	}

	// Identical keys need no join: values are already aligned.
	if sameKeys(primary.Keys(), ci.Keys()) {
		values, err := ToNative[T](ci.Values())
		if err != nil {
			return nil, err
		}
		if len(values) == primary.Len() {
			return pointers(values), nil
		}
	}
	return JoinComponent[T](primary.IterKeys(), ci)
}

func sameKeys(a, b *Cell) bool {
	return a.SameCell(b) || a.Equal(b)
}

func nones[T any](n int) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for range n {
			if !yield(nil) {
				return
			}
		}
	}
}

func pointers[T any](values []T) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for i := range values {
			v := values[i]
			if !yield(&v) {
				return
			}
		}
	}
}

// RequiredMono returns the single value of a required component. More than one
// value is logged and the first one is returned.
func RequiredMono[T Codec[T], A ArchetypeCodec[A]](v *ArchetypeView[A]) (T, error) {
	var zero T
	seq, err := IterRequired[T](v)
	if err != nil {
		return zero, err
	}
	values := slices.Collect(seq)
	if len(values) != 1 {
		Logger().Warn("expected a single value", "component", NameOf[T](), "count", len(values))
	}
	if len(values) == 0 {
		return zero, &MissingComponentError{Component: NameOf[T]()}
	}
	return values[0], nil
}

// OptionalMono returns the value of an optional component at the first
// instance, or nil. A view with more than one instance is logged.
func OptionalMono[T Codec[T], A ArchetypeCodec[A]](v *ArchetypeView[A]) (*T, error) {
	if _, ok := v.components[NameOf[T]()]; !ok {
		return nil, nil
	}
	seq, err := IterOptional[T](v)
	if err != nil {
		return nil, err
	}
	var first *T
	count := 0
	for value := range seq {
		if count == 0 {
			first = value
		}
		count++
	}
	if count != 1 {
		Logger().Warn("expected a single value", "component", NameOf[T](), "count", count)
	}
	return first, nil
}

// ToArchetype rebuilds the concrete archetype from the raw component arrays.
func ToArchetype[A ArchetypeCodec[A]](v *ArchetypeView[A]) (A, error) {
	var zero A
	for _, name := range zero.RequiredComponents() {
		ci, ok := v.components[name]
		if !ok || ci.IsEmpty() {
			return zero, &PrimaryNotFoundError{Archetype: zero.ArchetypeName(), Component: name}
		}
	}
	arrays := make(map[ComponentName]arrow.Array, len(v.components))
	for name, ci := range v.components {
		arrays[name] = ci.Values().AsArrow()
	}
	return zero.FromArrow(arrays)
}
