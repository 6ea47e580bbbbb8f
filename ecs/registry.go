package ecs

import (
	"fmt"
	"maps"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
)

// ComponentRegistry records the Arrow type of every known component.
// Each store has its own registry, allowing independent stores to coexist.
type ComponentRegistry struct {
	types map[ComponentName]arrow.DataType
}

// NewComponentRegistry creates a registry that already knows InstanceKey.
func NewComponentRegistry() *ComponentRegistry {
	r := &ComponentRegistry{
		types: make(map[ComponentName]arrow.DataType),
	}
	RegisterComponent[InstanceKey](r)
	return r
}

// RegisterComponent registers component T with the registry.
func RegisterComponent[T Component](r *ComponentRegistry) {
	var zero T
	r.types[zero.ComponentName()] = zero.ArrowType()
}

// Register records a component by name, for components without a native type.
func (r *ComponentRegistry) Register(name ComponentName, dt arrow.DataType) {
	r.types[name] = dt
}

// DataType returns the registered Arrow type of a component.
func (r *ComponentRegistry) DataType(name ComponentName) (arrow.DataType, bool) {
	dt, ok := r.types[name]
	return dt, ok
}

// Names returns the registered component names in sorted order.
func (r *ComponentRegistry) Names() []ComponentName {
	return slices.Sorted(maps.Keys(r.types))
}

// EmptyCell returns a zero-length cell of a registered component.
func (r *ComponentRegistry) EmptyCell(name ComponentName) (*Cell, error) {
	dt, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("component %s not registered", name)
	}
	return EmptyCell(name, dt), nil
}

// Check verifies that cell holds a registered component with the registered type.
func (r *ComponentRegistry) Check(cell *Cell) error {
	dt, ok := r.types[cell.ComponentName()]
	if !ok {
		return fmt.Errorf("component %s not registered", cell.ComponentName())
	}
	if !arrow.TypeEqual(dt, cell.DataType()) {
		return fmt.Errorf("%w: %s: registered as %s, got %s",
			ErrTypeMismatch, cell.ComponentName(), dt, cell.DataType())
	}
	return nil
}
