package ecs

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when the requested native type differs from the stored one.
	ErrTypeMismatch = errors.New("component type mismatch")

	// ErrUnsupportedDatatype is returned by ordering checks on Arrow types without an ordering.
	ErrUnsupportedDatatype = errors.New("unsupported datatype")

	// ErrMissingComponent is returned when a required component is absent.
	ErrMissingComponent = errors.New("missing component")

	// ErrPrimaryNotFound is returned when materializing an archetype without its required data.
	ErrPrimaryNotFound = errors.New("primary component not found")

	// ErrComponentMapping is returned when the tier assignment of a component failed upstream.
	ErrComponentMapping = errors.New("component mapping failed")

	// ErrSerialization is returned when native values cannot be encoded or decoded.
	ErrSerialization = errors.New("serialization failed")
)

// TypeMismatchError reports the component a cell holds versus the one requested.
type TypeMismatchError struct {
	Requested ComponentName
	Actual    ComponentName
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("component type mismatch: requested %s, got %s", e.Requested, e.Actual)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// MissingComponentError names the required component that was not present.
type MissingComponentError struct {
	Component ComponentName
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("missing component: %s", e.Component)
}

func (e *MissingComponentError) Unwrap() error { return ErrMissingComponent }

// PrimaryNotFoundError names the required component that was absent or empty
// when converting a view back into an archetype.
type PrimaryNotFoundError struct {
	Archetype string
	Component ComponentName
}

func (e *PrimaryNotFoundError) Error() string {
	return fmt.Sprintf("%s: primary component not found: %s", e.Archetype, e.Component)
}

func (e *PrimaryNotFoundError) Unwrap() error { return ErrPrimaryNotFound }

// ComponentMappingError records why a component could not be assigned a tier.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ComponentMappingError struct {
	Component ComponentName
	cause     error
}

// NewComponentMappingError wraps cause as the mapping failure of component.
func NewComponentMappingError(component ComponentName, cause error) *ComponentMappingError {
	return &ComponentMappingError{Component: component, cause: cause}
}

func (e *ComponentMappingError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("component mapping failed for %s", e.Component)
	}
	return fmt.Sprintf("component mapping failed for %s: %v", e.Component, e.cause)
}

func (e *ComponentMappingError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrComponentMapping}
	}
	return []error{ErrComponentMapping, e.cause}
}

func serializationError(name ComponentName, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSerialization, name, err)
}
