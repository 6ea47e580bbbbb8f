// Package resolve merges override, stored and default component data into the
// row-aligned shape consumed by archetype views.
//
// Every component is pre-assigned exactly one source tier by an upstream
// mapping step. Resolution picks the data of that tier; it is not a fallback
// chain evaluated per value.
package resolve

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/plus3/cellquery/ecs"
)

// Tier is the origin of a component's value.
type Tier uint8

const (
	// TierSourceComponent is live stored data.
	TierSourceComponent Tier = iota
	// TierOverride is a per-entity configured value.
	TierOverride
	// TierDefault is a view-wide configured value.
	TierDefault
)

func (t Tier) String() string {
	switch t {
	case TierSourceComponent:
		return "source"
	case TierOverride:
		return "override"
	case TierDefault:
		return "default"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// Assignment is the tier of one component, or the reason none could be assigned.
type Assignment struct {
	Tier Tier
	Err  error
}

// TierMap maps each component to its assigned tier.
// Components missing from the map resolve from stored data.
type TierMap map[ecs.ComponentName]Assignment

// Hash returns a stable hash of the assignments.
func (m TierMap) Hash() uint64 {
	d := xxhash.New()
	for _, name := range sortedNames(m) {
		a := m[name]
		_, _ = d.WriteString(string(name))
		_, _ = d.Write([]byte{0, byte(a.Tier)})
		if a.Err != nil {
			_, _ = d.WriteString(a.Err.Error())
		}
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// Presence reports whether a result set has data for a component.
type Presence interface {
	Has(name ecs.ComponentName) bool
}

// AssignTiers is a basic mapping step: an override wins, stored data comes
// next, and a default is used only when nothing was stored.
func AssignTiers(names []ecs.ComponentName, overrides, stored, defaults Presence) TierMap {
	m := make(TierMap, len(names))
	for _, name := range names {
		switch {
		case has(overrides, name):
			m[name] = Assignment{Tier: TierOverride}
		case has(stored, name):
			m[name] = Assignment{Tier: TierSourceComponent}
		case has(defaults, name):
			m[name] = Assignment{Tier: TierDefault}
		default:
			m[name] = Assignment{Tier: TierSourceComponent}
		}
	}
	return m
}

func has(p Presence, name ecs.ComponentName) bool {
	return p != nil && p.Has(name)
}

func (m TierMap) assignment(name ecs.ComponentName) (Assignment, error) {
	a, ok := m[name]
	if !ok {
		return Assignment{Tier: TierSourceComponent}, nil
	}
	if a.Err != nil {
		var mappingErr *ecs.ComponentMappingError
		if errors.As(a.Err, &mappingErr) {
			return a, mappingErr
		}
		return a, ecs.NewComponentMappingError(name, a.Err)
	}
	return a, nil
}

func releaseAll(sets []*ecs.ComponentInstances) {
	for _, set := range sets {
		set.Release()
	}
}
