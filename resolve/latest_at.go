package resolve

import (
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/plus3/cellquery/ecs"
)

// LatestAtResolver resolves latest-at data across the three tiers.
type LatestAtResolver struct {
	overrides *ecs.LatestAtResults
	results   *ecs.LatestAtResults
	defaults  *ecs.LatestAtResults
	tiers     TierMap
	logger    *slog.Logger

	// derived holds the sets built while resolving, released by Release.
	derived []*ecs.ComponentInstances
}

// NewLatestAt creates a resolver over independently fetched override, stored
// and default results. Any of the result sets may be nil.
func NewLatestAt(overrides, results, defaults *ecs.LatestAtResults, tiers TierMap) *LatestAtResolver {
	return &LatestAtResolver{
		overrides: overrides,
		results:   results,
		defaults:  defaults,
		tiers:     tiers,
		logger:    ecs.Logger(),
	}
}

// Get returns the data of a component from its assigned tier, or nil if that
// tier has none. A failed tier assignment is returned as a
// *ecs.ComponentMappingError and takes priority over any data.
//
// Stored data keeps its index; with preserveRowID false the row id is zeroed.
// Override and default data is re-indexed as static with a zeroed row id, and
// a single value is keyed as a splat so it applies to every row.
func (r *LatestAtResolver) Get(name ecs.ComponentName, preserveRowID bool) (*ecs.UnitResult, error) {
	return r.get(name, preserveRowID, true)
}

func (r *LatestAtResolver) get(name ecs.ComponentName, preserveRowID, splat bool) (*ecs.UnitResult, error) {
	a, err := r.tiers.assignment(name)
	if err != nil {
		return nil, err
	}

	switch a.Tier {
	case TierOverride:
		return r.static(r.overrides, name, splat), nil
	case TierDefault:
		return r.static(r.defaults, name, splat), nil
	default:
		u, ok := r.results.Get(name)
		if !ok {
			return nil, nil
		}
		if preserveRowID {
			return u, nil
		}
		return u.Reindexed(ecs.Index{Time: u.Index.Time}), nil
	}
}

// Primary resolves the component that defines the instances of a row. Unlike
// Required, configured values keep their own instance keys.
func (r *LatestAtResolver) Primary(name ecs.ComponentName) (*ecs.UnitResult, error) {
	return r.get(name, true, false)
}

// Required resolves a required component, keeping its row id for caching.
func (r *LatestAtResolver) Required(name ecs.ComponentName) (*ecs.UnitResult, error) {
	return r.Get(name, true)
}

// Optional resolves an optional component with a zeroed row id.
func (r *LatestAtResolver) Optional(name ecs.ComponentName) (*ecs.UnitResult, error) {
	return r.Get(name, false)
}

func (r *LatestAtResolver) static(results *ecs.LatestAtResults, name ecs.ComponentName, splat bool) *ecs.UnitResult {
	u, ok := results.Get(name)
	if !ok {
		return nil
	}
	if !splat {
		return &ecs.UnitResult{Index: ecs.StaticIndex(), Instances: u.Instances}
	}
	instances := u.Instances.AsSplat()
	r.derived = append(r.derived, instances)
	return &ecs.UnitResult{Index: ecs.StaticIndex(), Instances: instances}
}

// Release gives up the splat sets built while resolving. Results and views
// obtained from the resolver must not be used afterwards.
func (r *LatestAtResolver) Release() {
	releaseAll(r.derived)
	r.derived = nil
}

// QueryResultHash combines the row ids of every contributing result, in all
// three tiers, with the hash of the tier assignments.
func (r *LatestAtResolver) QueryResultHash() uint64 {
	d := xxhash.New()
	hashLatestAt(d, tagOverrides, r.overrides)
	hashLatestAt(d, tagResults, r.results)
	hashLatestAt(d, tagDefaults, r.defaults)
	hashTiers(d, r.tiers)
	return d.Sum64()
}

// LatestAtView resolves every component of A into a single view. The first
// required component keeps its instance keys even when it is configured.
// A mapping failure of a required component is returned; failing optional
// components are logged and left out.
func LatestAtView[A ecs.ArchetypeCodec[A]](r *LatestAtResolver) (*ecs.ArchetypeView[A], error) {
	var zero A
	var (
		sets  []*ecs.ComponentInstances
		index *ecs.Index
	)
	for i, name := range zero.RequiredComponents() {
		resolveRequired := r.Required
		if i == 0 {
			resolveRequired = r.Primary
		}
		u, err := resolveRequired(name)
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}
		if i == 0 {
			idx := u.Index
			index = &idx
		}
		sets = append(sets, u.Instances)
	}
	for _, name := range zero.OptionalComponents() {
		u, err := r.Optional(name)
		if err != nil {
			r.logger.Warn("skipping optional component", "archetype", zero.ArchetypeName(), "error", err)
			continue
		}
		if u != nil {
			sets = append(sets, u.Instances)
		}
	}

	if index == nil {
		return ecs.NewArchetypeView[A](ecs.ZeroRowID, nil, sets...), nil
	}
	return ecs.NewArchetypeView[A](index.RowID, timeOf(*index), sets...), nil
}

func timeOf(index ecs.Index) *ecs.TimeInt {
	if index.Time.IsStatic() {
		return nil
	}
	t := index.Time
	return &t
}
