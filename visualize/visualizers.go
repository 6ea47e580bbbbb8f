package visualize

import (
	"context"
	"errors"
	"fmt"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/archetypes"
	"github.com/plus3/cellquery/ecs/components"
	"github.com/plus3/cellquery/resolve"
	"github.com/plus3/cellquery/store"
)

// DefaultsPath is the blueprint entity holding view-wide default values.
const DefaultsPath ecs.EntityPath = "blueprint/defaults"

// OverridePath is the blueprint entity holding the overrides of entity.
func OverridePath(entity ecs.EntityPath) ecs.EntityPath {
	return "blueprint/overrides/" + entity
}

// blueprintLatestAt queries the blueprint store, which may be absent.
func blueprintLatestAt(bp *store.Store, entity ecs.EntityPath, at ecs.TimeInt, names []ecs.ComponentName) *ecs.LatestAtResults {
	if bp == nil {
		return nil
	}
	return bp.LatestAt(entity, at, names...)
}

// PointsVisualizer resolves the latest Points2D of each entity.
type PointsVisualizer struct {
	Entities []ecs.EntityPath

	queries map[ecs.EntityPath]*resolve.CachedQuery[archetypes.Points2D]

	// Points is the number of points seen in the last frame.
	Points int
	// Colored is the number of those points that had a color.
	Colored int
}

func (v *PointsVisualizer) Name() string { return "points2d" }

func (v *PointsVisualizer) query(entity ecs.EntityPath) *resolve.CachedQuery[archetypes.Points2D] {
	if v.queries == nil {
		v.queries = make(map[ecs.EntityPath]*resolve.CachedQuery[archetypes.Points2D])
	}
	q, ok := v.queries[entity]
	if !ok {
		q = resolve.NewCachedQuery[archetypes.Points2D]()
		v.queries[entity] = q
	}
	return q
}

func (v *PointsVisualizer) Execute(ctx context.Context, frame *Frame) error {
	names := ecs.AllComponents(archetypes.Points2D{})
	v.Points, v.Colored = 0, 0

	var errs []error
	for _, entity := range v.Entities {
		if err := ctx.Err(); err != nil {
			return err
		}

		overrides := blueprintLatestAt(frame.Blueprint, OverridePath(entity), frame.Time, names)
		defaults := blueprintLatestAt(frame.Blueprint, DefaultsPath, frame.Time, names)
		results := frame.Store.LatestAt(entity, frame.Time, names...)
		tiers := resolve.AssignTiers(names, overrides, results, defaults)

		q := v.query(entity)
		if err := q.ExecuteLatestAt(resolve.NewLatestAt(overrides, results, defaults, tiers)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entity, err))
			continue
		}
		for view := range q.Iter() {
			if err := v.count(view); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", entity, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (v *PointsVisualizer) count(view *ecs.ArchetypeView[archetypes.Points2D]) error {
	if !view.HasComponent(ecs.NameOf[components.Point2D]()) {
		return nil
	}
	positions, err := ecs.IterRequired[components.Point2D](view)
	if err != nil {
		return err
	}
	colors, err := ecs.IterOptional[components.Color](view)
	if err != nil {
		return err
	}
	for range positions {
		v.Points++
	}
	for c := range colors {
		if c != nil {
			v.Colored++
		}
	}
	return nil
}

// ScalarsVisualizer resolves a trailing window of Scalars for each entity.
type ScalarsVisualizer struct {
	Entities []ecs.EntityPath
	// Window is the length of the visible time range ending at the frame time.
	Window ecs.TimeInt

	queries map[ecs.EntityPath]*resolve.CachedQuery[archetypes.Scalars]

	// Samples is the number of rows seen in the last frame.
	Samples int
}

func (v *ScalarsVisualizer) Name() string { return "scalars" }

func (v *ScalarsVisualizer) query(entity ecs.EntityPath) *resolve.CachedQuery[archetypes.Scalars] {
	if v.queries == nil {
		v.queries = make(map[ecs.EntityPath]*resolve.CachedQuery[archetypes.Scalars])
	}
	q, ok := v.queries[entity]
	if !ok {
		q = resolve.NewCachedQuery[archetypes.Scalars]()
		v.queries[entity] = q
	}
	return q
}

func (v *ScalarsVisualizer) Execute(ctx context.Context, frame *Frame) error {
	names := ecs.AllComponents(archetypes.Scalars{})
	window := ecs.TimeRange{Min: frame.Time - v.Window, Max: frame.Time}
	v.Samples = 0

	var errs []error
	for _, entity := range v.Entities {
		if err := ctx.Err(); err != nil {
			return err
		}

		overrides := blueprintLatestAt(frame.Blueprint, OverridePath(entity), frame.Time, names)
		defaults := blueprintLatestAt(frame.Blueprint, DefaultsPath, frame.Time, names)
		results := frame.Store.Range(entity, window, names...)
		bootstrap := frame.Store.LatestAt(entity, window.Min-1, names...)
		tiers := resolve.AssignTiers(names, overrides, results, defaults)

		r := resolve.NewRange(overrides, results, defaults, tiers, resolve.WithBootstrap(bootstrap))
		q := v.query(entity)
		if err := q.ExecuteRange(r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entity, err))
			continue
		}
		v.Samples += q.Len()
	}
	return errors.Join(errs...)
}

// CacheStats sums the cache hits and misses of every entity query.
func (v *PointsVisualizer) CacheStats() (hits, misses int64) {
	for _, q := range v.queries {
		h, m := q.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// CacheStats sums the cache hits and misses of every entity query.
func (v *ScalarsVisualizer) CacheStats() (hits, misses int64) {
	for _, q := range v.queries {
		h, m := q.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}
