package commands

import (
	"fmt"
	"math/rand/v2"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/archetypes"
	"github.com/plus3/cellquery/ecs/components"
	"github.com/plus3/cellquery/internal/config"
	"github.com/plus3/cellquery/store"
	"github.com/plus3/cellquery/visualize"
)

// dataset names the generated entities.
type dataset struct {
	points  []ecs.EntityPath
	scalars []ecs.EntityPath
}

func newDataset(cfg *config.StressConfig) *dataset {
	d := &dataset{
		points:  make([]ecs.EntityPath, cfg.Data.Points),
		scalars: make([]ecs.EntityPath, cfg.Data.Scalars),
	}
	for i := range d.points {
		d.points[i] = ecs.EntityPath(fmt.Sprintf("world/points/%04d", i))
	}
	for i := range d.scalars {
		d.scalars[i] = ecs.EntityPath(fmt.Sprintf("plots/scalars/%04d", i))
	}
	return d
}

// populate logs Times rows for every entity. Points carry a color on every
// other instance and a radius splat; scalars carry a static name.
func populate(data *store.Store, d *dataset, cfg *config.StressConfig, rng *rand.Rand) error {
	for _, entity := range d.points {
		for t := range cfg.Data.Times {
			if err := logPoints(data, entity, ecs.TimeInt(t), cfg.Data.Instances, rng); err != nil {
				return err
			}
		}
	}

	for _, entity := range d.scalars {
		name, err := ecs.SequentialInstances(components.Text(entity))
		if err != nil {
			return err
		}
		if _, err := data.InsertStatic(entity, name); err != nil {
			return err
		}
		value := rng.NormFloat64()
		for t := range cfg.Data.Times {
			value += rng.NormFloat64() * 0.1
			scalars := archetypes.Scalars{Values: []components.Scalar{components.Scalar(value)}}
			if _, err := data.LogArchetype(entity, ecs.TimeInt(t), scalars); err != nil {
				return err
			}
		}
	}
	return nil
}

func logPoints(data *store.Store, entity ecs.EntityPath, t ecs.TimeInt, n int, rng *rand.Rand) error {
	positions := make([]components.Point2D, n)
	for i := range positions {
		positions[i] = components.Point2D{X: rng.Float32() * 100, Y: rng.Float32() * 100}
	}
	colorKeys := make([]ecs.InstanceKey, 0, (n+1)/2)
	colors := make([]components.Color, 0, (n+1)/2)
	for i := 0; i < n; i += 2 {
		colorKeys = append(colorKeys, ecs.InstanceKey(i))
		colors = append(colors, components.Color(rng.Uint32()))
	}

	positionSet, err := ecs.SequentialInstances(positions...)
	if err != nil {
		return err
	}
	colorSet, err := ecs.ComponentInstancesFromNative(colorKeys, colors)
	if err != nil {
		return err
	}
	radiusSet, err := ecs.SplatInstances(components.Radius(1 + rng.Float32()))
	if err != nil {
		return err
	}
	return data.Insert(entity, ecs.Index{Time: t, RowID: ecs.NewRowID()}, positionSet, colorSet, radiusSet)
}

// populateBlueprint stores color overrides for every OverrideEvery-th points
// entity, and the configured view-wide defaults.
func populateBlueprint(bp *store.Store, d *dataset, cfg *config.StressConfig, rng *rand.Rand) error {
	if cfg.Blueprint == nil {
		return nil
	}

	if every := cfg.Blueprint.OverrideEvery; every > 0 {
		for i := 0; i < len(d.points); i += every {
			color, err := ecs.SequentialInstances(components.Color(rng.Uint32()))
			if err != nil {
				return err
			}
			if _, err := bp.InsertStatic(visualize.OverridePath(d.points[i]), color); err != nil {
				return err
			}
		}
	}

	var defaults []*ecs.ComponentInstances
	if c := cfg.Blueprint.DefaultColor; c != nil {
		color, err := ecs.SequentialInstances(components.Color(*c))
		if err != nil {
			return err
		}
		defaults = append(defaults, color)
	}
	if r := cfg.Blueprint.DefaultRadius; r != nil {
		radius, err := ecs.SequentialInstances(components.Radius(*r))
		if err != nil {
			return err
		}
		defaults = append(defaults, radius)
	}
	if len(defaults) == 0 {
		return nil
	}
	_, err := bp.InsertStatic(visualize.DefaultsPath, defaults...)
	return err
}
