// Package archetypes provides the built-in archetypes.
package archetypes

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/components"
)

// Points2D is a batch of 2D points with optional styling.
type Points2D struct {
	Positions []components.Point2D
	Colors    []components.Color
	Radii     []components.Radius
	Labels    []components.Text
}

func (Points2D) ArchetypeName() string { return "archetypes.Points2D" }

func (Points2D) RequiredComponents() []ecs.ComponentName {
	return []ecs.ComponentName{ecs.NameOf[components.Point2D]()}
}

func (Points2D) OptionalComponents() []ecs.ComponentName {
	return []ecs.ComponentName{
		ecs.NameOf[components.Color](),
		ecs.NameOf[components.Radius](),
		ecs.NameOf[components.Text](),
	}
}

func (p Points2D) AsCells() ([]*ecs.Cell, error) {
	cells := make([]*ecs.Cell, 0, 4)
	var err error
	if cells, err = ecs.EncodeComponent(cells, p.Positions); err != nil {
		return nil, err
	}
	if cells, err = ecs.EncodeComponent(cells, p.Colors); err != nil {
		return nil, err
	}
	if cells, err = ecs.EncodeComponent(cells, p.Radii); err != nil {
		return nil, err
	}
	if cells, err = ecs.EncodeComponent(cells, p.Labels); err != nil {
		return nil, err
	}
	return cells, nil
}

func (Points2D) FromArrow(arrays map[ecs.ComponentName]arrow.Array) (Points2D, error) {
	var (
		p   Points2D
		err error
	)
	if p.Positions, err = ecs.DecodeComponent[components.Point2D](arrays); err != nil {
		return Points2D{}, err
	}
	if p.Colors, err = ecs.DecodeComponent[components.Color](arrays); err != nil {
		return Points2D{}, err
	}
	if p.Radii, err = ecs.DecodeComponent[components.Radius](arrays); err != nil {
		return Points2D{}, err
	}
	if p.Labels, err = ecs.DecodeComponent[components.Text](arrays); err != nil {
		return Points2D{}, err
	}
	return p, nil
}

// Scalars is a plotted value with optional styling.
type Scalars struct {
	Values []components.Scalar
	Colors []components.Color
	Names  []components.Text
}

func (Scalars) ArchetypeName() string { return "archetypes.Scalars" }

func (Scalars) RequiredComponents() []ecs.ComponentName {
	return []ecs.ComponentName{ecs.NameOf[components.Scalar]()}
}

func (Scalars) OptionalComponents() []ecs.ComponentName {
	return []ecs.ComponentName{
		ecs.NameOf[components.Color](),
		ecs.NameOf[components.Text](),
	}
}

func (s Scalars) AsCells() ([]*ecs.Cell, error) {
	cells := make([]*ecs.Cell, 0, 3)
	var err error
	if cells, err = ecs.EncodeComponent(cells, s.Values); err != nil {
		return nil, err
	}
	if cells, err = ecs.EncodeComponent(cells, s.Colors); err != nil {
		return nil, err
	}
	if cells, err = ecs.EncodeComponent(cells, s.Names); err != nil {
		return nil, err
	}
	return cells, nil
}

func (Scalars) FromArrow(arrays map[ecs.ComponentName]arrow.Array) (Scalars, error) {
	var (
		s   Scalars
		err error
	)
	if s.Values, err = ecs.DecodeComponent[components.Scalar](arrays); err != nil {
		return Scalars{}, err
	}
	if s.Colors, err = ecs.DecodeComponent[components.Color](arrays); err != nil {
		return Scalars{}, err
	}
	if s.Names, err = ecs.DecodeComponent[components.Text](arrays); err != nil {
		return Scalars{}, err
	}
	return s, nil
}
