package ecs_test

import (
	"fmt"
	"slices"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/archetypes"
	"github.com/plus3/cellquery/ecs/components"
)

// ExampleArchetypeView demonstrates reading a row set through a view.
// Required components are read as stored, while optional components are joined
// against the instance keys of the first required component: every optional
// sequence has exactly one entry per point, nil where no value was logged.
func ExampleArchetypeView() {
	positions, _ := ecs.SequentialInstances(
		components.Point2D{X: 0, Y: 0},
		components.Point2D{X: 1, Y: 1},
		components.Point2D{X: 2, Y: 2},
	)
	colors, _ := ecs.ComponentInstancesFromNative(
		[]ecs.InstanceKey{0, 2},
		[]components.Color{components.NewColor(255, 0, 0, 255), components.NewColor(0, 0, 255, 255)},
	)
	radius, _ := ecs.SplatInstances(components.Radius(0.5))

	view := ecs.NewArchetypeView[archetypes.Points2D](ecs.NewRowID(), nil, positions, colors, radius)

	pointSeq, _ := ecs.IterRequired[components.Point2D](view)
	colorSeq, _ := ecs.IterOptional[components.Color](view)
	radiusSeq, _ := ecs.IterOptional[components.Radius](view)

	points := slices.Collect(pointSeq)
	colorList := slices.Collect(colorSeq)
	radii := slices.Collect(radiusSeq)
	for i, p := range points {
		c, r := colorList[i], radii[i]
		if c == nil {
			fmt.Printf("(%.0f, %.0f) uncolored r=%.1f\n", p.X, p.Y, *r)
			continue
		}
		red, _, blue, _ := c.RGBA()
		fmt.Printf("(%.0f, %.0f) red=%d blue=%d r=%.1f\n", p.X, p.Y, red, blue, *r)
	}

	// Output:
	// (0, 0) red=255 blue=0 r=0.5
	// (1, 1) uncolored r=0.5
	// (2, 2) red=0 blue=255 r=0.5
}

// ExampleJoinInstances shows the left join used by optional components.
func ExampleJoinInstances() {
	primary := keys(0, 1, 2, 3, 4)
	out := ecs.JoinInstances(primary, keys(0, 2, 4), slices.Values([]string{"a", "b", "c"}))
	for v := range out {
		if v == nil {
			fmt.Println("none")
			continue
		}
		fmt.Println(*v)
	}

	// Output:
	// a
	// none
	// b
	// none
	// c
}
