package ecs_test

import (
	"testing"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/archetypes"
	"github.com/plus3/cellquery/ecs/components"
)

func benchPoints(b *testing.B, n int) []components.Point2D {
	b.Helper()
	points := make([]components.Point2D, n)
	for i := range points {
		points[i] = components.Point2D{X: float32(i), Y: float32(i)}
	}
	return points
}

func BenchmarkCellFromValues(b *testing.B) {
	points := benchPoints(b, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cell, err := ecs.CellFromValues(points...)
		if err != nil {
			b.Fatal(err)
		}
		cell.Release()
	}
}

func BenchmarkToNative(b *testing.B) {
	cell, err := ecs.CellFromValues(benchPoints(b, 10000)...)
	if err != nil {
		b.Fatal(err)
	}
	defer cell.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ecs.ToNative[components.Point2D](cell); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJoinInstancesSparse(b *testing.B) {
	primary := ecs.SequentialKeys(10000)
	var secondary []ecs.InstanceKey
	var values []components.Color
	for i := 0; i < 10000; i += 3 {
		secondary = append(secondary, ecs.InstanceKey(i))
		values = append(values, components.Color(i))
	}
	ci := mustInstances(b, secondary, values...)
	defer ci.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq, err := ecs.JoinComponent[components.Color](keys(primary...), ci)
		if err != nil {
			b.Fatal(err)
		}
		for range seq {
		}
	}
}

func BenchmarkIterOptionalAligned(b *testing.B) {
	positions := mustSequential(b, benchPoints(b, 10000)...)
	colors := make([]components.Color, 10000)
	view := ecs.NewArchetypeView[archetypes.Points2D](ecs.ZeroRowID, nil,
		positions, mustSequential(b, colors...))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq, err := ecs.IterOptional[components.Color](view)
		if err != nil {
			b.Fatal(err)
		}
		for range seq {
		}
	}
}

func BenchmarkIterOptionalSplat(b *testing.B) {
	splat, err := ecs.SplatInstances(components.Radius(1))
	if err != nil {
		b.Fatal(err)
	}
	view := ecs.NewArchetypeView[archetypes.Points2D](ecs.ZeroRowID, nil,
		mustSequential(b, benchPoints(b, 10000)...), splat)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq, err := ecs.IterOptional[components.Radius](view)
		if err != nil {
			b.Fatal(err)
		}
		for range seq {
		}
	}
}
