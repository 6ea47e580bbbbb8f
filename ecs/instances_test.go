package ecs_test

import (
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/components"
)

func TestComponentInstancesLookup(t *testing.T) {
	ci, err := ecs.ComponentInstancesFromNative(
		[]ecs.InstanceKey{1, 4, 9},
		[]components.Radius{10, 40, 90},
	)
	require.NoError(t, err)
	defer ci.Release()

	assert.Equal(t, ecs.NameOf[components.Radius](), ci.Name())
	assert.Equal(t, 3, ci.Len())
	assert.False(t, ci.IsSplat())

	for key, want := range map[ecs.InstanceKey]components.Radius{1: 10, 4: 40, 9: 90} {
		slice, ok := ci.Lookup(key)
		require.True(t, ok, "key %d", key)
		assert.Equal(t, 1, slice.Len())
		assert.Equal(t, float32(want), slice.(*array.Float32).Value(0))
		slice.Release()
	}

	for _, key := range []ecs.InstanceKey{0, 2, 5, 10, ecs.Splat} {
		_, ok := ci.Lookup(key)
		assert.False(t, ok, "key %d", key)
	}
}

func TestComponentInstancesLookupSplat(t *testing.T) {
	ci, err := ecs.SplatInstances(components.Color(0xff))
	require.NoError(t, err)
	defer ci.Release()

	assert.True(t, ci.IsSplat())
	for _, key := range []ecs.InstanceKey{0, 1, 1000, ecs.Splat} {
		value, ok, err := ecs.LookupValue[components.Color](ci, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, components.Color(0xff), value)
	}
}

func TestComponentInstancesLookupValue(t *testing.T) {
	ci, err := ecs.SequentialInstances(components.Text("a"), components.Text("b"))
	require.NoError(t, err)
	defer ci.Release()

	value, ok, err := ecs.LookupValue[components.Text](ci, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, components.Text("b"), value)

	_, ok, err = ecs.LookupValue[components.Text](ci, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ecs.LookupValue[components.Color](ci, 0)
	assert.True(t, errors.Is(err, ecs.ErrTypeMismatch))
}

func TestComponentInstancesCorrupt(t *testing.T) {
	keys, err := ecs.CellFromValues[ecs.InstanceKey](0, 1, 2)
	require.NoError(t, err)
	values, err := ecs.CellFromValues[components.Radius](1, 2)
	require.NoError(t, err)
	ci := ecs.NewComponentInstances(keys, values)
	defer ci.Release()

	_, ok := ci.Lookup(0)
	assert.False(t, ok, "mismatched lengths must not resolve")

	splatKeys, err := ecs.CellFromValues(ecs.Splat)
	require.NoError(t, err)
	twoValues, err := ecs.CellFromValues[components.Radius](1, 2)
	require.NoError(t, err)
	badSplat := ecs.NewComponentInstances(splatKeys, twoValues)
	defer badSplat.Release()

	_, ok = badSplat.Lookup(0)
	assert.False(t, ok, "a splat must have exactly one value")
}

func TestComponentInstancesNonIntegerKeys(t *testing.T) {
	keys, err := ecs.CellFromValues[components.Scalar](0, 1)
	require.NoError(t, err)
	values, err := ecs.CellFromValues[components.Radius](1, 2)
	require.NoError(t, err)
	ci := ecs.NewComponentInstances(keys, values)
	defer ci.Release()

	_, ok := ci.Lookup(0)
	assert.False(t, ok)
	assert.Empty(t, slices.Collect(ci.IterKeys()))
}

func TestComponentInstancesIter(t *testing.T) {
	ci, err := ecs.ComponentInstancesFromNative(
		[]ecs.InstanceKey{2, 3},
		[]components.Scalar{0.5, 1.5},
	)
	require.NoError(t, err)
	defer ci.Release()

	seq, err := ecs.Iter[components.Scalar](ci)
	require.NoError(t, err)
	assert.Equal(t, map[ecs.InstanceKey]components.Scalar{2: 0.5, 3: 1.5}, maps.Collect(seq))
	assert.Equal(t, []ecs.InstanceKey{2, 3}, slices.Collect(ci.IterKeys()))

	_, err = ecs.Iter[components.Color](ci)
	assert.True(t, errors.Is(err, ecs.ErrTypeMismatch))
}

func TestComponentInstancesAsSplat(t *testing.T) {
	single, err := ecs.SequentialInstances(components.Color(7))
	require.NoError(t, err)
	defer single.Release()
	require.False(t, single.IsSplat())

	splat := single.AsSplat()
	defer splat.Release()
	assert.True(t, splat.IsSplat())
	assert.True(t, splat.Values().SameCell(single.Values()))

	again := splat.AsSplat()
	defer again.Release()
	assert.True(t, again.IsSplat())

	multi, err := ecs.SequentialInstances(components.Color(1), components.Color(2))
	require.NoError(t, err)
	defer multi.Release()
	notSplat := multi.AsSplat()
	defer notSplat.Release()
	assert.False(t, notSplat.IsSplat())
	assert.True(t, notSplat.Keys().SameCell(multi.Keys()))
}

func TestComponentInstancesClone(t *testing.T) {
	ci, err := ecs.SequentialInstances(components.Radius(1))
	require.NoError(t, err)

	clone := ci.Clone()
	assert.Equal(t, int64(2), ci.Keys().RefCount())
	assert.Equal(t, int64(2), ci.Values().RefCount())

	clone.Release()
	assert.Equal(t, int64(1), ci.Keys().RefCount())
	ci.Release()
}
