package resolve_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/cellquery/ecs"
	"github.com/plus3/cellquery/ecs/archetypes"
	"github.com/plus3/cellquery/ecs/components"
	"github.com/plus3/cellquery/resolve"
	"github.com/plus3/cellquery/store"
)

// scalarSeries logs a scalar every 10 ticks over [100, 200] and a color at
// t=50 (before the window) and t=150.
func scalarSeries(t *testing.T) *store.Store {
	s := newStore(t)
	insert(t, s, "plot", 50, sequential(t, components.Color(0x50)))
	insert(t, s, "plot", 150, sequential(t, components.Color(0x150)))
	for at := ecs.TimeInt(100); at <= 200; at += 10 {
		insert(t, s, "plot", at, sequential(t, components.Scalar(float64(at))))
	}
	return s
}

type sample struct {
	at    ecs.TimeInt
	value components.Scalar
	color *components.Color
}

func collectScalars(t *testing.T, r *resolve.RangeResolver) []sample {
	t.Helper()
	views, err := resolve.RangeZip[archetypes.Scalars](r)
	require.NoError(t, err)

	var out []sample
	for view := range views {
		at, ok := view.Time()
		require.True(t, ok)
		value, err := ecs.RequiredMono[components.Scalar](view)
		require.NoError(t, err)
		color, err := ecs.OptionalMono[components.Color](view)
		require.NoError(t, err)
		out = append(out, sample{at: at, value: value, color: color})
	}
	return out
}

func scalarNames() []ecs.ComponentName {
	return ecs.AllComponents(archetypes.Scalars{})
}

func TestRangeBootstrap(t *testing.T) {
	data := scalarSeries(t)
	window := ecs.TimeRange{Min: 100, Max: 200}
	names := scalarNames()

	results := data.Range("plot", window, names...)
	bootstrap := data.LatestAt("plot", window.Min-1, names...)
	tiers := resolve.AssignTiers(names, nil, results, nil)

	r := resolve.NewRange(nil, results, nil, tiers, resolve.WithBootstrap(bootstrap))
	samples := collectScalars(t, r)
	require.Len(t, samples, 11)

	for _, s := range samples {
		assert.Equal(t, components.Scalar(float64(s.at)), s.value)
		require.NotNil(t, s.color, "t=%d", s.at)
		if s.at < 150 {
			assert.Equal(t, components.Color(0x50), *s.color, "t=%d", s.at)
		} else {
			assert.Equal(t, components.Color(0x150), *s.color, "t=%d", s.at)
		}
	}
}

func TestRangeWithoutBootstrap(t *testing.T) {
	data := scalarSeries(t)
	window := ecs.TimeRange{Min: 100, Max: 200}
	names := scalarNames()

	results := data.Range("plot", window, names...)
	r := resolve.NewRange(nil, results, nil, resolve.AssignTiers(names, nil, results, nil))

	for _, s := range collectScalars(t, r) {
		if s.at < 150 {
			assert.Nil(t, s.color, "t=%d", s.at)
		} else {
			require.NotNil(t, s.color)
			assert.Equal(t, components.Color(0x150), *s.color)
		}
	}
}

func TestRangeBootstrapDoesNotAddRows(t *testing.T) {
	s := newStore(t)
	insert(t, s, "plot", 10, sequential(t, components.Scalar(1)))
	insert(t, s, "plot", 110, sequential(t, components.Scalar(2)))

	names := scalarNames()
	window := ecs.TimeRange{Min: 100, Max: 200}
	results := s.Range("plot", window, names...)
	bootstrap := s.LatestAt("plot", window.Min-1, names...)
	r := resolve.NewRange(nil, results, nil, nil, resolve.WithBootstrap(bootstrap))

	samples := collectScalars(t, r)
	require.Len(t, samples, 1)
	assert.Equal(t, ecs.TimeInt(110), samples[0].at)
	assert.Equal(t, components.Scalar(2), samples[0].value)
}

func TestRangeGetChunks(t *testing.T) {
	data := scalarSeries(t)
	names := scalarNames()
	window := ecs.TimeRange{Min: 100, Max: 200}
	results := data.Range("plot", window, names...)
	bootstrap := data.LatestAt("plot", window.Min-1, names...)

	r := resolve.NewRange(nil, results, nil, nil, resolve.WithBootstrap(bootstrap))
	chunks, err := r.Get(colorName)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.True(t, chunks[0].IsStatic())
	assert.Equal(t, ecs.StaticIndex(), chunks[0].Row(0).Index)
	assert.False(t, chunks[1].IsStatic())
	assert.Equal(t, 1, chunks[1].Len())
	assert.Equal(t, ecs.TimeInt(150), chunks[1].Row(0).Index.Time)
}

func TestRangeOverrideIsStatic(t *testing.T) {
	data := scalarSeries(t)
	names := scalarNames()
	window := ecs.TimeRange{Min: 100, Max: 200}
	results := data.Range("plot", window, names...)

	overrides := ecs.NewLatestAtResults("overrides/plot", 200)
	overrides.Add(ecs.Index{Time: 0, RowID: ecs.NewRowID()}, sequential(t, components.Color(0xabc)))
	tiers := resolve.AssignTiers(names, overrides, results, nil)
	require.Equal(t, resolve.TierOverride, tiers[colorName].Tier)

	r := resolve.NewRange(overrides, results, nil, tiers)
	chunks, err := r.Get(colorName)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsStatic())
	assert.True(t, chunks[0].Row(0).Instances.IsSplat())

	for _, s := range collectScalars(t, r) {
		require.NotNil(t, s.color)
		assert.Equal(t, components.Color(0xabc), *s.color)
	}
}

func TestRangeMappingError(t *testing.T) {
	data := scalarSeries(t)
	names := scalarNames()
	results := data.Range("plot", ecs.TimeRange{Min: 100, Max: 200}, names...)

	tiers := resolve.TierMap{colorName: {Err: errors.New("unmapped")}}
	r := resolve.NewRange(nil, results, nil, tiers)

	chunks, err := r.Get(colorName)
	assert.Nil(t, chunks)
	assert.ErrorIs(t, err, ecs.ErrComponentMapping)

	// The optional component is dropped, rows are still produced.
	samples := collectScalars(t, r)
	assert.Len(t, samples, 11)
	for _, s := range samples {
		assert.Nil(t, s.color)
	}

	tiers[scalarName] = resolve.Assignment{Err: errors.New("unmapped")}
	_, err = resolve.RangeZip[archetypes.Scalars](resolve.NewRange(nil, results, nil, tiers))
	assert.ErrorIs(t, err, ecs.ErrComponentMapping)
}

func TestRangeQueryResultHash(t *testing.T) {
	s := newStore(t)
	for at := ecs.TimeInt(0); at < 10; at++ {
		insert(t, s, "plot", at, sequential(t, components.Scalar(float64(at))))
	}
	names := scalarNames()
	window := ecs.TimeRange{Min: 5, Max: 9}

	hash := func() uint64 {
		results := s.Range("plot", window, names...)
		bootstrap := s.LatestAt("plot", window.Min-1, names...)
		tiers := resolve.AssignTiers(names, nil, results, nil)
		return resolve.NewRange(nil, results, nil, tiers, resolve.WithBootstrap(bootstrap)).QueryResultHash()
	}

	base := hash()
	assert.Equal(t, base, hash())

	// Outside the window and after the bootstrap time: no change.
	insert(t, s, "plot", 20, sequential(t, components.Scalar(20)))
	assert.Equal(t, base, hash())

	// Inside the window: a new row id contributes.
	insert(t, s, "plot", 7, sequential(t, components.Scalar(7.5)))
	inWindow := hash()
	assert.NotEqual(t, base, inWindow)

	// Just before the window: changes the bootstrap snapshot.
	insert(t, s, "plot", 4, sequential(t, components.Scalar(4.5)))
	assert.NotEqual(t, inWindow, hash())
}

// labeledPoints requires both positions and labels.
type labeledPoints struct {
	Positions []components.Point2D
	Labels    []components.Text
}

func (labeledPoints) ArchetypeName() string { return "test.LabeledPoints" }

func (labeledPoints) RequiredComponents() []ecs.ComponentName {
	return []ecs.ComponentName{pointName, textName}
}

func (labeledPoints) OptionalComponents() []ecs.ComponentName { return nil }

func (p labeledPoints) AsCells() ([]*ecs.Cell, error) {
	cells, err := ecs.EncodeComponent(nil, p.Positions)
	if err != nil {
		return nil, err
	}
	return ecs.EncodeComponent(cells, p.Labels)
}

func (labeledPoints) FromArrow(arrays map[ecs.ComponentName]arrow.Array) (labeledPoints, error) {
	var (
		p   labeledPoints
		err error
	)
	if p.Positions, err = ecs.DecodeComponent[components.Point2D](arrays); err != nil {
		return labeledPoints{}, err
	}
	if p.Labels, err = ecs.DecodeComponent[components.Text](arrays); err != nil {
		return labeledPoints{}, err
	}
	return p, nil
}

func TestRangeZipSkipsRowsMissingRequired(t *testing.T) {
	s := newStore(t)
	insert(t, s, "labels", 1, sequential(t, components.Point2D{X: 1}))
	insert(t, s, "labels", 2, sequential(t, components.Text("first")))
	insert(t, s, "labels", 3, sequential(t, components.Point2D{X: 3}))
	insert(t, s, "labels", 4, sequential(t, components.Point2D{X: 4}), sequential(t, components.Text("second")))

	names := ecs.AllComponents(labeledPoints{})
	results := s.Range("labels", ecs.TimeRange{Min: 0, Max: 10}, names...)
	views, err := resolve.RangeZip[labeledPoints](resolve.NewRange(nil, results, nil, nil))
	require.NoError(t, err)

	var got []labeledPoints
	for view := range views {
		p, err := ecs.ToArchetype(view)
		require.NoError(t, err)
		got = append(got, p)
	}
	assert.Equal(t, []labeledPoints{
		{Positions: []components.Point2D{{X: 3}}, Labels: []components.Text{"first"}},
		{Positions: []components.Point2D{{X: 4}}, Labels: []components.Text{"second"}},
	}, got)

	// The sequence can be iterated again with the same result.
	assert.Len(t, slices.Collect(views), 2)
}

func TestRangeZipPrimaryOverrideKeepsStoredOptionals(t *testing.T) {
	s := newStore(t)
	insert(t, s, "points", 50,
		sequential(t, components.Point2D{X: 1}),
		sequential(t, components.Color(7)),
	)

	names := pointNames()
	window := ecs.TimeRange{Min: 100, Max: 200}
	overrides := ecs.NewLatestAtResults("overrides/points", window.Max)
	overrides.Add(ecs.StaticIndex(), sequential(t, components.Point2D{X: 9}))
	results := s.Range("points", window, names...)
	bootstrap := s.LatestAt("points", window.Min-1, names...)
	tiers := resolve.AssignTiers(names, overrides, results, nil)

	r := resolve.NewRange(overrides, results, nil, tiers, resolve.WithBootstrap(bootstrap))
	views, err := resolve.RangeZip[archetypes.Points2D](r)
	require.NoError(t, err)

	got := slices.Collect(views)
	require.Len(t, got, 1)
	assert.Equal(t, []ecs.InstanceKey{0}, slices.Collect(got[0].IterInstanceKeys()))
	colors := colorsOf(t, got[0])
	require.Len(t, colors, 1)
	require.NotNil(t, colors[0])
	assert.Equal(t, components.Color(7), *colors[0])

	r.Release()
}
