// Package components provides the concrete component types shared by the
// built-in archetypes.
package components

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/plus3/cellquery/ecs"
)

var errNulls = errors.New("unexpected nulls")

// Point2D is a position in 2D space.
type Point2D struct {
	X, Y float32
}

var point2DType = arrow.StructOf(
	arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Float32},
	arrow.Field{Name: "y", Type: arrow.PrimitiveTypes.Float32},
)

func (Point2D) ComponentName() ecs.ComponentName { return "components.Point2D" }

func (Point2D) ArrowType() arrow.DataType { return point2DType }

func (Point2D) ToArrow(mem memory.Allocator, values []Point2D) (arrow.Array, error) {
	b := array.NewStructBuilder(mem, point2DType)
	defer b.Release()
	xs := b.FieldBuilder(0).(*array.Float32Builder)
	ys := b.FieldBuilder(1).(*array.Float32Builder)
	b.Reserve(len(values))
	for _, p := range values {
		b.Append(true)
		xs.Append(p.X)
		ys.Append(p.Y)
	}
	return b.NewArray(), nil
}

func (Point2D) FromArrow(arr arrow.Array) ([]Point2D, error) {
	s, ok := arr.(*array.Struct)
	if !ok || s.NumField() != 2 {
		return nil, fmt.Errorf("expected struct<x, y>, got %s", arr.DataType())
	}
	if s.NullN() > 0 {
		return nil, errNulls
	}
	xs, okX := s.Field(0).(*array.Float32)
	ys, okY := s.Field(1).(*array.Float32)
	if !okX || !okY {
		return nil, fmt.Errorf("expected float32 fields, got %s", arr.DataType())
	}
	out := make([]Point2D, s.Len())
	for i := range out {
		out[i] = Point2D{X: xs.Value(i), Y: ys.Value(i)}
	}
	return out, nil
}

// Color is an sRGBA color packed as 0xRRGGBBAA.
type Color uint32

// NewColor packs the given channels.
func NewColor(r, g, b, a uint8) Color {
	return Color(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a))
}

// RGBA unpacks the channels.
func (c Color) RGBA() (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (Color) ComponentName() ecs.ComponentName { return "components.Color" }

func (Color) ArrowType() arrow.DataType { return arrow.PrimitiveTypes.Uint32 }

func (Color) ToArrow(mem memory.Allocator, values []Color) (arrow.Array, error) {
	b := array.NewUint32Builder(mem)
	defer b.Release()
	b.Reserve(len(values))
	for _, c := range values {
		b.Append(uint32(c))
	}
	return b.NewArray(), nil
}

func (Color) FromArrow(arr arrow.Array) ([]Color, error) {
	raw, ok := arr.(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("expected uint32, got %s", arr.DataType())
	}
	if raw.NullN() > 0 {
		return nil, errNulls
	}
	out := make([]Color, raw.Len())
	for i, v := range raw.Uint32Values() {
		out[i] = Color(v)
	}
	return out, nil
}

// Radius is the size of a point.
type Radius float32

func (Radius) ComponentName() ecs.ComponentName { return "components.Radius" }

func (Radius) ArrowType() arrow.DataType { return arrow.PrimitiveTypes.Float32 }

func (Radius) ToArrow(mem memory.Allocator, values []Radius) (arrow.Array, error) {
	b := array.NewFloat32Builder(mem)
	defer b.Release()
	b.Reserve(len(values))
	for _, r := range values {
		b.Append(float32(r))
	}
	return b.NewArray(), nil
}

func (Radius) FromArrow(arr arrow.Array) ([]Radius, error) {
	raw, ok := arr.(*array.Float32)
	if !ok {
		return nil, fmt.Errorf("expected float32, got %s", arr.DataType())
	}
	if raw.NullN() > 0 {
		return nil, errNulls
	}
	out := make([]Radius, raw.Len())
	for i, v := range raw.Float32Values() {
		out[i] = Radius(v)
	}
	return out, nil
}

// Text is a UTF-8 label.
type Text string

func (Text) ComponentName() ecs.ComponentName { return "components.Text" }

func (Text) ArrowType() arrow.DataType { return arrow.BinaryTypes.String }

func (Text) ToArrow(mem memory.Allocator, values []Text) (arrow.Array, error) {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(len(values))
	for i, t := range values {
		if !utf8.ValidString(string(t)) {
			return nil, fmt.Errorf("text %d is not valid UTF-8", i)
		}
		b.Append(string(t))
	}
	return b.NewArray(), nil
}

func (Text) FromArrow(arr arrow.Array) ([]Text, error) {
	raw, ok := arr.(*array.String)
	if !ok {
		return nil, fmt.Errorf("expected utf8, got %s", arr.DataType())
	}
	if raw.NullN() > 0 {
		return nil, errNulls
	}
	out := make([]Text, raw.Len())
	for i := range out {
		out[i] = Text(raw.Value(i))
	}
	return out, nil
}

// Scalar is a single plotted value.
type Scalar float64

func (Scalar) ComponentName() ecs.ComponentName { return "components.Scalar" }

func (Scalar) ArrowType() arrow.DataType { return arrow.PrimitiveTypes.Float64 }

func (Scalar) ToArrow(mem memory.Allocator, values []Scalar) (arrow.Array, error) {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.Reserve(len(values))
	for _, s := range values {
		b.Append(float64(s))
	}
	return b.NewArray(), nil
}

func (Scalar) FromArrow(arr arrow.Array) ([]Scalar, error) {
	raw, ok := arr.(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("expected float64, got %s", arr.DataType())
	}
	if raw.NullN() > 0 {
		return nil, errNulls
	}
	out := make([]Scalar, raw.Len())
	for i, v := range raw.Float64Values() {
		out[i] = Scalar(v)
	}
	return out, nil
}

// Register registers every component of this package.
func Register(r *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Point2D](r)
	ecs.RegisterComponent[Color](r)
	ecs.RegisterComponent[Radius](r)
	ecs.RegisterComponent[Text](r)
	ecs.RegisterComponent[Scalar](r)
}
