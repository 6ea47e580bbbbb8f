package ecs

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// EntityPath is the hierarchical name of a logged object, e.g. "world/points".
type EntityPath string

// Parent returns the path one level up, or "" for a root path.
func (p EntityPath) Parent() EntityPath {
	idx := strings.LastIndexByte(string(p), '/')
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// TimeInt is a point on a timeline.
type TimeInt int64

// TimeStatic sorts before every temporal time and marks static or blueprint data.
const TimeStatic TimeInt = math.MinInt64

// IsStatic reports whether t is the static time.
func (t TimeInt) IsStatic() bool { return t == TimeStatic }

func (t TimeInt) String() string {
	if t.IsStatic() {
		return "static"
	}
	return fmt.Sprintf("%d", int64(t))
}

// TimeRange is an inclusive time interval.
type TimeRange struct {
	Min TimeInt
	Max TimeInt
}

// Contains reports whether t lies in [Min, Max].
func (r TimeRange) Contains(t TimeInt) bool {
	return t >= r.Min && t <= r.Max
}

// RowID identifies an individually logged sample. Row ids are UUIDv7 and
// therefore ordered by creation time.
type RowID uuid.UUID

// ZeroRowID is used for data re-indexed as static or blueprint-origin.
var ZeroRowID RowID

// NewRowID returns a new time-ordered row id.
func NewRowID() RowID {
	return RowID(uuid.Must(uuid.NewV7()))
}

func (r RowID) IsZero() bool { return r == ZeroRowID }

func (r RowID) Compare(other RowID) int {
	return bytes.Compare(r[:], other[:])
}

func (r RowID) String() string {
	return uuid.UUID(r).String()
}

// Index is the position of a row: its time, then its row id.
type Index struct {
	Time  TimeInt
	RowID RowID
}

// StaticIndex is the canonical position of static data.
func StaticIndex() Index {
	return Index{Time: TimeStatic, RowID: ZeroRowID}
}

// Compare orders indices by time, then row id.
func (i Index) Compare(other Index) int {
	if c := cmp.Compare(i.Time, other.Time); c != 0 {
		return c
	}
	return i.RowID.Compare(other.RowID)
}

func (i Index) String() string {
	return fmt.Sprintf("(%s, %s)", i.Time, i.RowID)
}
