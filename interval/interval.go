package interval

import (
	"fmt"
	"math"
	"sort"

	"github.com/grailbio/base/errors"
)

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come, since that's what BAM is limited to.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Interval is the half-open range [Start, End).  It is empty when Start ==
// End.  The zero value is an empty interval at position 0.
type Interval struct {
	Start PosType
	End   PosType
}

// NewInterval returns [start, end), or an errors.Invalid error if the pair is
// malformed.
func NewInterval(start, end PosType) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate returns an errors.Invalid error if iv has a negative start or if
// Start > End.
func (iv Interval) Validate() error {
	if iv.Start < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("interval: negative start coordinate in %v", iv))
	}
	if iv.Start > iv.End {
		return errors.E(errors.Invalid, fmt.Sprintf("interval: start > end in %v", iv))
	}
	return nil
}

// Len returns the number of positions in iv.
func (iv Interval) Len() int {
	return int(iv.End - iv.Start)
}

// Empty returns true iff iv contains no positions.
func (iv Interval) Empty() bool {
	return iv.Start >= iv.End
}

// Contains returns true iff pos is in [Start, End).
func (iv Interval) Contains(pos PosType) bool {
	return iv.Start <= pos && pos < iv.End
}

// Overlaps returns true iff (iv ∩ other) != ∅.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Intersect returns iv ∩ other.  When the two don't overlap, the result is an
// empty interval positioned inside other.
func (iv Interval) Intersect(other Interval) Interval {
	start := Clamp(iv.Start, other.Start, other.End)
	end := Clamp(iv.End, start, other.End)
	return Interval{Start: start, End: end}
}

// Compare returns (negative int, 0, positive int) if (iv<other, iv=other,
// iv>other) respectively.  Intervals are ordered by Start, then End.
func (iv Interval) Compare(other Interval) int {
	if iv.Start != other.Start {
		return int(iv.Start) - int(other.Start)
	}
	return int(iv.End) - int(other.End)
}

// LT returns true iff iv < other.
func (iv Interval) LT(other Interval) bool {
	return iv.Compare(other) < 0
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// SortIntervals sorts a in place by (Start, End).
func SortIntervals(a []Interval) {
	sort.Slice(a, func(i, j int) bool { return a[i].LT(a[j]) })
}

// ReferenceWindow is a region of interest on a named reference sequence.
type ReferenceWindow struct {
	RefName string
	Interval
}

// NewReferenceWindow returns the window refName:[start, end), or an
// errors.Invalid error if the coordinates are malformed or refName is empty.
func NewReferenceWindow(refName string, start, end PosType) (ReferenceWindow, error) {
	if refName == "" {
		return ReferenceWindow{}, errors.E(errors.Invalid, "interval.NewReferenceWindow: empty reference name")
	}
	iv, err := NewInterval(start, end)
	if err != nil {
		return ReferenceWindow{}, err
	}
	return ReferenceWindow{RefName: refName, Interval: iv}, nil
}

func (w ReferenceWindow) String() string {
	return fmt.Sprintf("%s:%v", w.RefName, w.Interval)
}

// CoverageInterval is a run of positions that are all spanned by exactly
// Coverage read intervals.
type CoverageInterval struct {
	Interval
	Coverage int
}

func (c CoverageInterval) String() string {
	return fmt.Sprintf("%v:%d", c.Interval, c.Coverage)
}

// Clamp returns min if pos < min, max if pos > max, and pos otherwise.  min <=
// max is the caller's responsibility.
func Clamp(pos, min, max PosType) PosType {
	if pos < min {
		return min
	}
	if pos > max {
		return max
	}
	return pos
}

// validateAll returns the first validation error among ivs, annotated with
// the calling function's name and the offending index.
func validateAll(fn string, ivs []Interval) error {
	for i, iv := range ivs {
		if err := iv.Validate(); err != nil {
			return errors.E(err, fmt.Sprintf("%s: interval #%d", fn, i))
		}
	}
	return nil
}
