package interval

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Holes returns the parts of window not covered by intervals, which must be
// sorted and pairwise disjoint.  Any part of an input interval outside window
// is ignored.  An empty intervals yields window itself (unless window is
// empty); intervals covering window yield nothing.
//
// Internally the covered set is flattened into a sorted endpoint sequence
// bracketed by the window boundaries, so that consecutive (even, odd) endpoint
// pairs are exactly the holes.  For example, with window [0, 10) and
// intervals [2, 4), [6, 10), the endpoint sequence is
//   {0, 2, 4, 6, 10, 10}
// and the holes are [0, 2) and [4, 6); [10, 10) is empty and dropped.
func Holes(window Interval, intervals []Interval) ([]Interval, error) {
	if err := window.Validate(); err != nil {
		return nil, errors.E(err, "interval.Holes: window")
	}
	if err := validateAll("interval.Holes", intervals); err != nil {
		return nil, err
	}
	endpoints := make([]PosType, 0, 2*len(intervals)+2)
	endpoints = append(endpoints, window.Start)
	for i, iv := range intervals {
		if i > 0 && iv.Start < intervals[i-1].End {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.Holes: intervals %v and %v are unsorted or overlap", intervals[i-1], iv))
		}
		clipped := iv.Intersect(window)
		if clipped.Empty() {
			continue
		}
		endpoints = append(endpoints, clipped.Start, clipped.End)
	}
	endpoints = append(endpoints, window.End)

	var holes []Interval
	for k := 0; k < len(endpoints); k += 2 {
		if endpoints[k] < endpoints[k+1] {
			holes = append(holes, Interval{Start: endpoints[k], End: endpoints[k+1]})
		}
	}
	return holes, nil
}
