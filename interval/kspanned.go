package interval

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
)

// KSpannedIntervals finds a maximal set of maximal disjoint intervals within
// window such that every position of each interval is spanned by at least
// minCoverage of reads, and each interval is at least minLength long.  The
// result is sorted.
//
// This is a greedy search procedure: it makes a single left-to-right pass over
// the read endpoints, opening a run as soon as the depth reaches minCoverage
// and closing it as soon as the depth drops below, and never revisits a
// closed run.  It is not guaranteed to return the optimal solution in every
// sense, but it does return the optimal solution in the most common cases.
// Downstream consumers rely on this exact behavior.
//
// reads is not modified.  Reads extending past the window are clipped.  When
// minCoverage is 0, the whole window is returned, provided it is nonempty and
// at least minLength long.
func KSpannedIntervals(window Interval, reads []Interval, minCoverage, minLength int) ([]Interval, error) {
	if err := window.Validate(); err != nil {
		return nil, errors.E(err, "interval.KSpannedIntervals: window")
	}
	if minCoverage < 0 || minLength < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.KSpannedIntervals: invalid thresholds minCoverage=%d minLength=%d", minCoverage, minLength))
	}
	if err := validateAll("interval.KSpannedIntervals", reads); err != nil {
		return nil, err
	}
	if minCoverage == 0 {
		if window.Empty() || window.Len() < minLength {
			return nil, nil
		}
		return []Interval{window}, nil
	}

	// Private, sorted copies of the clipped endpoints.
	starts := make([]PosType, 0, len(reads))
	ends := make([]PosType, 0, len(reads))
	for _, r := range reads {
		clipped := r.Intersect(window)
		if clipped.Empty() {
			continue
		}
		starts = append(starts, clipped.Start)
		ends = append(ends, clipped.End)
	}
	sortPosTypes(starts)
	sortPosTypes(ends)

	var result []Interval
	depth := 0
	inRun := false
	var runStart PosType
	si, ei := 0, 0
	for ei < len(ends) {
		// Every start is strictly less than its own end, so the next event
		// position is either a start or an end; all events at one position are
		// applied before the depth is tested.
		pos := ends[ei]
		if si < len(starts) && starts[si] < pos {
			pos = starts[si]
		}
		for si < len(starts) && starts[si] == pos {
			depth++
			si++
		}
		for ei < len(ends) && ends[ei] == pos {
			depth--
			ei++
		}
		if !inRun && depth >= minCoverage {
			inRun = true
			runStart = pos
		} else if inRun && depth < minCoverage {
			inRun = false
			if int(pos-runStart) >= minLength {
				result = append(result, Interval{Start: runStart, End: pos})
			}
		}
	}
	return result, nil
}

func sortPosTypes(a []PosType) {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
}
