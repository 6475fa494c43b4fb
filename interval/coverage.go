package interval

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// ProjectIntoRange returns the coverage over window implied by reads: entry
// i is the number of reads containing position window.Start+i.  Reads
// extending past either window boundary are clipped; reads entirely outside
// the window contribute nothing.  reads need not be sorted.
func ProjectIntoRange(reads []Interval, window Interval) ([]int, error) {
	if err := window.Validate(); err != nil {
		return nil, errors.E(err, "interval.ProjectIntoRange: window")
	}
	if err := validateAll("interval.ProjectIntoRange", reads); err != nil {
		return nil, err
	}
	winLen := window.Len()
	// deltas[i] is coverage[i] - coverage[i-1]; the extra trailing slot absorbs
	// decrements for reads ending at window.End.
	deltas := make([]int, winLen+1)
	for _, r := range reads {
		start := Clamp(r.Start, window.Start, window.End)
		end := Clamp(r.End, window.Start, window.End)
		if start == end {
			continue
		}
		deltas[start-window.Start]++
		deltas[end-window.Start]--
	}
	coverage := deltas[:winLen]
	depth := 0
	for i := range coverage {
		depth += coverage[i]
		coverage[i] = depth
	}
	return coverage, nil
}

// CoverageRuns collapses a per-position depth array over window into maximal
// runs of constant depth.  The runs partition window exactly, in ascending
// order, and adjacent runs always differ in depth.  len(depth) must equal
// window.Len().
func CoverageRuns(window Interval, depth []int) ([]CoverageInterval, error) {
	if err := window.Validate(); err != nil {
		return nil, errors.E(err, "interval.CoverageRuns: window")
	}
	if len(depth) != window.Len() {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.CoverageRuns: depth array has length %d, window %v has length %d", len(depth), window, window.Len()))
	}
	var runs []CoverageInterval
	runStart := 0
	for i := 1; i <= len(depth); i++ {
		if i < len(depth) && depth[i] == depth[runStart] {
			continue
		}
		if depth[runStart] < 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.CoverageRuns: negative depth %d at position %d", depth[runStart], window.Start+PosType(runStart)))
		}
		runs = append(runs, CoverageInterval{
			Interval: Interval{Start: window.Start + PosType(runStart), End: window.Start + PosType(i)},
			Coverage: depth[runStart],
		})
		runStart = i
	}
	return runs, nil
}

// CoverageIntervals returns the piecewise-constant coverage profile of reads
// over window, as computed by ProjectIntoRange followed by CoverageRuns.
func CoverageIntervals(window Interval, reads []Interval) ([]CoverageInterval, error) {
	depth, err := ProjectIntoRange(reads, window)
	if err != nil {
		return nil, err
	}
	return CoverageRuns(window, depth)
}
