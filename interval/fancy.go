package interval

import (
	"github.com/grailbio/base/errors"
)

// IntervalLookup retrieves the read intervals that fall in a reference window.
// Implementations return intervals sorted by (Start, End), restricted to reads
// with mapping quality >= minMapQV.  The intervals may extend past the window.
type IntervalLookup interface {
	LookupIntervals(window ReferenceWindow, minMapQV uint8) ([]Interval, error)
}

// Settings holds the thresholds consulted by FancySettingsIntervals.
type Settings struct {
	// MinCoverage is the number of reads that must span a position for it to be
	// considered covered.
	MinCoverage int
	// MinMapQV is the minimum mapping quality of a read for it to count toward
	// coverage.
	MinMapQV uint8
}

// DefaultSettings are the thresholds used when none are specified.
var DefaultSettings = Settings{
	MinCoverage: 5,
	MinMapQV:    10,
}

// FancyIntervals returns KSpannedIntervals(window, reads, minCoverage, 0).
func FancyIntervals(window Interval, reads []Interval, minCoverage int) ([]Interval, error) {
	return KSpannedIntervals(window, reads, minCoverage, 0)
}

// FancyWindowIntervals finds a maximal set of maximal disjoint intervals
// within window such that each interval is spanned by at least minCoverage
// reads of mapping quality >= minMapQV, as fetched from index.  Like
// KSpannedIntervals, this is a greedy procedure.
//
// It then fills in the remaining gaps, and adds them to the output, so the
// result partitions window.  The result does not say which intervals are
// covered and which are gap-fill; callers that care can compare it against
// KSpannedIntervals on the same reads.
func FancyWindowIntervals(index IntervalLookup, window ReferenceWindow, minCoverage int, minMapQV uint8) ([]Interval, error) {
	reads, err := index.LookupIntervals(window, minMapQV)
	if err != nil {
		return nil, err
	}
	covered, err := KSpannedIntervals(window.Interval, reads, minCoverage, 0)
	if err != nil {
		return nil, err
	}
	holes, err := Holes(window.Interval, covered)
	if err != nil {
		return nil, errors.E(err, "interval.FancyWindowIntervals:", window.String())
	}
	return mergeDisjoint(covered, holes), nil
}

// FancySettingsIntervals is FancyWindowIntervals with thresholds taken from
// settings.
func FancySettingsIntervals(index IntervalLookup, window ReferenceWindow, settings Settings) ([]Interval, error) {
	return FancyWindowIntervals(index, window, settings.MinCoverage, settings.MinMapQV)
}

// mergeDisjoint merges two sorted, mutually disjoint interval sequences.
func mergeDisjoint(a, b []Interval) []Interval {
	result := make([]Interval, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if a[0].LT(b[0]) {
			result = append(result, a[0])
			a = a[1:]
		} else {
			result = append(result, b[0])
			b = b[1:]
		}
	}
	result = append(result, a...)
	return append(result, b...)
}
