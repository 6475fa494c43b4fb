package interval

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// SplitInterval partitions source into consecutive intervals of length span.
// The last interval is shorter when source.Len() isn't a multiple of span.
// An empty source yields nothing.
func SplitInterval(source Interval, span PosType) ([]Interval, error) {
	if span <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.SplitInterval: span must be positive, got %d", span))
	}
	if err := source.Validate(); err != nil {
		return nil, errors.E(err, "interval.SplitInterval: source")
	}
	if source.Empty() {
		return nil, nil
	}
	result := make([]Interval, 0, (source.Len()+int(span)-1)/int(span))
	for start := source.Start; start < source.End; {
		end := source.End
		// Compare against the remaining length instead of computing start+span,
		// which can overflow near PosTypeMax.
		if source.End-start > span {
			end = start + span
		}
		result = append(result, Interval{Start: start, End: end})
		start = end
	}
	return result, nil
}
