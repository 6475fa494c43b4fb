package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// parseRegionPos parses one coordinate of a region string.  Thousands
// separators are allowed.
func parseRegionPos(s string) (PosType, error) {
	pos, err := strconv.ParseInt(strings.Replace(s, ",", "", -1), 10, 32)
	if err != nil {
		return 0, errors.E(errors.Invalid, err)
	}
	return PosType(pos), nil
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning the corresponding 0-based half-open window.  The contig ID ends at
// the last ':', so IDs containing colons are fine as long as a position is
// given.  With no position, the window is [0, PosTypeMax - 1); callers are
// expected to clip it to the contig length.  Malformed strings yield
// errors.Invalid.
func ParseRegionString(region string) (ReferenceWindow, error) {
	colon := strings.LastIndexByte(region, ':')
	if colon < 0 {
		w, err := NewReferenceWindow(region, 0, PosTypeMax-1)
		if err != nil {
			return ReferenceWindow{}, errors.E(err, "interval.ParseRegionString:", region)
		}
		return w, nil
	}
	first, last := region[colon+1:], region[colon+1:]
	if dash := strings.IndexByte(first, '-'); dash >= 0 {
		first, last = first[:dash], first[dash+1:]
	}
	first1, err := parseRegionPos(first)
	if err != nil {
		return ReferenceWindow{}, errors.E(err, "interval.ParseRegionString:", region)
	}
	end, err := parseRegionPos(last)
	if err != nil {
		return ReferenceWindow{}, errors.E(err, "interval.ParseRegionString:", region)
	}
	w, err := NewReferenceWindow(region[:colon], first1-1, end)
	if err != nil {
		return ReferenceWindow{}, errors.E(err, "interval.ParseRegionString:", region)
	}
	if w.Empty() {
		return ReferenceWindow{}, errors.E(errors.Invalid, fmt.Sprintf("interval.ParseRegionString: %s: last position precedes first", region))
	}
	return w, nil
}
