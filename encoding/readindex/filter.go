package readindex

import (
	"github.com/grailbio/consensus/interval"
	"github.com/grailbio/hts/sam"
)

// Iterator iterates over sam.Records in a particular genomic range, in
// coordinate order. Thread compatible.
type Iterator interface {
	// Scan returns whether there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record. If an error occurs,
	// Scan() returns false and the error can be retrieved by calling Err().
	Scan() bool

	// Record returns the current record in the iterator. This must be called
	// only after a call to Scan() returns true.
	Record() *sam.Record

	// Err returns the error encountered during iteration, or nil if no error
	// occurred.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// Index produces iterators over the records whose alignments may overlap a
// window.  Iterators may yield records outside the window; callers filter.
type Index interface {
	NewIterator(window interval.ReferenceWindow) Iterator
}

// Filter decides whether a record contributes a read interval.
type Filter func(r *sam.Record) bool

// WindowFilter accepts mapped records on window's reference whose alignment
// overlaps window and whose mapping quality is at least minMapQV.
func WindowFilter(window interval.ReferenceWindow, minMapQV uint8) Filter {
	return func(r *sam.Record) bool {
		if r.Ref == nil || r.Flags&sam.Unmapped != 0 {
			return false
		}
		return r.Ref.Name() == window.RefName &&
			r.MapQ >= minMapQV &&
			r.Start() < int(window.End) &&
			r.End() > int(window.Start)
	}
}

// And returns a Filter accepting records accepted by every one of filters.
func And(filters ...Filter) Filter {
	return func(r *sam.Record) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	}
}

// FilteredIntervals drains and closes it, and returns [Start(), End()) for
// every record accepted by filter, sorted by (start, end).
func FilteredIntervals(it Iterator, filter Filter) (intervals []interval.Interval, err error) {
	defer func() {
		if e := it.Close(); e != nil && err == nil {
			err = e
		}
	}()
	for it.Scan() {
		r := it.Record()
		if !filter(r) {
			continue
		}
		intervals = append(intervals, interval.Interval{
			Start: interval.PosType(r.Start()),
			End:   interval.PosType(r.End()),
		})
	}
	if err = it.Err(); err != nil {
		return nil, err
	}
	interval.SortIntervals(intervals)
	return intervals, nil
}

// FilteredWindowIntervals returns the sorted intervals of the reads in index
// that overlap window with mapping quality at least minMapQV.
func FilteredWindowIntervals(index Index, window interval.ReferenceWindow, minMapQV uint8) ([]interval.Interval, error) {
	return FilteredIntervals(index.NewIterator(window), WindowFilter(window, minMapQV))
}

type sliceIterator struct {
	records []*sam.Record
	next    *sam.Record
	err     error
}

// NewSliceIterator returns an Iterator over records.  If err is non-nil, the
// iterator yields nothing and reports err.
func NewSliceIterator(records []*sam.Record, err error) Iterator {
	return &sliceIterator{records: records, err: err}
}

func (i *sliceIterator) Scan() bool {
	if i.err != nil || len(i.records) == 0 {
		return false
	}
	i.next = i.records[0]
	i.records = i.records[1:]
	return true
}

func (i *sliceIterator) Record() *sam.Record { return i.next }

func (i *sliceIterator) Err() error { return i.err }

func (i *sliceIterator) Close() error { return i.err }
