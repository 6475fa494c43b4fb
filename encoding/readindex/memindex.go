package readindex

import (
	"fmt"
	"sort"

	store "github.com/biogo/store/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/consensus/interval"
	"github.com/grailbio/hts/sam"
)

// memRecord adapts a sam.Record to the interval tree.
type memRecord struct {
	r  *sam.Record
	id uintptr
}

func (m memRecord) Overlap(b store.IntRange) bool {
	// Half-open interval indexing.
	return m.r.End() > b.Start && m.r.Start() < b.End
}
func (m memRecord) ID() uintptr           { return m.id }
func (m memRecord) Range() store.IntRange { return store.IntRange{Start: m.r.Start(), End: m.r.End()} }

// memQuery is a window-shaped tree query.
type memQuery struct {
	start, end int
}

func (q memQuery) Overlap(b store.IntRange) bool { return b.End > q.start && b.Start < q.end }
func (q memQuery) ID() uintptr                   { return 0 }
func (q memQuery) Range() store.IntRange         { return store.IntRange{Start: q.start, End: q.end} }

// MemIndex is an Index over records held in memory, with one interval tree per
// reference.  It is read-only after construction, and safe for concurrent
// use.
type MemIndex struct {
	header *sam.Header
	trees  map[string]*store.IntTree
}

// NewMemIndex builds a MemIndex over records, which need not be sorted.
// Unmapped records and records without aligned bases are dropped, since they
// can never contribute a read interval.  Every record's reference must appear
// in header.
func NewMemIndex(header *sam.Header, records []*sam.Record) (*MemIndex, error) {
	m := &MemIndex{
		header: header,
		trees:  make(map[string]*store.IntTree),
	}
	for _, ref := range header.Refs() {
		m.trees[ref.Name()] = &store.IntTree{}
	}
	for i, r := range records {
		if r.Ref == nil || r.Flags&sam.Unmapped != 0 || r.End() <= r.Start() {
			continue
		}
		tree, ok := m.trees[r.Ref.Name()]
		if !ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("readindex.NewMemIndex: record %s is on reference %s, which is not in the header", r.Name, r.Ref.Name()))
		}
		if err := tree.Insert(memRecord{r: r, id: uintptr(i)}, false); err != nil {
			return nil, errors.E(err, "readindex.NewMemIndex: record", r.Name)
		}
	}
	return m, nil
}

// Header returns the header the index was built with.
func (m *MemIndex) Header() *sam.Header {
	return m.header
}

// NewIterator implements Index.  It yields the records overlapping window in
// (position, end) order.
func (m *MemIndex) NewIterator(window interval.ReferenceWindow) Iterator {
	tree, ok := m.trees[window.RefName]
	if !ok {
		return NewSliceIterator(nil, errors.E(errors.NotExist, fmt.Sprintf("readindex: reference %q not in index", window.RefName)))
	}
	if window.Empty() {
		return NewSliceIterator(nil, nil)
	}
	matches := tree.Get(memQuery{start: int(window.Start), end: int(window.End)})
	records := make([]*sam.Record, len(matches))
	for i, e := range matches {
		records[i] = e.(memRecord).r
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Pos != records[j].Pos {
			return records[i].Pos < records[j].Pos
		}
		return records[i].End() < records[j].End()
	})
	return NewSliceIterator(records, nil)
}

// LookupIntervals implements interval.IntervalLookup.
func (m *MemIndex) LookupIntervals(window interval.ReferenceWindow, minMapQV uint8) ([]interval.Interval, error) {
	return FilteredWindowIntervals(m, window, minMapQV)
}
