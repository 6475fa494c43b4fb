package readindex

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/consensus/interval"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// BAMIndex implements Index for coordinate-sorted BAM files with a .bai
// index.  Files are opened with grailbio/base/file, so both paths may be S3
// URLs once the "s3" scheme has been registered with
// file.RegisterImplementation, as bio-consensus-intervals does.  Thread safe.
type BAMIndex struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	// Index is the pathname of *.bam.bai file. If "", Path + ".bai"
	Index string
	err   errorreporter.T

	mu          sync.Mutex
	initialized bool
	initErr     error
	header      *sam.Header
	refs        map[string]*sam.Reference
	bai         *bam.Index
	nActive     int
	freeReaders []*bamReader
}

// bamReader is an open BAM file.  Readers are pooled and reused across
// iterators, since opening one means re-reading the BAM header.
type bamReader struct {
	in     file.File
	reader *bam.Reader
}

type bamIterator struct {
	index  *BAMIndex
	reader *bamReader
	iter   *bam.Iterator
	err    error
	closed bool
}

// NewBAMIndex returns a BAMIndex for the BAM file at path.  If indexPath is
// empty, it defaults to path + ".bai".  Files are opened lazily.
func NewBAMIndex(path, indexPath string) *BAMIndex {
	return &BAMIndex{Path: path, Index: indexPath}
}

func (b *BAMIndex) indexPath() string {
	index := b.Index
	if index == "" {
		index = b.Path + ".bai"
	}
	return index
}

// init reads the header and the .bai index, once.  REQUIRES: b.mu is held.
func (b *BAMIndex) init() error {
	if b.initialized {
		return b.initErr
	}
	b.initialized = true
	ctx := vcontext.Background()
	r, err := b.openReader()
	if err != nil {
		b.initErr = err
		b.err.Set(err)
		return err
	}
	b.header = r.reader.Header()
	b.refs = make(map[string]*sam.Reference, len(b.header.Refs()))
	for _, ref := range b.header.Refs() {
		b.refs[ref.Name()] = ref
	}
	b.freeReaders = append(b.freeReaders, r)

	indexIn, err := file.Open(ctx, b.indexPath())
	if err != nil {
		b.initErr = errors.E(err, "readindex: opening index", b.indexPath())
		b.err.Set(b.initErr)
		return b.initErr
	}
	defer indexIn.Close(ctx) // nolint: errcheck
	if b.bai, err = bam.ReadIndex(indexIn.Reader(ctx)); err != nil {
		b.initErr = errors.E(err, "readindex: reading index", b.indexPath())
		b.err.Set(b.initErr)
		return b.initErr
	}
	vlog.VI(1).Infof("%s: loaded header with %d reference(s)", b.Path, len(b.refs))
	return nil
}

func (b *BAMIndex) openReader() (*bamReader, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.Path)
	if err != nil {
		return nil, errors.E(err, "readindex: opening", b.Path)
	}
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, "readindex: reading header of", b.Path)
	}
	return &bamReader{in: in, reader: reader}, nil
}

func (r *bamReader) close() error {
	err := r.reader.Close()
	if e := r.in.Close(vcontext.Background()); e != nil && err == nil {
		err = e
	}
	return err
}

// Header returns the header for the BAM file.  The caller must not modify the
// returned header object.
func (b *BAMIndex) Header() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.init(); err != nil {
		return nil, err
	}
	return b.header, nil
}

// allocateReader returns an unused reader from the pool, opening a new one if
// the pool is empty.
func (b *BAMIndex) allocateReader() (*bamReader, error) {
	b.mu.Lock()
	b.nActive++
	if n := len(b.freeReaders); n > 0 {
		r := b.freeReaders[n-1]
		b.freeReaders = b.freeReaders[:n-1]
		b.mu.Unlock()
		return r, nil
	}
	b.mu.Unlock()
	r, err := b.openReader()
	if err != nil {
		b.err.Set(err)
	}
	return r, err
}

func (b *BAMIndex) freeReader(r *bamReader, err error) {
	if r != nil && err != nil {
		// The reader may be positioned badly. Don't reuse it.
		if e := r.close(); e != nil {
			b.err.Set(e)
		}
		r = nil
	}
	b.mu.Lock()
	if r != nil {
		b.freeReaders = append(b.freeReaders, r)
	}
	b.nActive--
	if b.nActive < 0 {
		vlog.Fatalf("Negative active count for %s", b.Path)
	}
	b.mu.Unlock()
}

// NewIterator implements Index.
func (b *BAMIndex) NewIterator(window interval.ReferenceWindow) Iterator {
	b.mu.Lock()
	err := b.init()
	ref := b.refs[window.RefName]
	b.mu.Unlock()
	if err != nil {
		return NewSliceIterator(nil, err)
	}
	if ref == nil {
		return NewSliceIterator(nil, errors.E(errors.NotExist, fmt.Sprintf("readindex: reference %q not in %s", window.RefName, b.Path)))
	}
	if window.Empty() {
		return NewSliceIterator(nil, nil)
	}
	chunks, err := b.bai.Chunks(ref, int(window.Start), int(window.End))
	if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
		// No reads for this interval.
		return NewSliceIterator(nil, nil)
	}
	if err != nil {
		return NewSliceIterator(nil, errors.E(err, "readindex: looking up", window.String()))
	}
	it := &bamIterator{index: b}
	if it.reader, it.err = b.allocateReader(); it.err != nil {
		return it
	}
	it.iter, it.err = bam.NewIterator(it.reader.reader, chunks)
	return it
}

// LookupIntervals implements interval.IntervalLookup.
func (b *BAMIndex) LookupIntervals(window interval.ReferenceWindow, minMapQV uint8) ([]interval.Interval, error) {
	return FilteredWindowIntervals(b, window, minMapQV)
}

// Close must be called exactly once, after every iterator has been closed.  It
// returns any error encountered by the index or its iterators.
func (b *BAMIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %s", b.nActive, b.Path)
	}
	for _, r := range b.freeReaders {
		if err := r.close(); err != nil {
			b.err.Set(err)
		}
	}
	b.freeReaders = nil
	return b.err.Err()
}

func (i *bamIterator) Scan() bool {
	if i.err != nil || i.iter == nil {
		return false
	}
	if i.iter.Next() {
		return true
	}
	i.err = i.iter.Error()
	return false
}

func (i *bamIterator) Record() *sam.Record {
	return i.iter.Record()
}

func (i *bamIterator) Err() error {
	return i.err
}

func (i *bamIterator) Close() error {
	if i.closed {
		return i.err
	}
	i.closed = true
	if i.iter != nil {
		if err := i.iter.Close(); err != nil && i.err == nil {
			i.err = err
		}
		i.iter = nil
	}
	if i.reader != nil {
		i.index.freeReader(i.reader, i.err)
		i.reader = nil
	} else if i.err != nil {
		// allocateReader failed; it still counted this iterator as active.
		i.index.freeReader(nil, i.err)
	}
	i.index.err.Set(i.err)
	return i.err
}
