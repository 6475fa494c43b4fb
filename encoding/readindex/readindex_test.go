package readindex_test

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/consensus/encoding/readindex"
	"github.com/grailbio/consensus/interval"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

type iv = interval.Interval

var (
	chr1, _   = sam.NewReference("chr1", "", "", 100000, nil, nil)
	chr2, _   = sam.NewReference("chr2", "", "", 50000, nil, nil)
	header, _ = sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
)

func newRecord(name string, ref *sam.Reference, pos, length int, mapq byte) *sam.Record {
	return &sam.Record{
		Name:  name,
		Ref:   ref,
		Pos:   pos,
		MapQ:  mapq,
		Cigar: []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, length)},
		Seq:   sam.NewSeq([]byte(strings.Repeat("A", length))),
		Qual:  []byte(strings.Repeat("I", length)),
	}
}

// testRecords returns coordinate-sorted records.
func testRecords() []*sam.Record {
	return []*sam.Record{
		newRecord("r1", chr1, 100, 50, 60),
		newRecord("r2", chr1, 120, 50, 60),
		newRecord("r3", chr1, 130, 20, 5),
		newRecord("r4", chr1, 140, 100, 60),
		newRecord("r5", chr1, 300, 10, 60),
		newRecord("r6", chr1, 40000, 100, 30),
		newRecord("r7", chr2, 10, 100, 60),
	}
}

// writeBAM writes records and a .bai index for them under dir, and returns the
// BAM path.
func writeBAM(t *testing.T, dir string, records []*sam.Record) string {
	ctx := vcontext.Background()
	bamPath := filepath.Join(dir, "test.bam")
	out, err := file.Create(ctx, bamPath)
	require.NoError(t, err)
	w, err := bam.NewWriter(out.Writer(ctx), header, 1)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close(ctx))

	in, err := file.Open(ctx, bamPath)
	require.NoError(t, err)
	br, err := bam.NewReader(in.Reader(ctx), 1)
	require.NoError(t, err)
	var idx bam.Index
	for {
		r, err := br.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, idx.Add(r, br.LastChunk()))
	}
	require.NoError(t, br.Close())
	require.NoError(t, in.Close(ctx))

	baiOut, err := file.Create(ctx, bamPath+".bai")
	require.NoError(t, err)
	require.NoError(t, bam.WriteIndex(baiOut.Writer(ctx), &idx))
	require.NoError(t, baiOut.Close(ctx))
	return bamPath
}

var lookupTests = []struct {
	window   interval.ReferenceWindow
	minMapQV uint8
	want     []iv
}{
	{
		interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 0, End: 1000}},
		0,
		[]iv{{100, 150}, {120, 170}, {130, 150}, {140, 240}, {300, 310}},
	},
	{
		interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 0, End: 1000}},
		10,
		[]iv{{100, 150}, {120, 170}, {140, 240}, {300, 310}},
	},
	// Reads overlapping the window boundary are reported unclipped.
	{
		interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 160, End: 305}},
		10,
		[]iv{{120, 170}, {140, 240}, {300, 310}},
	},
	// Half-open: a read ending at window.Start doesn't overlap.
	{
		interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 240, End: 300}},
		0,
		nil,
	},
	{
		interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 39000, End: 41000}},
		31,
		nil,
	},
	{
		interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 39000, End: 41000}},
		30,
		[]iv{{40000, 40100}},
	},
	{
		interval.ReferenceWindow{RefName: "chr2", Interval: iv{Start: 0, End: 50000}},
		0,
		[]iv{{10, 110}},
	},
	{
		interval.ReferenceWindow{RefName: "chr2", Interval: iv{Start: 5, End: 5}},
		0,
		nil,
	},
}

func TestMemIndex(t *testing.T) {
	records := testRecords()
	unmapped := newRecord("u1", chr1, 100, 50, 60)
	unmapped.Flags = sam.Unmapped
	// Out of order on purpose.
	idx, err := readindex.NewMemIndex(header, append([]*sam.Record{unmapped}, records[3], records[0], records[1], records[2], records[4], records[5], records[6]))
	require.NoError(t, err)
	for _, tt := range lookupTests {
		got, err := idx.LookupIntervals(tt.window, tt.minMapQV)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "window %v", tt.window)
	}

	_, err = idx.LookupIntervals(interval.ReferenceWindow{RefName: "chrX", Interval: iv{Start: 0, End: 10}}, 0)
	expect.True(t, errors.Is(errors.NotExist, err))

	chr3, _ := sam.NewReference("chr3", "", "", 100, nil, nil)
	_, err = readindex.NewMemIndex(header, []*sam.Record{newRecord("x", chr3, 0, 10, 60)})
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestBAMIndex(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	bamPath := writeBAM(t, tmpdir, testRecords())

	idx := readindex.NewBAMIndex(bamPath, "")
	h, err := idx.Header()
	require.NoError(t, err)
	require.Equal(t, 2, len(h.Refs()))

	// Repeat to exercise the reader-reuse code path.
	for i := 0; i < 2; i++ {
		for _, tt := range lookupTests {
			got, err := idx.LookupIntervals(tt.window, tt.minMapQV)
			require.NoError(t, err)
			require.Equal(t, tt.want, got, "window %v", tt.window)
		}
	}

	_, err = idx.LookupIntervals(interval.ReferenceWindow{RefName: "chrX", Interval: iv{Start: 0, End: 10}}, 0)
	expect.True(t, errors.Is(errors.NotExist, err))
	require.NoError(t, idx.Close())
}

func TestBAMIndexConcurrent(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	bamPath := writeBAM(t, tmpdir, testRecords())
	idx := readindex.NewBAMIndex(bamPath, bamPath+".bai")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tt := lookupTests[i%len(lookupTests)]
			got, err := idx.LookupIntervals(tt.window, tt.minMapQV)
			if err == nil && len(got) != len(tt.want) {
				err = errors.E("unexpected result for", tt.window.String())
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.NoError(t, idx.Close())
}

func TestBAMIndexMissingFile(t *testing.T) {
	idx := readindex.NewBAMIndex("/nonexistent/test.bam", "")
	_, err := idx.Header()
	require.Regexp(t, "no such file", err.Error())
	_, err = idx.LookupIntervals(interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 0, End: 10}}, 0)
	require.Error(t, err)
	require.Error(t, idx.Close())
}

func TestFilteredIntervals(t *testing.T) {
	records := testRecords()
	noR2 := func(r *sam.Record) bool { return r.Name != "r2" }
	window := interval.ReferenceWindow{RefName: "chr1", Interval: iv{Start: 0, End: 200}}
	got, err := readindex.FilteredIntervals(
		readindex.NewSliceIterator(records, nil),
		readindex.And(readindex.WindowFilter(window, 0), noR2))
	assert.NoError(t, err)
	expect.EQ(t, got, []iv{{100, 150}, {130, 150}, {140, 240}})

	_, err = readindex.FilteredIntervals(
		readindex.NewSliceIterator(records, errors.E(errors.Invalid, "flaky")),
		readindex.WindowFilter(window, 0))
	expect.True(t, errors.Is(errors.Invalid, err))
}
