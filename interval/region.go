package interval

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// LoadWindowsOpts defines behavior of LoadWindows.
type LoadWindowsOpts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// LoadWindows reads the first three columns of each line of a BED file and
// returns one ReferenceWindow per line, in file order.  Blank lines, and
// "track", "browser" and '#' header lines are skipped.  Unlike a BED union,
// overlapping lines are not merged: each line describes a window of its own.
func LoadWindows(reader io.Reader, opts LoadWindowsOpts) ([]ReferenceWindow, error) {
	var startSubtract PosType
	if opts.OneBasedInput {
		startSubtract++
	}
	scanner := bufio.NewScanner(reader)
	var (
		windows  []ReferenceWindow
		totBases int
		lineIdx  int
	)
	for scanner.Scan() {
		lineIdx++
		fields := bytes.Fields(scanner.Bytes())
		if len(fields) == 0 {
			continue
		}
		if first := gunsafe.BytesToString(fields[0]); first[0] == '#' || first == "track" || first == "browser" {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("interval.LoadWindows: line %d has fewer tokens than expected", lineIdx)
		}
		start, err := strconv.ParseInt(gunsafe.BytesToString(fields[1]), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "interval.LoadWindows: line %d", lineIdx)
		}
		end, err := strconv.ParseInt(gunsafe.BytesToString(fields[2]), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "interval.LoadWindows: line %d", lineIdx)
		}
		// fields[0] aliases scanner memory, so the name is copied.
		window, err := NewReferenceWindow(string(fields[0]), PosType(start)-startSubtract, PosType(end))
		if err != nil {
			return nil, errors.Wrapf(err, "interval.LoadWindows: line %d", lineIdx)
		}
		windows = append(windows, window)
		totBases += window.Len()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Printf("BED loaded, %d window(s) spanning %d base(s).", len(windows), totBases)
	return windows, nil
}

// LoadWindowsFromPath is a wrapper for LoadWindows that takes a path instead of
// an io.Reader.  Gzipped files are detected by extension.
func LoadWindowsFromPath(path string, opts LoadWindowsOpts) (windows []ReferenceWindow, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return LoadWindows(reader, opts)
}
