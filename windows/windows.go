// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package windows tiles a reference into fixed-size windows and reports, for
// each window, which sub-intervals are covered by enough reads for consensus
// calling and which are gaps.
package windows

import (
	"context"
	"fmt"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/consensus/encoding/readindex"
	"github.com/grailbio/consensus/interval"
	"github.com/grailbio/hts/sam"
)

// Opts holds the commandline options of bio-consensus-intervals.
type Opts struct {
	// Region and BedPath select the regions to process; at most one may be set.
	// If neither is, every reference in the BAM header is processed.
	Region  string
	BedPath string
	// BamIndexPath defaults to the BAM path + ".bai".
	BamIndexPath string
	WindowSize   int
	MinCoverage  int
	MinMapQV     int
	// Parallelism is the maximum number of concurrent window jobs;
	// runtime.NumCPU() if <= 0.
	Parallelism int
	// Format is "tsv" or "tsv-bgz".
	Format string
}

// DefaultOpts is the default configuration; thresholds match
// interval.DefaultSettings.
var DefaultOpts = Opts{
	WindowSize:  500,
	MinCoverage: interval.DefaultSettings.MinCoverage,
	MinMapQV:    int(interval.DefaultSettings.MinMapQV),
	Parallelism: 0,
	Format:      "tsv",
}

// Span is one interval of a window's partition.  Covered is true for
// intervals spanned by at least MinCoverage reads, and false for the gaps
// between them.
type Span struct {
	interval.Interval
	Covered bool
}

// Result is the partition of one window.
type Result struct {
	Window interval.ReferenceWindow
	Spans  []Span
}

// settings validates the threshold fields of opts.
func (opts *Opts) settings() (interval.Settings, error) {
	if opts.MinCoverage < 0 {
		return interval.Settings{}, errors.E(errors.Invalid, fmt.Sprintf("windows: min-coverage must be nonnegative, got %d", opts.MinCoverage))
	}
	if opts.MinMapQV < 0 || opts.MinMapQV > 255 {
		return interval.Settings{}, errors.E(errors.Invalid, fmt.Sprintf("windows: min-mapqv must be in [0, 255], got %d", opts.MinMapQV))
	}
	return interval.Settings{MinCoverage: opts.MinCoverage, MinMapQV: uint8(opts.MinMapQV)}, nil
}

// Enumerate returns the windows to process: the regions selected by
// opts.Region or opts.BedPath (or every reference in header if neither is
// set), clipped to their reference lengths and split into pieces of at most
// opts.WindowSize bases.
func Enumerate(header *sam.Header, opts *Opts) ([]interval.ReferenceWindow, error) {
	if opts.WindowSize <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("windows.Enumerate: window size must be positive, got %d", opts.WindowSize))
	}
	refs := make(map[string]*sam.Reference, len(header.Refs()))
	for _, ref := range header.Refs() {
		refs[ref.Name()] = ref
	}

	var regions []interval.ReferenceWindow
	switch {
	case opts.Region != "" && opts.BedPath != "":
		return nil, errors.E(errors.Invalid, "windows.Enumerate: -region and -bed flags can't be used together")
	case opts.Region != "":
		region, err := interval.ParseRegionString(opts.Region)
		if err != nil {
			return nil, err
		}
		regions = []interval.ReferenceWindow{region}
	case opts.BedPath != "":
		var err error
		if regions, err = interval.LoadWindowsFromPath(opts.BedPath, interval.LoadWindowsOpts{}); err != nil {
			return nil, err
		}
	default:
		for _, ref := range header.Refs() {
			regions = append(regions, interval.ReferenceWindow{
				RefName:  ref.Name(),
				Interval: interval.Interval{Start: 0, End: interval.PosType(ref.Len())},
			})
		}
	}

	var windows []interval.ReferenceWindow
	for _, region := range regions {
		ref, ok := refs[region.RefName]
		if !ok {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("windows.Enumerate: contig %s not in BAM header", region.RefName))
		}
		clipped := region.Intersect(interval.Interval{Start: 0, End: interval.PosType(ref.Len())})
		if clipped.Empty() {
			log.Printf("windows.Enumerate: skipping %v, which lies outside %s (length %d)", region, ref.Name(), ref.Len())
			continue
		}
		pieces, err := interval.SplitInterval(clipped, interval.PosType(opts.WindowSize))
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			windows = append(windows, interval.ReferenceWindow{RefName: region.RefName, Interval: piece})
		}
	}
	return windows, nil
}

// recordingLookup remembers the reads it returned, so that the caller can tell
// covered intervals from gap-fill in FancySettingsIntervals output.
type recordingLookup struct {
	lookup interval.IntervalLookup
	reads  []interval.Interval
}

func (r *recordingLookup) LookupIntervals(window interval.ReferenceWindow, minMapQV uint8) ([]interval.Interval, error) {
	reads, err := r.lookup.LookupIntervals(window, minMapQV)
	r.reads = reads
	return reads, err
}

// computeWindow partitions window into covered spans and gaps.
func computeWindow(lookup interval.IntervalLookup, window interval.ReferenceWindow, settings interval.Settings) (Result, error) {
	rec := recordingLookup{lookup: lookup}
	merged, err := interval.FancySettingsIntervals(&rec, window, settings)
	if err != nil {
		return Result{}, err
	}
	covered, err := interval.FancyIntervals(window.Interval, rec.reads, settings.MinCoverage)
	if err != nil {
		return Result{}, err
	}
	result := Result{Window: window, Spans: make([]Span, len(merged))}
	for i, iv := range merged {
		for len(covered) > 0 && covered[0].LT(iv) {
			covered = covered[1:]
		}
		result.Spans[i] = Span{Interval: iv, Covered: len(covered) > 0 && covered[0] == iv}
	}
	return result, nil
}

// Compute partitions every window, running up to parallelism jobs at once
// (runtime.NumCPU() if parallelism <= 0).  Results are in window order.
func Compute(lookup interval.IntervalLookup, windows []interval.ReferenceWindow, settings interval.Settings, parallelism int) ([]Result, error) {
	nWindow := len(windows)
	if nWindow == 0 {
		return nil, nil
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > nWindow {
		parallelism = nWindow
	}
	results := make([]Result, nWindow)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * nWindow) / parallelism
		endIdx := ((jobIdx + 1) * nWindow) / parallelism
		for i := startIdx; i < endIdx; i++ {
			var err error
			if results[i], err = computeWindow(lookup, windows[i], settings); err != nil {
				return errors.E(err, "windows.Compute:", windows[i].String())
			}
			log.Debug.Printf("windows.Compute: %v: %d span(s)", windows[i], len(results[i].Spans))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Run computes covered spans and gaps for the windows selected by opts over
// the BAM file at bamPath, and writes them to outPath.
func Run(ctx context.Context, bamPath, outPath string, opts *Opts) (err error) {
	settings, err := opts.settings()
	if err != nil {
		return err
	}
	if opts.Format != formatTSV && opts.Format != formatTSVBgz {
		return errors.E(errors.Invalid, fmt.Sprintf("windows.Run: unrecognized format %q", opts.Format))
	}
	index := readindex.NewBAMIndex(bamPath, opts.BamIndexPath)
	defer func() {
		if e := index.Close(); e != nil && err == nil {
			err = e
		}
	}()
	header, err := index.Header()
	if err != nil {
		return err
	}
	windows, err := Enumerate(header, opts)
	if err != nil {
		return err
	}
	log.Printf("windows.Run: computing %d window(s), min coverage %d, min MAPQ %d", len(windows), settings.MinCoverage, settings.MinMapQV)
	results, err := Compute(index, windows, settings, opts.Parallelism)
	if err != nil {
		return err
	}
	var nCovered, nGap int
	for _, r := range results {
		for _, s := range r.Spans {
			if s.Covered {
				nCovered += s.Len()
			} else {
				nGap += s.Len()
			}
		}
	}
	log.Printf("windows.Run: %d base(s) covered, %d base(s) in gaps", nCovered, nGap)
	return writeResults(ctx, outPath, opts.Format, results)
}
