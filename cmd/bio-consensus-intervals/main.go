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
package main

/*
bio-consensus-intervals tiles a reference into windows, and reports which
parts of each window are spanned by enough reads in a BAM to support consensus
calling, and which are gaps.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/consensus/windows"
)

var (
	bedPath      = flag.String("bed", windows.DefaultOpts.BedPath, "Input BED path; can't be combined with -region.  If neither is given, every reference in the BAM header is processed")
	region       = flag.String("region", windows.DefaultOpts.Region, "Restrict computation to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	bamIndexPath = flag.String("index", windows.DefaultOpts.BamIndexPath, "Input BAM index path. Defaults to bampath + .bai")
	windowSize   = flag.Int("window-size", windows.DefaultOpts.WindowSize, "Regions are split into windows of at most this many bases")
	minCoverage  = flag.Int("min-coverage", windows.DefaultOpts.MinCoverage, "Number of reads that must span a position for it to be reported as covered")
	minMapQV     = flag.Int("mapq", windows.DefaultOpts.MinMapQV, "Reads with MAPQ below this level are skipped")
	format       = flag.String("format", windows.DefaultOpts.Format, "Output format; 'tsv' and 'tsv-bgz' supported")
	outPath      = flag.String("out", "bio-consensus-intervals.tsv", "Output path")
	parallelism  = flag.Int("parallelism", windows.DefaultOpts.Parallelism, "Maximum number of simultaneous window jobs; 0 = runtime.NumCPU()")
)

// registerS3 lets BAM, index, BED and output paths be s3:// URLs.  AWS
// credentials and region come from the usual environment and shared config.
func registerS3() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{
			SharedConfigState: session.SharedConfigEnable,
		}), s3file.Options{})
	})
}

func usage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()
	registerS3()

	if flag.NArg() != 1 {
		log.Fatalf("Exactly one positional argument (bampath) expected; please check flag syntax: '%s'", strings.Join(flag.Args(), " "))
	}
	ctx := vcontext.Background()
	opts := windows.Opts{
		Region:       *region,
		BedPath:      *bedPath,
		BamIndexPath: *bamIndexPath,
		WindowSize:   *windowSize,
		MinCoverage:  *minCoverage,
		MinMapQV:     *minMapQV,
		Parallelism:  *parallelism,
		Format:       *format,
	}
	if err := windows.Run(ctx, flag.Arg(0), *outPath, &opts); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
