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
package windows

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

const (
	formatTSV    = "tsv"
	formatTSVBgz = "tsv-bgz"
)

// Span kinds, as written to the KIND column.
const (
	KindCovered = "covered"
	KindGap     = "gap"
)

// WriteTSV writes one line per span:
//   #CHROM  START  END  KIND
// Coordinates are 0-based half-open, as in BED.
func WriteTSV(w io.Writer, results []Result) error {
	tsvw := tsv.NewWriter(w)
	tsvw.WriteString("#CHROM\tSTART\tEND\tKIND")
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	for _, r := range results {
		for _, s := range r.Spans {
			tsvw.WriteString(r.Window.RefName)
			tsvw.WriteUint32(uint32(s.Start))
			tsvw.WriteUint32(uint32(s.End))
			if s.Covered {
				tsvw.WriteString(KindCovered)
			} else {
				tsvw.WriteString(KindGap)
			}
			if err := tsvw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tsvw.Flush()
}

func writeResults(ctx context.Context, outPath, format string, results []Result) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, outPath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if format == formatTSV {
		err = WriteTSV(dst.Writer(ctx), results)
	} else {
		bgzfWriter := bgzf.NewWriter(dst.Writer(ctx), 1)
		err = WriteTSV(bgzfWriter, results)
		if e := bgzfWriter.Close(); e != nil && err == nil {
			err = e
		}
	}
	if err == nil {
		log.Printf("windows: results written to %s", outPath)
	}
	return
}
