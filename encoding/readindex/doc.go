// Package readindex retrieves the alignment intervals of the reads that fall
// in a reference window, from an indexed BAM file (BAMIndex) or from records
// held in memory (MemIndex).  Both implement interval.IntervalLookup.
package readindex
