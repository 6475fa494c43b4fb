/*Package interval implements the coverage computations that decide which
  parts of a reference window are supported by enough reads to be called
  confidently.

  All coordinates are zero-based, and every interval is half-open: [Start,
  End).  Positions fit in a PosType, which is int32 since that's what BAM
  files are limited to.

  The main entry points are:
    ProjectIntoRange   per-position depth over a window
    CoverageIntervals  maximal runs of constant depth
    KSpannedIntervals  maximal runs of depth >= minCoverage
    Holes              complement of a disjoint interval set within a window
    SplitInterval      fixed-width partitioning
    FancyIntervals     KSpannedIntervals with the usual defaults, and
                       FancyWindowIntervals, which also fills the remaining
                       gaps using reads fetched from an IntervalLookup.

  None of these functions retain or modify their slice arguments, so they
  are safe to call concurrently on shared input.
*/
package interval
