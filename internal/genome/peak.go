// Package genome provides the peak and gene annotation model.
package genome

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Peak is a genomic interval from a peak caller. Coordinates are 0-based
// half-open, matching BED.
type Peak struct {
	Chrom  string
	Start  int64
	End    int64
	Name   string     // optional peak name from the fourth BED column
	Signal null.Float // optional signal value
}

// Midpoint returns the position assigned to genes by midpoint-based locus definitions.
func (p Peak) Midpoint() int64 {
	return p.Start + (p.End-p.Start)/2
}

// Width returns the peak length in base pairs.
func (p Peak) Width() int64 {
	return p.End - p.Start
}

// String formats the peak as chrom:start-end.
func (p Peak) String() string {
	return fmt.Sprintf("%s:%d-%d", p.Chrom, p.Start, p.End)
}

// NormalizeChrom strips a leading "chr" so UCSC and Ensembl naming compare equal.
func NormalizeChrom(chrom string) string {
	if strings.HasPrefix(chrom, "chr") || strings.HasPrefix(chrom, "Chr") {
		return chrom[3:]
	}
	return chrom
}

// SortPeaks orders peak indices by chromosome, start, end, then original index.
// The returned order does not depend on the input order of equal peaks.
func SortPeaks(peaks []Peak) []int {
	idx := make([]int, len(peaks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := peaks[idx[a]], peaks[idx[b]]
		if pa.Chrom != pb.Chrom {
			return pa.Chrom < pb.Chrom
		}
		if pa.Start != pb.Start {
			return pa.Start < pb.Start
		}
		if pa.End != pb.End {
			return pa.End < pb.End
		}
		return idx[a] < idx[b]
	})
	return idx
}

// Validate checks peak coordinates.
func (p Peak) Validate() error {
	if p.Chrom == "" {
		return fmt.Errorf("peak %s: empty chromosome", p)
	}
	if p.Start < 0 || p.End <= p.Start {
		return fmt.Errorf("peak %s: invalid coordinates", p)
	}
	return nil
}
