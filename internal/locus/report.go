package locus

import (
	"github.com/montanaflynn/stats"
)

// Report summarizes an assignment run.
type Report struct {
	TotalPeaks      int      // peaks on annotated chromosomes
	AssignedPeaks   int      // peaks assigned to at least one gene
	UnassignedPeaks int      // peaks on annotated chromosomes matching no locus
	DroppedPeaks    int      // peaks on chromosomes absent from the annotation
	DroppedChroms   []string // sorted
	Assignments     int      // peak-gene pairs
	TSSDistance     DistanceSummary
}

// DistanceSummary describes peak midpoint to TSS distances of assigned pairs.
type DistanceSummary struct {
	Median float64
	P10    float64
	P90    float64
}

func summarizeDistances(d []float64) DistanceSummary {
	if len(d) == 0 {
		return DistanceSummary{}
	}
	var s DistanceSummary
	s.Median, _ = stats.Median(d)
	s.P10, _ = stats.Percentile(d, 10)
	s.P90, _ = stats.Percentile(d, 90)
	return s
}
