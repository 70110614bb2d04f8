package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/hybrid"
	"github.com/inodb/peakenrich/internal/locus"
)

// WriteAssignmentSummary writes peak assignment counts to w.
func WriteAssignmentSummary(w io.Writer, r locus.Report) {
	fmt.Fprintf(w, "\nPeak Assignment (%d peaks):\n", r.TotalPeaks)
	fmt.Fprintf(w, "  %-24s%d\n", "assigned", r.AssignedPeaks)
	fmt.Fprintf(w, "  %-24s%d\n", "unassigned", r.UnassignedPeaks)
	fmt.Fprintf(w, "  %-24s%d\n", "dropped", r.DroppedPeaks)
	if len(r.DroppedChroms) > 0 {
		fmt.Fprintf(w, "  %-24s%v\n", "dropped chromosomes", r.DroppedChroms)
	}
	fmt.Fprintf(w, "  %-24s%.0f (p10 %.0f, p90 %.0f)\n", "distance to TSS",
		r.TSSDistance.Median, r.TSSDistance.P10, r.TSSDistance.P90)
}

// WriteRunSummary writes per-status counts and fit failures of a run to w.
func WriteRunSummary(w io.Writer, run *enrich.Run, alpha float64) {
	fmt.Fprintf(w, "\nEnrichment Summary (%s, %d genesets tested):\n", run.Method, run.Tested())
	fmt.Fprintf(w, "  %-24s%d\n", "results", len(run.Results))
	fmt.Fprintf(w, "  %-24s%d\n", "skipped (size)", run.Skipped)
	fmt.Fprintf(w, "  %-24s%d\n", "failed fits", len(run.Failures))

	counts := make(map[string]int)
	for _, r := range run.Results {
		if r.FDR <= alpha {
			counts[r.Status]++
		}
	}
	writeCounts(w, fmt.Sprintf("FDR <= %g", alpha), counts)

	for _, f := range run.Failures {
		fmt.Fprintf(w, "    %-22s%s\n", f.GenesetID, f.Reason)
	}
}

// WriteHybridSummary writes the matched count and per-status counts of a
// hybrid table to w.
func WriteHybridSummary(w io.Writer, res *hybrid.Result, alpha float64) {
	fmt.Fprintf(w, "\nHybrid Summary (%d common genesets):\n", res.Matched)
	counts := make(map[string]int)
	for _, r := range res.Rows {
		if r.FDR > alpha {
			continue
		}
		status := r.Status
		if !res.HasStatus {
			status = "significant"
		}
		counts[status]++
	}
	writeCounts(w, fmt.Sprintf("FDR.Hybrid <= %g", alpha), counts)
}

func writeCounts(w io.Writer, title string, counts map[string]int) {
	fmt.Fprintf(w, "\n  %s:\n", title)

	type statusCount struct {
		status string
		count  int
	}
	var sorted []statusCount
	for s, c := range counts {
		sorted = append(sorted, statusCount{s, c})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].status < sorted[j].status
	})
	for _, sc := range sorted {
		fmt.Fprintf(w, "    %-20s%d\n", sc.status, sc.count)
	}
}
