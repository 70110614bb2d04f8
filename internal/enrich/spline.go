package enrich

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// knotQuantiles places four knots for a restricted cubic spline with three
// degrees of freedom.
var knotQuantiles = []float64{0.05, 0.35, 0.65, 0.95}

// splineBasis evaluates a restricted (natural) cubic spline basis of x: a
// linear term plus one truncated cubic term per interior knot, constrained to
// be linear beyond the boundary knots. Columns are returned column-major.
// Duplicate knots are merged; with fewer than three distinct knots only the
// linear term remains, and a constant x yields no columns at all.
func splineBasis(x []float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	if sorted[0] == sorted[len(sorted)-1] {
		return nil
	}

	mean, sd := stat.MeanStdDev(x, nil)
	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = (v - mean) / sd
	}

	var knots []float64
	for _, q := range knotQuantiles {
		k := (stat.Quantile(q, stat.Empirical, sorted, nil) - mean) / sd
		if len(knots) == 0 || k > knots[len(knots)-1] {
			knots = append(knots, k)
		}
	}

	cols := [][]float64{z}
	nk := len(knots)
	if nk < 3 {
		return cols
	}

	last, penult := knots[nk-1], knots[nk-2]
	scale := (last - knots[0]) * (last - knots[0])
	cube := func(v float64) float64 {
		if v <= 0 {
			return 0
		}
		return v * v * v
	}
	for j := 0; j < nk-2; j++ {
		kj := knots[j]
		col := make([]float64, len(z))
		for i, v := range z {
			col[i] = (cube(v-kj) -
				cube(v-penult)*(last-kj)/(last-penult) +
				cube(v-last)*(penult-kj)/(last-penult)) / scale
		}
		cols = append(cols, col)
	}
	return cols
}

// isFinite reports whether v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
