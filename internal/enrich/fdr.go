package enrich

import "sort"

// AdjustBH returns Benjamini-Hochberg adjusted p-values in input order.
// Adjusted values are capped at 1.
func AdjustBH(p []float64) []float64 {
	n := len(p)
	adj := make([]float64, n)
	if n == 0 {
		return adj
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p[order[a]] > p[order[b]] })

	running := 1.0
	for k, i := range order {
		rank := n - k
		v := p[i] * float64(n) / float64(rank)
		if v < running {
			running = v
		}
		adj[i] = running
	}
	return adj
}
