package enrich

import (
	"math/rand/v2"
	"sort"

	"github.com/inodb/peakenrich/internal/covariate"
	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
)

// Stratum sizes for the stratified randomizations.
const (
	lengthBinSize   = 100
	locationBinSize = 50
)

// permutation returns perm such that row i of the randomized design takes
// the peak payload of row perm[i].
func permutation(mode Randomization, d *covariate.Design, ann *genome.Annotation, seed uint64) ([]int, error) {
	n := d.Len()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	switch mode {
	case RandomizeNone:
	case RandomizeComplete:
		rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	case RandomizeByLength:
		order := append([]int(nil), perm...)
		sortByLength(d, order)
		shuffleWithinBins(perm, order, lengthBinSize, rng)
	case RandomizeByLocation:
		if ann == nil {
			return nil, errs.Preconditionf("randomization %s needs the gene annotation", mode)
		}
		order := make([]int, 0, n)
		for _, g := range ann.GenomeOrder() {
			if i, ok := d.Index(g.ID); ok {
				order = append(order, i)
			}
		}
		shuffleWithinBins(perm, order, locationBinSize, rng)
	default:
		return nil, errs.Preconditionf("unsupported randomization %s", mode)
	}
	return perm, nil
}

// sortByLength orders row indices by gene length, then gene ID.
func sortByLength(d *covariate.Design, order []int) {
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := d.Rows[order[a]], d.Rows[order[b]]
		if ra.Length != rb.Length {
			return ra.Length < rb.Length
		}
		return ra.GeneID < rb.GeneID
	})
}

// shuffleWithinBins permutes rows among consecutive bins of order.
func shuffleWithinBins(perm, order []int, size int, rng *rand.Rand) {
	for start := 0; start < len(order); start += size {
		bin := order[start:min(start+size, len(order))]
		src := append([]int(nil), bin...)
		rng.Shuffle(len(src), func(i, j int) { src[i], src[j] = src[j], src[i] })
		for k, row := range bin {
			perm[row] = src[k]
		}
	}
}
