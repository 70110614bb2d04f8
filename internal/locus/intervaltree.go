package locus

import (
	"sort"

	"github.com/inodb/peakenrich/internal/genome"
)

// GeneIndex answers containment and nearest-gene queries over the genes of one
// chromosome using sorted slices. Genes are indexed once and never modified.
type GeneIndex struct {
	byStart []*genome.Gene
	maxEnd  []int64 // maxEnd[i] = max(End) for byStart[:i+1]
	byEnd   []*genome.Gene
}

// BuildGeneIndex creates an index from the genes of one chromosome.
func BuildGeneIndex(genes []*genome.Gene) *GeneIndex {
	if len(genes) == 0 {
		return &GeneIndex{}
	}

	byStart := append([]*genome.Gene(nil), genes...)
	sort.Slice(byStart, func(i, j int) bool {
		if byStart[i].Start != byStart[j].Start {
			return byStart[i].Start < byStart[j].Start
		}
		return byStart[i].ID < byStart[j].ID
	})

	// Prefix-max array: maxEnd[i] = max(end) for byStart[:i+1]
	maxEnd := make([]int64, len(byStart))
	maxEnd[0] = byStart[0].End
	for i := 1; i < len(byStart); i++ {
		maxEnd[i] = byStart[i].End
		if maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}

	byEnd := append([]*genome.Gene(nil), genes...)
	sort.Slice(byEnd, func(i, j int) bool {
		if byEnd[i].End != byEnd[j].End {
			return byEnd[i].End < byEnd[j].End
		}
		return byEnd[i].ID < byEnd[j].ID
	})

	return &GeneIndex{byStart: byStart, maxEnd: maxEnd, byEnd: byEnd}
}

// FindContaining returns all genes whose body contains pos.
func (t *GeneIndex) FindContaining(pos int64) []*genome.Gene {
	if len(t.byStart) == 0 {
		return nil
	}

	var result []*genome.Gene

	// Candidates are genes with start <= pos, i.e. indices [0, hi).
	hi := sort.Search(len(t.byStart), func(i int) bool {
		return t.byStart[i].Start > pos
	})

	for i := hi - 1; i >= 0; i-- {
		// Nothing at or before i reaches pos.
		if t.maxEnd[i] <= pos {
			break
		}
		if t.byStart[i].End > pos {
			result = append(result, t.byStart[i])
		}
	}

	return result
}

// Nearest returns the gene whose body is closest to pos, preferring the lower
// gene ID among equally distant genes. It returns nil for an empty index.
func (t *GeneIndex) Nearest(pos int64) *genome.Gene {
	if len(t.byStart) == 0 {
		return nil
	}

	if inside := t.FindContaining(pos); len(inside) > 0 {
		return lowestID(inside)
	}

	var candidates []*genome.Gene
	best := int64(-1)
	consider := func(g *genome.Gene) {
		d := g.Distance(pos)
		switch {
		case best < 0 || d < best:
			best = d
			candidates = append(candidates[:0], g)
		case d == best:
			candidates = append(candidates, g)
		}
	}

	// Nearest on the right: smallest start > pos, plus ties on start.
	r := sort.Search(len(t.byStart), func(i int) bool {
		return t.byStart[i].Start > pos
	})
	for i := r; i < len(t.byStart) && t.byStart[i].Start == t.byStart[r].Start; i++ {
		consider(t.byStart[i])
	}

	// Nearest on the left: largest end <= pos, plus ties on end.
	l := sort.Search(len(t.byEnd), func(i int) bool {
		return t.byEnd[i].End > pos
	}) - 1
	for i := l; i >= 0 && t.byEnd[i].End == t.byEnd[l].End; i-- {
		consider(t.byEnd[i])
	}

	return lowestID(candidates)
}

func lowestID(genes []*genome.Gene) *genome.Gene {
	var best *genome.Gene
	for _, g := range genes {
		if best == nil || g.ID < best.ID {
			best = g
		}
	}
	return best
}

// tssEntry is one TSS of the TSS index.
type tssEntry struct {
	pos  int64
	gene *genome.Gene
}

// TSSIndex answers nearest-TSS queries with binary search over sorted TSS positions.
type TSSIndex struct {
	entries []tssEntry
}

// BuildTSSIndex creates a TSS index from the genes of one chromosome.
func BuildTSSIndex(genes []*genome.Gene) *TSSIndex {
	entries := make([]tssEntry, len(genes))
	for i, g := range genes {
		entries[i] = tssEntry{pos: g.TSS(), gene: g}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].pos != entries[j].pos {
			return entries[i].pos < entries[j].pos
		}
		return entries[i].gene.ID < entries[j].gene.ID
	})
	return &TSSIndex{entries: entries}
}

// Nearest returns the gene with the TSS closest to pos. Ties on distance go to
// the lower gene ID.
func (t *TSSIndex) Nearest(pos int64) *genome.Gene {
	n := len(t.entries)
	if n == 0 {
		return nil
	}

	i := sort.Search(n, func(i int) bool { return t.entries[i].pos >= pos })

	var best *genome.Gene
	bestDist := int64(-1)
	consider := func(e tssEntry) {
		d := e.pos - pos
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist || (d == bestDist && e.gene.ID < best.ID) {
			best, bestDist = e.gene, d
		}
	}

	// Entries sharing a position are ordered by ID, so the run start holds the lowest ID.
	if i < n {
		consider(t.entries[i])
	}
	if i > 0 {
		j := i - 1
		for j > 0 && t.entries[j-1].pos == t.entries[i-1].pos {
			j--
		}
		consider(t.entries[j])
	}
	return best
}

// neighbors returns the closest distinct TSS positions strictly below and
// above pos; ok flags report whether each exists.
func (t *TSSIndex) neighbors(pos int64) (prev int64, okPrev bool, next int64, okNext bool) {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].pos >= pos })
	if i > 0 {
		prev, okPrev = t.entries[i-1].pos, true
	}
	j := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].pos > pos })
	if j < len(t.entries) {
		next, okNext = t.entries[j].pos, true
	}
	return
}
