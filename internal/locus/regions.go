package locus

import (
	"sort"

	"github.com/biogo/store/interval"

	"github.com/inodb/peakenrich/internal/genome"
)

// maxUpstreamReach bounds outside-upstream regions of genes with no
// neighbouring TSS in the upstream direction.
const maxUpstreamReach = 1_000_000

// regionInterval adapts a locus region to the biogo integer interval tree.
// Ranges are half-open.
type regionInterval struct {
	start, end int
	uid        uintptr
	gene       *genome.Gene
}

func (r regionInterval) Overlap(b interval.IntRange) bool {
	return r.end > b.Start && r.start < b.End
}

func (r regionInterval) ID() uintptr { return r.uid }

func (r regionInterval) Range() interval.IntRange {
	return interval.IntRange{Start: r.start, End: r.end}
}

// query is a half-open search range.
type query struct {
	start, end int
}

func (q query) Overlap(b interval.IntRange) bool {
	return b.End > q.start && b.Start < q.end
}

// RegionIndex holds the window regions of one chromosome.
type RegionIndex struct {
	tree  interval.IntTree
	count int
}

// hit is a region overlapping a query.
type hit struct {
	gene    *genome.Gene
	overlap int64
}

// Overlapping returns one hit per gene with a region overlapping [start, end).
// When a gene has several overlapping regions the overlaps are summed.
// Hits are ordered by gene ID.
func (ri *RegionIndex) Overlapping(start, end int64) []hit {
	if ri == nil || ri.count == 0 {
		return nil
	}
	found := ri.tree.Get(query{start: int(start), end: int(end)})
	if len(found) == 0 {
		return nil
	}
	byGene := make(map[string]*hit, len(found))
	for _, f := range found {
		r := f.(regionInterval)
		lo, hi := int64(r.start), int64(r.end)
		if start > lo {
			lo = start
		}
		if end < hi {
			hi = end
		}
		h, ok := byGene[r.gene.ID]
		if !ok {
			h = &hit{gene: r.gene}
			byGene[r.gene.ID] = h
		}
		h.overlap += hi - lo
	}
	hits := make([]hit, 0, len(byGene))
	for _, h := range byGene {
		hits = append(hits, *h)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].gene.ID < hits[j].gene.ID })
	return hits
}

func (ri *RegionIndex) insert(start, end int64, g *genome.Gene) error {
	if end <= start {
		return nil
	}
	ri.count++
	return ri.tree.Insert(regionInterval{
		start: int(start),
		end:   int(end),
		uid:   uintptr(ri.count),
		gene:  g,
	}, true)
}

// buildWindowRegions creates the region index of one chromosome for a
// window-style built-in definition.
func buildWindowRegions(k Kind, genes []*genome.Gene, tss *TSSIndex) (*RegionIndex, error) {
	ri := &RegionIndex{}
	for _, g := range genes {
		var err error
		switch k {
		case Exon:
			for _, e := range g.Exons {
				if err = ri.insert(e.Start, e.End, g); err != nil {
					break
				}
			}
		case Intron:
			for _, in := range g.Introns() {
				if err = ri.insert(in.Start, in.End, g); err != nil {
					break
				}
			}
		case Window1kb, Window5kb, Window10kb:
			w := k.window()
			err = ri.insert(max(0, g.TSS()-w), g.TSS()+w+1, g)
		case Outside1kbUpstream, Outside5kbUpstream, Outside10kbUpstream:
			start, end := outsideUpstream(g, k.window(), tss)
			err = ri.insert(start, end, g)
		}
		if err != nil {
			return nil, err
		}
	}
	ri.tree.AdjustRanges()
	return ri, nil
}

// outsideUpstream returns the region upstream of the gene TSS beyond the
// window, ending at the midpoint to the next TSS upstream.
func outsideUpstream(g *genome.Gene, w int64, tss *TSSIndex) (int64, int64) {
	pos := g.TSS()
	prev, okPrev, next, okNext := tss.neighbors(pos)
	if g.IsForwardStrand() {
		lo := pos - maxUpstreamReach
		if okPrev {
			lo = prev + (pos-prev)/2
		}
		return max(0, lo), max(0, pos-w)
	}
	hi := pos + maxUpstreamReach
	if okNext {
		hi = pos + (next-pos)/2 + 1
	}
	return pos + w + 1, hi
}

// buildCustomRegions indexes custom regions per chromosome. Genes referenced
// by regions but missing from the annotation get a placeholder gene record so
// that the assignment still reports them; the aggregator drops them later.
func buildCustomRegions(regions []Region, ann *genome.Annotation) (map[string]*RegionIndex, error) {
	placeholders := make(map[string]*genome.Gene)
	out := make(map[string]*RegionIndex)
	for _, r := range regions {
		g := ann.Gene(r.GeneID)
		if g == nil {
			g = placeholders[r.GeneID]
			if g == nil {
				g = &genome.Gene{ID: r.GeneID, Chrom: r.Chrom, Start: r.Start, End: r.End, Strand: 1}
				placeholders[r.GeneID] = g
			}
		}
		ri, ok := out[r.Chrom]
		if !ok {
			ri = &RegionIndex{}
			out[r.Chrom] = ri
		}
		if err := ri.insert(r.Start, r.End, g); err != nil {
			return nil, err
		}
	}
	for _, ri := range out {
		ri.tree.AdjustRanges()
	}
	return out, nil
}
