package genome

import (
	"fmt"
	"sort"
)

// Annotation holds genes indexed by chromosome. It is read-only once Freeze
// has been called and safe for concurrent readers.
type Annotation struct {
	genes  map[string][]*Gene
	byID   map[string]*Gene
	frozen bool
}

// NewAnnotation creates an empty annotation.
func NewAnnotation() *Annotation {
	return &Annotation{
		genes: make(map[string][]*Gene),
		byID:  make(map[string]*Gene),
	}
}

// AddGene adds a gene. Duplicate identifiers are rejected.
func (a *Annotation) AddGene(g *Gene) error {
	if a.frozen {
		return fmt.Errorf("add gene %s: annotation is frozen", g.ID)
	}
	if g.ID == "" {
		return fmt.Errorf("add gene: empty identifier")
	}
	if _, dup := a.byID[g.ID]; dup {
		return fmt.Errorf("add gene %s: duplicate identifier", g.ID)
	}
	if g.End <= g.Start {
		return fmt.Errorf("add gene %s: invalid coordinates %d-%d", g.ID, g.Start, g.End)
	}
	g.Chrom = NormalizeChrom(g.Chrom)
	a.genes[g.Chrom] = append(a.genes[g.Chrom], g)
	a.byID[g.ID] = g
	return nil
}

// Freeze sorts genes per chromosome by (start, end, ID) and prevents further changes.
func (a *Annotation) Freeze() *Annotation {
	for _, genes := range a.genes {
		sort.Slice(genes, func(i, j int) bool {
			if genes[i].Start != genes[j].Start {
				return genes[i].Start < genes[j].Start
			}
			if genes[i].End != genes[j].End {
				return genes[i].End < genes[j].End
			}
			return genes[i].ID < genes[j].ID
		})
	}
	a.frozen = true
	return a
}

// Gene returns a gene by ID, or nil if not found.
func (a *Annotation) Gene(id string) *Gene {
	return a.byID[id]
}

// GenesByChrom returns all genes on a chromosome in start order.
func (a *Annotation) GenesByChrom(chrom string) []*Gene {
	return a.genes[NormalizeChrom(chrom)]
}

// HasChrom reports whether any gene lies on chrom.
func (a *Annotation) HasChrom(chrom string) bool {
	_, ok := a.genes[NormalizeChrom(chrom)]
	return ok
}

// GeneCount returns the total number of genes.
func (a *Annotation) GeneCount() int {
	return len(a.byID)
}

// Chromosomes returns a sorted list of chromosomes.
func (a *Annotation) Chromosomes() []string {
	chroms := make([]string, 0, len(a.genes))
	for chrom := range a.genes {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// GeneIDs returns all gene identifiers in sorted order.
func (a *Annotation) GeneIDs() []string {
	ids := make([]string, 0, len(a.byID))
	for id := range a.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GenomeOrder returns genes ordered by chromosome then start.
func (a *Annotation) GenomeOrder() []*Gene {
	out := make([]*Gene, 0, len(a.byID))
	for _, chrom := range a.Chromosomes() {
		out = append(out, a.genes[chrom]...)
	}
	return out
}
