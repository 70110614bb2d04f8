package locus

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
)

// Mode selects which part of a peak is matched against locus regions.
type Mode int

const (
	// Midpoint assigns a peak by its midpoint.
	Midpoint Mode = iota
	// Overlap assigns a peak to every region it overlaps by at least one base.
	// Nearest-style definitions always use the midpoint.
	Overlap
)

// Assignment is the per-gene result of peak assignment.
type Assignment struct {
	Definition Definition
	// ByGene lists assigned peak indices per gene in sorted peak order.
	ByGene map[string][]int
	// OverlapBP holds the bases of each assigned peak covered by the gene's
	// locus, keyed like ByGene.
	OverlapBP map[string][]int64
	Report    Report
}

// Peaks returns the peak indices assigned to a gene.
func (a *Assignment) Peaks(geneID string) []int {
	return a.ByGene[geneID]
}

// Genes returns the IDs of genes with at least one assigned peak, sorted.
func (a *Assignment) Genes() []string {
	ids := make([]string, 0, len(a.ByGene))
	for id := range a.ByGene {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Assigner maps peaks to genes.
type Assigner struct {
	def    Definition
	mode   Mode
	logger *zap.Logger
}

// NewAssigner creates an assigner for a locus definition.
func NewAssigner(def Definition) *Assigner {
	return &Assigner{def: def, logger: zap.NewNop()}
}

// SetMode sets how peaks are matched to window regions.
func (a *Assigner) SetMode(m Mode) {
	a.mode = m
}

// SetLogger sets the logger for warning and info messages.
func (a *Assigner) SetLogger(l *zap.Logger) {
	a.logger = l
}

// chromIndex bundles the per-chromosome search structures.
type chromIndex struct {
	tss     *TSSIndex
	genes   *GeneIndex
	regions *RegionIndex
}

// Assign maps peaks to genes. The result depends only on the peak set, the
// annotation and the definition, not on the order of peaks.
func (a *Assigner) Assign(peaks []genome.Peak, ann *genome.Annotation) (*Assignment, error) {
	for i, p := range peaks {
		if err := p.Validate(); err != nil {
			return nil, &errs.InputError{Source: "peaks", Line: i + 1, Reason: err.Error()}
		}
	}

	index, err := a.buildIndex(ann)
	if err != nil {
		return nil, fmt.Errorf("build locus index: %w", err)
	}

	out := &Assignment{
		Definition: a.def,
		ByGene:     make(map[string][]int),
		OverlapBP:  make(map[string][]int64),
	}
	dropped := make(map[string]int)
	var distances []float64

	for _, pi := range genome.SortPeaks(peaks) {
		p := peaks[pi]
		chrom := genome.NormalizeChrom(p.Chrom)
		ci, ok := index[chrom]
		if !ok {
			dropped[chrom]++
			continue
		}
		out.Report.TotalPeaks++

		hits := a.match(ci, p)
		if len(hits) == 0 {
			out.Report.UnassignedPeaks++
			continue
		}
		out.Report.AssignedPeaks++
		for _, h := range hits {
			out.ByGene[h.gene.ID] = append(out.ByGene[h.gene.ID], pi)
			out.OverlapBP[h.gene.ID] = append(out.OverlapBP[h.gene.ID], h.overlap)
			out.Report.Assignments++
			d := p.Midpoint() - h.gene.TSS()
			if d < 0 {
				d = -d
			}
			distances = append(distances, float64(d))
		}
	}

	chroms := make([]string, 0, len(dropped))
	for chrom, n := range dropped {
		chroms = append(chroms, chrom)
		out.Report.DroppedPeaks += n
	}
	sort.Strings(chroms)
	out.Report.DroppedChroms = chroms
	for _, chrom := range chroms {
		a.logger.Warn("dropping peaks on chromosome absent from annotation",
			zap.String("chrom", chrom),
			zap.Int("peaks", dropped[chrom]))
	}

	out.Report.TSSDistance = summarizeDistances(distances)
	a.logger.Info("assigned peaks to genes",
		zap.String("locusdef", a.def.Name),
		zap.Int("peaks", out.Report.TotalPeaks),
		zap.Int("assigned", out.Report.AssignedPeaks),
		zap.Int("genes", len(out.ByGene)))

	return out, nil
}

// match returns the genes a peak is assigned to.
func (a *Assigner) match(ci *chromIndex, p genome.Peak) []hit {
	mid := p.Midpoint()
	switch a.def.Kind {
	case NearestTSS:
		if g := ci.tss.Nearest(mid); g != nil {
			return []hit{{gene: g, overlap: p.Width()}}
		}
		return nil
	case NearestGene:
		if g := ci.genes.Nearest(mid); g != nil {
			return []hit{{gene: g, overlap: p.Width()}}
		}
		return nil
	}
	if a.mode == Overlap {
		return ci.regions.Overlapping(p.Start, p.End)
	}
	hits := ci.regions.Overlapping(mid, mid+1)
	for i := range hits {
		hits[i].overlap = p.Width()
	}
	return hits
}

func (a *Assigner) buildIndex(ann *genome.Annotation) (map[string]*chromIndex, error) {
	index := make(map[string]*chromIndex)

	if a.def.Kind == Custom {
		regions, err := buildCustomRegions(a.def.Regions, ann)
		if err != nil {
			return nil, err
		}
		for chrom, ri := range regions {
			index[chrom] = &chromIndex{regions: ri}
		}
		return index, nil
	}

	for _, chrom := range ann.Chromosomes() {
		genes := ann.GenesByChrom(chrom)
		ci := &chromIndex{tss: BuildTSSIndex(genes)}
		switch a.def.Kind {
		case NearestTSS:
		case NearestGene:
			ci.genes = BuildGeneIndex(genes)
		default:
			ri, err := buildWindowRegions(a.def.Kind, genes, ci.tss)
			if err != nil {
				return nil, fmt.Errorf("chromosome %s: %w", chrom, err)
			}
			ci.regions = ri
		}
		index[chrom] = ci
	}
	return index, nil
}
