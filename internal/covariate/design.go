package covariate

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
	"github.com/inodb/peakenrich/internal/locus"
)

// DefaultThreshold is the minimum peak count for has_peak.
const DefaultThreshold = 1

// Row holds the regression covariates of one gene.
type Row struct {
	GeneID         string
	PeakCount      int
	TotalPeakWidth int64
	HasPeak        bool
	Length         int64
	Mappability    float64
	LogLength      float64 // log10 of length, times mappability when corrected
}

// Design is the per-gene design table. Rows are sorted by gene ID and the
// table is read-only after construction.
type Design struct {
	Rows        []Row
	Threshold   int
	Mappability Mappability
	index       map[string]int
}

// NewDesign sorts rows by gene ID and indexes them.
func NewDesign(rows []Row, threshold int, m Mappability) *Design {
	sort.Slice(rows, func(i, j int) bool { return rows[i].GeneID < rows[j].GeneID })
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.GeneID] = i
	}
	return &Design{Rows: rows, Threshold: threshold, Mappability: m, index: index}
}

// Len returns the number of genes.
func (d *Design) Len() int {
	return len(d.Rows)
}

// Index returns the row index of a gene.
func (d *Design) Index(geneID string) (int, bool) {
	i, ok := d.index[geneID]
	return i, ok
}

// GenesWithPeaks returns the number of rows with HasPeak set.
func (d *Design) GenesWithPeaks() int {
	n := 0
	for _, r := range d.Rows {
		if r.HasPeak {
			n++
		}
	}
	return n
}

// Permute returns a design where the peak payload (count, width, has_peak) of
// row perm[i] is moved to row i. Covariates stay with their genes.
func (d *Design) Permute(perm []int) (*Design, error) {
	if len(perm) != len(d.Rows) {
		return nil, fmt.Errorf("permute design: permutation has %d entries, design has %d", len(perm), len(d.Rows))
	}
	rows := make([]Row, len(d.Rows))
	copy(rows, d.Rows)
	for i, src := range perm {
		rows[i].PeakCount = d.Rows[src].PeakCount
		rows[i].TotalPeakWidth = d.Rows[src].TotalPeakWidth
		rows[i].HasPeak = d.Rows[src].HasPeak
	}
	return &Design{Rows: rows, Threshold: d.Threshold, Mappability: d.Mappability, index: d.index}, nil
}

// Aggregator builds design tables from peak assignments.
type Aggregator struct {
	threshold   int
	mappability Mappability
	logger      *zap.Logger
}

// NewAggregator creates an aggregator. A threshold below 1 is raised to 1.
func NewAggregator(threshold int, m Mappability) *Aggregator {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Aggregator{threshold: threshold, mappability: m, logger: zap.NewNop()}
}

// SetLogger sets the logger for warning and info messages.
func (a *Aggregator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Aggregate returns one row per annotated gene, including genes without peaks.
// Genes without a usable length (or without a custom mappability score) are left out.
func (a *Aggregator) Aggregate(asg *locus.Assignment, ann *genome.Annotation) (*Design, error) {
	rows := make([]Row, 0, ann.GeneCount())
	var noMappa, noLength int

	for _, id := range ann.GeneIDs() {
		g := ann.Gene(id)

		mappa := 1.0
		switch a.mappability.Mode {
		case MappabilityPreset:
			if err := checkScore(g.Mappability); err != nil {
				return nil, errs.Invalid("annotation", "mappa", fmt.Sprintf("gene %s: %v", id, err))
			}
			mappa = g.Mappability
		case MappabilityCustom:
			v, ok := a.mappability.Table[id]
			if !ok {
				noMappa++
				continue
			}
			mappa = v
		}

		length := g.CovariateLength()
		effective := float64(length)
		if a.mappability.Enabled() {
			effective *= mappa
		}
		if effective <= 0 {
			noLength++
			continue
		}

		row := Row{
			GeneID:      id,
			Length:      length,
			Mappability: mappa,
			LogLength:   math.Log10(effective),
		}
		row.PeakCount = len(asg.Peaks(id))
		for _, bp := range asg.OverlapBP[id] {
			row.TotalPeakWidth += bp
		}
		row.HasPeak = row.PeakCount >= a.threshold
		rows = append(rows, row)
	}

	if noMappa > 0 {
		a.logger.Warn("genes without mappability score excluded",
			zap.String("table", a.mappability.Source),
			zap.Int("genes", noMappa))
	}
	if noLength > 0 {
		a.logger.Warn("genes with zero effective length excluded", zap.Int("genes", noLength))
	}
	if len(rows) == 0 {
		return nil, errs.Invalid("annotation", "", "no genes left in design table")
	}

	d := NewDesign(rows, a.threshold, a.mappability)
	a.logger.Info("built design table",
		zap.Int("genes", d.Len()),
		zap.Int("genes_with_peaks", d.GenesWithPeaks()),
		zap.String("mappability", a.mappability.String()))
	return d, nil
}
