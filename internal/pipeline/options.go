// Package pipeline runs peak assignment, covariate aggregation and
// enrichment testing end to end, and orchestrates two-method hybrid runs.
package pipeline

import (
	"slices"

	"github.com/inodb/peakenrich/internal/covariate"
	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
	"github.com/inodb/peakenrich/internal/geneset"
	"github.com/inodb/peakenrich/internal/locus"
	"github.com/inodb/peakenrich/internal/store"
)

// Genomes lists the recognized genome builds. An empty genome label is
// accepted for custom annotations.
var Genomes = []string{"hg19", "hg38", "mm9", "mm10", "rn4", "rn5", "rn6", "dm3", "dm6", "danRer10"}

// Options are shared by every pipeline of a run.
type Options struct {
	Genome         string
	Locus          locus.Definition
	AssignMode     locus.Mode
	Genesets       []*geneset.Database
	MinGenesetSize int
	MaxGenesetSize int
	PeakThreshold  int
	Mappability    covariate.Mappability
	Randomization  enrich.Randomization
	Seed           uint64
	Workers        int

	// OutPrefix enables persistence when non-empty; OutDir is then required.
	OutPrefix string
	OutDir    string

	// Inputs are recorded with persisted runs.
	Inputs []store.FileFingerprint
}

// DefaultOptions returns nearest-TSS assignment with the default size
// bounds and no persistence.
func DefaultOptions() Options {
	return Options{
		Locus:          locus.Builtin(locus.NearestTSS),
		MinGenesetSize: enrich.DefaultMinGenesetSize,
		MaxGenesetSize: enrich.DefaultMaxGenesetSize,
		PeakThreshold:  covariate.DefaultThreshold,
		Mappability:    covariate.NoMappability(),
		Workers:        1,
	}
}

// Validate checks the options shared by all pipelines.
func (o Options) Validate() error {
	if o.Genome != "" && !slices.Contains(Genomes, o.Genome) {
		return errs.Preconditionf("unsupported genome %q (supported: %v)", o.Genome, Genomes)
	}
	if o.Locus.Kind == locus.Custom && len(o.Locus.Regions) == 0 {
		return errs.Preconditionf("custom locus definition %q has no regions", o.Locus.Name)
	}
	if len(o.Genesets) == 0 {
		return errs.Preconditionf("no geneset databases")
	}
	if o.OutPrefix != "" && o.OutDir == "" {
		return errs.Preconditionf("output directory is required when an output prefix is set")
	}
	_, err := enrich.NewEngine(o.engineOptions(enrich.Presence))
	return err
}

func (o Options) engineOptions(m enrich.Method) enrich.Options {
	return enrich.Options{
		Method:         m,
		MinGenesetSize: o.MinGenesetSize,
		MaxGenesetSize: o.MaxGenesetSize,
		Randomization:  o.Randomization,
		Seed:           o.Seed,
		Workers:        o.Workers,
	}
}

// Inputs are the loaded peak and gene tables.
type Inputs struct {
	Peaks      []genome.Peak
	Annotation *genome.Annotation
}
