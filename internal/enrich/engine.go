package enrich

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/peakenrich/internal/covariate"
	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
	"github.com/inodb/peakenrich/internal/geneset"
)

// Default geneset size bounds, inclusive.
const (
	DefaultMinGenesetSize = 15
	DefaultMaxGenesetSize = 2000
)

// Options configures an enrichment run.
type Options struct {
	Method         Method
	MinGenesetSize int
	MaxGenesetSize int
	Randomization  Randomization
	Seed           uint64
	Workers        int // 0 or less means 1
}

// DefaultOptions returns the presence test with the default size bounds.
func DefaultOptions() Options {
	return Options{
		Method:         Presence,
		MinGenesetSize: DefaultMinGenesetSize,
		MaxGenesetSize: DefaultMaxGenesetSize,
		Workers:        1,
	}
}

// Input holds the read-only inputs of a run.
type Input struct {
	Design     *covariate.Design
	Genesets   []*geneset.Database
	Annotation *genome.Annotation // required for location-stratified randomization
}

// Engine tests every geneset against a design table.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine validates opts and creates an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Method < Presence || opts.Method > Fisher {
		return nil, errs.Preconditionf("unsupported method %s", opts.Method)
	}
	if opts.Randomization < RandomizeNone || opts.Randomization > RandomizeByLocation {
		return nil, errs.Preconditionf("unsupported randomization %s", opts.Randomization)
	}
	if opts.MinGenesetSize < 1 {
		return nil, errs.Preconditionf("minimum geneset size must be at least 1, got %d", opts.MinGenesetSize)
	}
	if opts.MaxGenesetSize < opts.MinGenesetSize {
		return nil, errs.Preconditionf("maximum geneset size %d is below minimum %d", opts.MaxGenesetSize, opts.MinGenesetSize)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Engine{opts: opts, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Options returns the validated options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run tests every geneset of every database. A failed fit excludes only its
// geneset and is recorded in Run.Failures; any returned error aborts the run.
func (e *Engine) Run(in Input) (*Run, error) {
	if in.Design == nil || in.Design.Len() == 0 {
		return nil, errs.Preconditionf("empty design table")
	}
	if len(in.Genesets) == 0 {
		return nil, errs.Preconditionf("no geneset databases")
	}

	design := in.Design
	if e.opts.Randomization != RandomizeNone {
		perm, err := permutation(e.opts.Randomization, design, in.Annotation, e.opts.Seed)
		if err != nil {
			return nil, err
		}
		if design, err = design.Permute(perm); err != nil {
			return nil, fmt.Errorf("randomize design: %w", err)
		}
		e.logger.Info("randomized peak assignments",
			zap.String("mode", e.opts.Randomization.String()),
			zap.Uint64("seed", e.opts.Seed))
	}

	run := &Run{
		Method:        e.opts.Method,
		Randomization: e.opts.Randomization,
		Seed:          e.opts.Seed,
	}

	tasks, skipped, err := e.buildTasks(design, in.Genesets)
	if err != nil {
		return nil, err
	}
	run.Skipped = skipped

	if len(tasks) > 0 {
		t, err := newTester(e.opts.Method, design)
		if err != nil {
			return nil, fmt.Errorf("prepare %s test: %w", e.opts.Method, err)
		}
		if err := e.dispatch(t, tasks, run); err != nil {
			return nil, err
		}
	}

	applyFDR(run.Results)
	sortResults(run.Results)

	e.logger.Info("enrichment complete",
		zap.String("method", e.opts.Method.String()),
		zap.Int("tested", run.Tested()),
		zap.Int("results", len(run.Results)),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", len(run.Failures)))
	return run, nil
}

// buildTasks resolves geneset members to design rows and applies the size
// bounds. Geneset IDs must be unique across databases.
func (e *Engine) buildTasks(d *covariate.Design, dbs []*geneset.Database) ([]*task, int, error) {
	var tasks []*task
	skipped := 0
	seen := make(map[string]string)

	for _, db := range dbs {
		for _, id := range db.IDs() {
			if prev, dup := seen[id]; dup {
				return nil, 0, errs.Invalid("genesets", "", fmt.Sprintf("geneset %q appears in both %q and %q", id, prev, db.Name))
			}
			seen[id] = db.Name

			var members []int
			var peakGenes []string
			for _, g := range db.Genes(id) {
				i, ok := d.Index(g)
				if !ok {
					continue
				}
				members = append(members, i)
				if d.Rows[i].HasPeak {
					peakGenes = append(peakGenes, g)
				}
			}

			if len(members) < e.opts.MinGenesetSize || len(members) > e.opts.MaxGenesetSize {
				skipped++
				continue
			}
			tasks = append(tasks, &task{
				database:    db.Name,
				id:          id,
				description: db.Description(id),
				members:     members,
				peakGenes:   peakGenes,
			})
		}
	}
	return tasks, skipped, nil
}

// dispatch fans tasks out to the worker pool and collects results in task
// order.
func (e *Engine) dispatch(t tester, tasks []*task, run *Run) error {
	items := make(chan WorkItem, 2*e.opts.Workers)
	go func() {
		defer close(items)
		for i, tk := range tasks {
			items <- WorkItem{Seq: i, Task: tk}
		}
	}()

	results := parallelTest(t, items, e.opts.Workers)
	return OrderedCollect(results, func(r WorkResult) error {
		if r.Task == nil {
			return fmt.Errorf("collect results: missing task for sequence %d", r.Seq)
		}
		if r.Err != nil {
			e.logger.Warn("geneset fit failed",
				zap.String("geneset", r.Task.id),
				zap.Error(r.Err))
			reason := r.Err.Error()
			var fe *errs.FitError
			if errors.As(r.Err, &fe) {
				reason = fe.Reason
			}
			run.Failures = append(run.Failures, Failure{
				Database:  r.Task.database,
				GenesetID: r.Task.id,
				Reason:    reason,
			})
			return nil
		}
		run.Results = append(run.Results, Result{
			Database:    r.Task.database,
			GenesetID:   r.Task.id,
			Description: r.Task.description,
			PValue:      r.Outcome.pvalue,
			Status:      statusOf(r.Outcome.effect),
			Effect:      r.Outcome.effect,
			NGenes:      len(r.Task.members),
			NPeakGenes:  len(r.Task.peakGenes),
			PeakGenes:   r.Task.peakGenes,
		})
		return nil
	})
}

// applyFDR sets the BH FDR of every result within its database.
func applyFDR(results []Result) {
	byDB := make(map[string][]int)
	for i, r := range results {
		byDB[r.Database] = append(byDB[r.Database], i)
	}
	for _, idx := range byDB {
		p := make([]float64, len(idx))
		for k, i := range idx {
			p[k] = results[i].PValue
		}
		for k, q := range AdjustBH(p) {
			results[idx[k]].FDR = q
		}
	}
}
