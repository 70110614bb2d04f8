package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/peakenrich/internal/covariate"
	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/hybrid"
	"github.com/inodb/peakenrich/internal/locus"
)

// Result is the output of one pipeline.
type Result struct {
	Method enrich.Method
	Report locus.Report
	Design *covariate.Design
	Run    *enrich.Run
}

// Summary is the output of a run, with everything persisted on the side.
type Summary struct {
	Pipelines     []*Result
	Hybrid        *hybrid.Result // nil for single-method runs
	Files         []string       // files written by the persistence adapter
	PersistErrors []error        // logged, never fatal
}

// Orchestrator runs pipelines that share one set of options.
type Orchestrator struct {
	opts       Options
	logger     *zap.Logger
	newPersist func(Options) (Persister, error)
}

// New validates opts and creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{opts: opts, logger: zap.NewNop(), newPersist: openPersister}, nil
}

// SetLogger sets the logger for all pipeline stages.
func (o *Orchestrator) SetLogger(l *zap.Logger) {
	o.logger = l
}

// SetPersister replaces the persistence adapter used when an output prefix
// is set.
func (o *Orchestrator) SetPersister(fn func(Options) (Persister, error)) {
	o.newPersist = fn
}

// Run executes a single pipeline.
func (o *Orchestrator) Run(ctx context.Context, in Inputs, method enrich.Method) (*Summary, error) {
	asg, design, err := o.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	res, err := o.test(ctx, in, asg, design, method)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Pipelines: []*Result{res}}
	o.persist(sum)
	return sum, nil
}

// RunHybrid executes one pipeline per method and combines the two result
// tables. Exactly two distinct methods are required.
func (o *Orchestrator) RunHybrid(ctx context.Context, in Inputs, methods []enrich.Method) (*Summary, error) {
	if len(methods) != 2 {
		return nil, errs.Preconditionf("hybrid runs need exactly 2 methods, got %d", len(methods))
	}
	if methods[0] == methods[1] {
		return nil, errs.Preconditionf("hybrid runs need two different methods, got %s twice", methods[0])
	}

	asg, design, err := o.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(methods))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range methods {
		g.Go(func() error {
			res, err := o.test(gctx, in, asg, design, m)
			if err != nil {
				return fmt.Errorf("%s pipeline: %w", m, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := hybrid.NewCombiner()
	c.SetLogger(o.logger)
	hy, err := c.Combine(
		hybrid.FromRun(results[0].Run).WithLabel(methods[0].String()),
		hybrid.FromRun(results[1].Run).WithLabel(methods[1].String()),
	)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Pipelines: results, Hybrid: hy}
	o.persist(sum)
	return sum, nil
}

// prepare assigns peaks and builds the design table shared by all methods.
func (o *Orchestrator) prepare(ctx context.Context, in Inputs) (*locus.Assignment, *covariate.Design, error) {
	if in.Annotation == nil || in.Annotation.GeneCount() == 0 {
		return nil, nil, errs.Preconditionf("empty gene annotation")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	a := locus.NewAssigner(o.opts.Locus)
	a.SetMode(o.opts.AssignMode)
	a.SetLogger(o.logger)
	asg, err := a.Assign(in.Peaks, in.Annotation)
	if err != nil {
		return nil, nil, fmt.Errorf("assign peaks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	agg := covariate.NewAggregator(o.opts.PeakThreshold, o.opts.Mappability)
	agg.SetLogger(o.logger)
	design, err := agg.Aggregate(asg, in.Annotation)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate covariates: %w", err)
	}
	return asg, design, nil
}

func (o *Orchestrator) test(ctx context.Context, in Inputs, asg *locus.Assignment, design *covariate.Design, m enrich.Method) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := enrich.NewEngine(o.opts.engineOptions(m))
	if err != nil {
		return nil, err
	}
	e.SetLogger(o.logger.With(zap.String("method", m.String())))
	run, err := e.Run(enrich.Input{
		Design:     design,
		Genesets:   o.opts.Genesets,
		Annotation: in.Annotation,
	})
	if err != nil {
		return nil, fmt.Errorf("test genesets: %w", err)
	}
	return &Result{Method: m, Report: asg.Report, Design: design, Run: run}, nil
}

// persist hands finished tables to the persistence adapter. Failures are
// logged and collected; the computed tables are never changed.
func (o *Orchestrator) persist(sum *Summary) {
	if o.opts.OutPrefix == "" {
		return
	}
	fail := func(err error) {
		o.logger.Warn("persist results", zap.Error(err))
		sum.PersistErrors = append(sum.PersistErrors, err)
	}

	p, err := o.newPersist(o.opts)
	if err != nil {
		fail(err)
		return
	}
	defer func() {
		if err := p.Close(); err != nil {
			fail(err)
		}
	}()

	for _, res := range sum.Pipelines {
		files, err := p.SaveRun(res.Run)
		sum.Files = append(sum.Files, files...)
		if err != nil {
			fail(err)
		}
	}
	if sum.Hybrid != nil {
		files, err := p.SaveHybrid(sum.Hybrid)
		sum.Files = append(sum.Files, files...)
		if err != nil {
			fail(err)
		}
	}
}
