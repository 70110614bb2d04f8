package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/peakenrich/internal/covariate"
	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
	"github.com/inodb/peakenrich/internal/loader"
	"github.com/inodb/peakenrich/internal/locus"
	"github.com/inodb/peakenrich/internal/output"
	"github.com/inodb/peakenrich/internal/pipeline"
	"github.com/inodb/peakenrich/internal/store"
)

// configuredFlags can also be set as enrich.<name> in the config file.
var configuredFlags = []string{"genome", "locus", "workers", "out-prefix", "out-dir"}

type enrichFlags struct {
	peaks         string
	annotation    string
	gtf           string
	biotypes      []string
	genesets      []string
	locusDef      string
	locusFile     string
	assign        string
	methods       []string
	minSize       int
	maxSize       int
	threshold     int
	mappability   string
	randomization string
	seed          uint64
	alpha         float64
	outputFile    string
}

func newEnrichCmd(logger func() *zap.Logger) *cobra.Command {
	f := &enrichFlags{}

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Test gene sets for enrichment of peaks",
		Long: `Assign peaks to genes, build the per-gene covariate table, and test
every gene set. With two --method values both pipelines run on the same
peak assignment and their results are combined into a hybrid table.`,
		Example: `  peakenrich enrich --genome hg38 --peaks peaks.bed --genesets kegg.tsv
  peakenrich enrich --annotation genes.tsv --peaks peaks.narrowPeak \
      --genesets go_bp.tsv --genesets kegg.tsv --method count --workers 4
  peakenrich enrich --gtf gencode.gtf.gz --peaks peaks.bed --genesets kegg.tsv \
      --method presence --method fisher --out-prefix exp1 --out-dir results/`,
		Args: cobra.NoArgs,
		// Bound per invocation so config set never writes flag defaults.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range configuredFlags {
				if err := viper.BindPFlag("enrich."+name, cmd.Flags().Lookup(name)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd, f, logger())
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.peaks, "peaks", "", "Peak file in BED or narrowPeak format (required)")
	fl.StringVar(&f.annotation, "annotation", "", "Gene annotation table")
	fl.StringVar(&f.gtf, "gtf", "", "GENCODE GTF gene annotation")
	fl.StringSliceVar(&f.biotypes, "biotype", nil, "Only load GTF genes of these gene types")
	fl.String("genome", "hg38", fmt.Sprintf("Genome build: %v", pipeline.Genomes))
	fl.StringArrayVar(&f.genesets, "genesets", nil, "Gene set table, repeatable (required)")
	fl.String("locus", locus.NearestTSS.String(), fmt.Sprintf("Locus definition: %s", strings.Join(locus.Names(), ", ")))
	fl.StringVar(&f.locusFile, "locus-file", "", "Custom locus definition table (overrides --locus)")
	fl.StringVar(&f.assign, "assign", "midpoint", "Peak matching for window definitions: midpoint or overlap")
	fl.StringArrayVar(&f.methods, "method", nil, "Test method, repeat twice for a hybrid run (default: presence)")
	fl.IntVar(&f.minSize, "min-size", enrich.DefaultMinGenesetSize, "Minimum gene set size")
	fl.IntVar(&f.maxSize, "max-size", enrich.DefaultMaxGenesetSize, "Maximum gene set size")
	fl.IntVar(&f.threshold, "threshold", covariate.DefaultThreshold, "Minimum peaks for a gene to count as having a peak")
	fl.StringVar(&f.mappability, "mappability", "none", "Mappability: none, a read length, or a gene_id/mappa table")
	fl.StringVar(&f.randomization, "randomization", "none", "Calibration randomization: none, complete, bylength, bylocation")
	fl.Uint64Var(&f.seed, "seed", 0, "Seed for randomization")
	fl.Int("workers", 1, "Worker goroutines for gene set tests")
	fl.String("out-prefix", "", "Write <prefix>_<method>_results.tsv and <prefix>.duckdb")
	fl.String("out-dir", "", "Directory for --out-prefix files (required with --out-prefix)")
	fl.Float64Var(&f.alpha, "alpha", 0.05, "FDR cutoff for the summary")
	fl.StringVarP(&f.outputFile, "output", "o", "", "Results table when no --out-prefix is set (default: stdout)")

	return cmd
}

func runEnrich(cmd *cobra.Command, f *enrichFlags, logger *zap.Logger) error {
	defer logger.Sync() //nolint:errcheck

	if f.peaks == "" {
		return errs.Preconditionf("--peaks is required")
	}
	if len(f.genesets) == 0 {
		return errs.Preconditionf("at least one --genesets file is required")
	}
	methods, err := parseMethods(f.methods)
	if err != nil {
		return err
	}

	opts, readLength, err := buildOptions(f)
	if err != nil {
		return err
	}

	peaks, err := loader.LoadPeaks(f.peaks)
	if err != nil {
		return err
	}
	logger.Info("loaded peaks", zap.String("path", f.peaks), zap.Int("peaks", len(peaks)))
	opts.Inputs = appendFingerprint(opts.Inputs, "peaks", f.peaks)

	ann, annPath, err := loadAnnotation(f, opts.Genome, readLength, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded annotation", zap.String("path", annPath), zap.Int("genes", ann.GeneCount()))
	opts.Inputs = appendFingerprint(opts.Inputs, "annotation", annPath)

	for _, path := range f.genesets {
		db, err := loader.LoadGenesets(path)
		if err != nil {
			return err
		}
		logger.Info("loaded gene sets", zap.String("database", db.Name), zap.Int("genesets", db.Len()))
		opts.Genesets = append(opts.Genesets, db)
		opts.Inputs = appendFingerprint(opts.Inputs, "genesets", path)
	}

	o, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	o.SetLogger(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sum, err := runPipelines(ctx, o, pipeline.Inputs{Peaks: peaks, Annotation: ann}, methods)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	output.WriteAssignmentSummary(stderr, sum.Pipelines[0].Report)
	for _, res := range sum.Pipelines {
		output.WriteRunSummary(stderr, res.Run, f.alpha)
	}
	if sum.Hybrid != nil {
		output.WriteHybridSummary(stderr, sum.Hybrid, f.alpha)
	}

	if opts.OutPrefix != "" {
		for _, path := range sum.Files {
			fmt.Fprintf(stderr, "Wrote %s\n", path)
		}
		for _, err := range sum.PersistErrors {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
		return nil
	}

	table := sum.Pipelines[0].Run.Frame()
	if sum.Hybrid != nil {
		table = sum.Hybrid.Frame
	}
	if f.outputFile != "" {
		return output.WriteFile(f.outputFile, table)
	}
	return writeTable(cmd.OutOrStdout(), table)
}

func runPipelines(ctx context.Context, o *pipeline.Orchestrator, in pipeline.Inputs, methods []enrich.Method) (*pipeline.Summary, error) {
	if len(methods) == 1 {
		return o.Run(ctx, in, methods[0])
	}
	return o.RunHybrid(ctx, in, methods)
}

// parseMethods resolves --method values; none means presence.
func parseMethods(names []string) ([]enrich.Method, error) {
	if len(names) == 0 {
		return []enrich.Method{enrich.Presence}, nil
	}
	if len(names) > 2 {
		return nil, errs.Preconditionf("at most two --method values are allowed, got %d", len(names))
	}
	methods := make([]enrich.Method, len(names))
	for i, n := range names {
		m, err := enrich.ParseMethod(n)
		if err != nil {
			return nil, err
		}
		methods[i] = m
	}
	return methods, nil
}

// buildOptions resolves everything except the loaded tables. The returned
// read length is non-zero for preset mappability.
func buildOptions(f *enrichFlags) (pipeline.Options, int, error) {
	opts := pipeline.DefaultOptions()
	opts.Genome = viper.GetString("enrich.genome")
	opts.MinGenesetSize = f.minSize
	opts.MaxGenesetSize = f.maxSize
	opts.PeakThreshold = f.threshold
	opts.Seed = f.seed
	opts.Workers = viper.GetInt("enrich.workers")
	opts.OutPrefix = viper.GetString("enrich.out-prefix")
	opts.OutDir = viper.GetString("enrich.out-dir")

	var err error
	if opts.Randomization, err = enrich.ParseRandomization(f.randomization); err != nil {
		return opts, 0, err
	}
	if opts.AssignMode, err = parseAssignMode(f.assign); err != nil {
		return opts, 0, err
	}

	if f.locusFile != "" {
		if opts.Locus, err = loader.LoadLocus(f.locusFile); err != nil {
			return opts, 0, err
		}
		opts.Inputs = appendFingerprint(opts.Inputs, "locus", f.locusFile)
	} else if opts.Locus, err = locus.Parse(viper.GetString("enrich.locus"), nil); err != nil {
		return opts, 0, err
	}

	readLength := 0
	switch m := strings.TrimSpace(f.mappability); {
	case m == "" || m == "none":
		opts.Mappability = covariate.NoMappability()
	case isInteger(m):
		readLength, _ = strconv.Atoi(m)
		if opts.Mappability, err = covariate.PresetMappability(readLength); err != nil {
			return opts, 0, err
		}
	default:
		if opts.Mappability, err = loader.LoadMappability(m); err != nil {
			return opts, 0, err
		}
		opts.Inputs = appendFingerprint(opts.Inputs, "mappability", m)
	}
	return opts, readLength, nil
}

// loadAnnotation reads --annotation or --gtf, falling back to a downloaded
// GENCODE GTF for the genome.
func loadAnnotation(f *enrichFlags, genomeName string, readLength int, logger *zap.Logger) (*genome.Annotation, string, error) {
	if f.annotation != "" && f.gtf != "" {
		return nil, "", errs.Preconditionf("--annotation and --gtf are mutually exclusive")
	}
	if f.annotation != "" {
		ann, err := loader.LoadAnnotation(f.annotation, readLength)
		return ann, f.annotation, err
	}
	if readLength > 0 {
		return nil, "", errs.Preconditionf("read-length mappability needs an --annotation table with a mappa_%d column", readLength)
	}

	path := f.gtf
	if path == "" {
		var ok bool
		path, ok = findGENCODEFile(defaultDataDir(), genomeName)
		if !ok {
			return nil, "", errs.Preconditionf("no annotation for genome %q: pass --annotation or --gtf, or run: peakenrich download --genome %s", genomeName, genomeName)
		}
	}
	l := loader.NewGTFLoader(path)
	l.SetLogger(logger)
	if len(f.biotypes) > 0 {
		l.SetBiotypes(f.biotypes)
	}
	ann, err := l.Load()
	return ann, path, err
}

func parseAssignMode(s string) (locus.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "midpoint":
		return locus.Midpoint, nil
	case "overlap":
		return locus.Overlap, nil
	}
	return 0, errs.Preconditionf("unsupported peak assignment %q (supported: midpoint, overlap)", s)
}

func isInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// appendFingerprint records an input file; unreadable files are skipped
// since the loader reports them.
func appendFingerprint(fps []store.FileFingerprint, role, path string) []store.FileFingerprint {
	fp, err := store.StatFile(role, path)
	if err != nil {
		return fps
	}
	return append(fps, fp)
}
