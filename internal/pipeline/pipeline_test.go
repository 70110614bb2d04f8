package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
	"github.com/inodb/peakenrich/internal/geneset"
	"github.com/inodb/peakenrich/internal/hybrid"
	"github.com/inodb/peakenrich/internal/store"
)

func geneID(i int) string { return fmt.Sprintf("G%03d", i) }

// testInputs places 200 forward-strand genes 10kb apart on chr1. Genes 0-39
// mostly have a peak just downstream of their TSS, the rest every third gene.
func testInputs(t *testing.T) Inputs {
	t.Helper()
	ann := genome.NewAnnotation()
	var peaks []genome.Peak
	for i := 0; i < 200; i++ {
		start := int64(i*10000 + 1000)
		require.NoError(t, ann.AddGene(&genome.Gene{
			ID:          geneID(i),
			Chrom:       "chr1",
			Start:       start,
			End:         start + int64(1000+(i*733)%5000),
			Strand:      1,
			Mappability: 1,
		}))
		if (i < 40 && i%8 != 0) || (i >= 40 && i%3 == 0) {
			peaks = append(peaks, genome.Peak{Chrom: "chr1", Start: start + 100, End: start + 300})
		}
	}
	peaks = append(peaks, genome.Peak{Chrom: "chrUn", Start: 10, End: 20})
	return Inputs{Peaks: peaks, Annotation: ann.Freeze()}
}

func testOptions() Options {
	db := geneset.New("test")
	for i := 0; i < 40; i++ {
		db.Add("UP", geneID(i))
		db.Add("MIX", geneID(40+i))
	}
	opts := DefaultOptions()
	opts.Genome = "hg19"
	opts.Genesets = []*geneset.Database{db}
	return opts
}

func TestRun_SinglePipeline(t *testing.T) {
	o, err := New(testOptions())
	require.NoError(t, err)

	sum, err := o.Run(context.Background(), testInputs(t), enrich.Fisher)
	require.NoError(t, err)
	require.Len(t, sum.Pipelines, 1)
	assert.Nil(t, sum.Hybrid)
	assert.Empty(t, sum.Files, "no prefix, no files")

	res := sum.Pipelines[0]
	assert.Equal(t, 1, res.Report.DroppedPeaks)
	assert.Equal(t, []string{"Un"}, res.Report.DroppedChroms)
	assert.Equal(t, 200, res.Design.Len())

	up, ok := res.Run.Result("UP")
	require.True(t, ok)
	assert.Equal(t, enrich.StatusEnriched, up.Status)
	assert.Equal(t, 35, up.NPeakGenes)
}

func TestRunHybrid(t *testing.T) {
	opts := testOptions()
	opts.OutPrefix = "exp"
	opts.OutDir = t.TempDir()
	o, err := New(opts)
	require.NoError(t, err)

	sum, err := o.RunHybrid(context.Background(), testInputs(t), []enrich.Method{enrich.Presence, enrich.Fisher})
	require.NoError(t, err)
	require.Len(t, sum.Pipelines, 2)
	assert.Equal(t, enrich.Presence, sum.Pipelines[0].Method)
	assert.Equal(t, enrich.Fisher, sum.Pipelines[1].Method)
	assert.Empty(t, sum.PersistErrors)

	require.NotNil(t, sum.Hybrid)
	assert.Equal(t, 2, sum.Hybrid.Matched)
	assert.Equal(t, "UP", sum.Hybrid.Rows[0].GenesetID)
	assert.Equal(t, enrich.StatusEnriched, sum.Hybrid.Rows[0].Status)

	px, _ := sum.Pipelines[0].Run.Result("UP")
	py, _ := sum.Pipelines[1].Run.Result("UP")
	assert.InDelta(t, 2*min(px.PValue, py.PValue), sum.Hybrid.Rows[0].PValue, 1e-15)

	assert.ElementsMatch(t, []string{
		ResultsPath(opts.OutDir, "exp", "presence"),
		ResultsPath(opts.OutDir, "exp", "fisher"),
		ResultsPath(opts.OutDir, "exp", "hybrid"),
	}, sum.Files)
	for _, f := range sum.Files {
		assert.FileExists(t, f)
	}

	db, err := store.Open(StorePath(opts.OutDir, "exp"))
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "exp_presence", runs[0].Name)
	assert.Equal(t, store.HybridMethod, runs[2].Method)
}

func TestRunHybrid_MethodCount(t *testing.T) {
	o, err := New(testOptions())
	require.NoError(t, err)

	for _, methods := range [][]enrich.Method{
		nil,
		{enrich.Presence},
		{enrich.Presence, enrich.Count, enrich.Fisher},
		{enrich.Count, enrich.Count},
	} {
		// Empty inputs would fail later; the method check must come first.
		_, err := o.RunHybrid(context.Background(), Inputs{}, methods)
		assert.ErrorIs(t, err, errs.ErrPrecondition)
	}
}

func TestNew_Validation(t *testing.T) {
	opts := testOptions()
	opts.OutPrefix = "exp"
	_, err := New(opts)
	assert.ErrorIs(t, err, errs.ErrPrecondition, "prefix without directory")

	opts = testOptions()
	opts.Genome = "hg17"
	_, err = New(opts)
	assert.ErrorIs(t, err, errs.ErrPrecondition)

	opts = testOptions()
	opts.Genesets = nil
	_, err = New(opts)
	assert.ErrorIs(t, err, errs.ErrPrecondition)

	opts = testOptions()
	opts.MinGenesetSize = 50
	opts.MaxGenesetSize = 10
	_, err = New(opts)
	assert.ErrorIs(t, err, errs.ErrPrecondition)
}

func TestRun_EmptyAnnotation(t *testing.T) {
	o, err := New(testOptions())
	require.NoError(t, err)
	_, err = o.Run(context.Background(), Inputs{}, enrich.Presence)
	assert.ErrorIs(t, err, errs.ErrPrecondition)
}

func TestRun_Canceled(t *testing.T) {
	o, err := New(testOptions())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Run(ctx, testInputs(t), enrich.Presence)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingPersister struct{ saved int }

func (p *failingPersister) SaveRun(*enrich.Run) ([]string, error) {
	p.saved++
	return nil, errors.New("disk full")
}

func (p *failingPersister) SaveHybrid(*hybrid.Result) ([]string, error) {
	p.saved++
	return nil, errors.New("disk full")
}

func (p *failingPersister) Close() error { return nil }

func TestRunHybrid_PersistErrorsDoNotChangeResults(t *testing.T) {
	opts := testOptions()
	opts.OutPrefix = "exp"
	opts.OutDir = t.TempDir()
	o, err := New(opts)
	require.NoError(t, err)

	fp := &failingPersister{}
	o.SetPersister(func(Options) (Persister, error) { return fp, nil })

	methods := []enrich.Method{enrich.Count, enrich.Fisher}
	sum, err := o.RunHybrid(context.Background(), testInputs(t), methods)
	require.NoError(t, err)
	assert.Len(t, sum.PersistErrors, 3)
	assert.Equal(t, 3, fp.saved)
	assert.Empty(t, sum.Files)

	plain, err := New(testOptions())
	require.NoError(t, err)
	want, err := plain.RunHybrid(context.Background(), testInputs(t), methods)
	require.NoError(t, err)
	assert.Equal(t, want.Hybrid.Rows, sum.Hybrid.Rows)
}

func TestRunHybrid_PersisterOpenFails(t *testing.T) {
	opts := testOptions()
	opts.OutPrefix = "exp"
	opts.OutDir = t.TempDir()
	o, err := New(opts)
	require.NoError(t, err)
	o.SetPersister(func(Options) (Persister, error) { return nil, errors.New("read-only") })

	sum, err := o.RunHybrid(context.Background(), testInputs(t), []enrich.Method{enrich.Presence, enrich.Fisher})
	require.NoError(t, err)
	require.Len(t, sum.PersistErrors, 1)
	assert.NotNil(t, sum.Hybrid)
}
