package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/hybrid"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun() *enrich.Run {
	return &enrich.Run{
		Method:        enrich.Presence,
		Randomization: enrich.RandomizeNone,
		Results: []enrich.Result{
			{Database: "GOBP", GenesetID: "GO:2", Description: "second", PValue: 0.2, FDR: 0.3, Status: "depleted", Effect: -0.4, NGenes: 30, NPeakGenes: 4},
			{Database: "GOBP", GenesetID: "GO:1", Description: "first", PValue: 0.001, FDR: 0.002, Status: "enriched", Effect: 1.1, NGenes: 20, NPeakGenes: 15},
		},
		Skipped:  7,
		Failures: []enrich.Failure{{Database: "GOBP", GenesetID: "GO:3", Reason: "regression did not converge"}},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestWriteAndLookupRun(t *testing.T) {
	s := openInMemory(t)

	id, err := s.WriteRun(RunInfo{Name: "exp_presence", Genome: "hg19", Locus: "nearest_tss", Mappability: "none", MinSize: 15, MaxSize: 2000}, testRun())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	results, err := s.LookupResults(id)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "GO:1", results[0].GenesetID)
	assert.Equal(t, "first", results[0].Description)
	assert.InDelta(t, 0.001, results[0].PValue, 1e-15)
	assert.Equal(t, 15, results[0].NPeakGenes)
	assert.Equal(t, "GO:2", results[1].GenesetID)

	failures, err := s.LookupFailures(id)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "regression did not converge", failures[0].Reason)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "presence", runs[0].Method)
	assert.Equal(t, "hg19", runs[0].Genome)
	assert.Equal(t, int64(3), runs[0].Tested)
	assert.Equal(t, int64(7), runs[0].Skipped)
	assert.Equal(t, int64(1), runs[0].Failed)
}

func TestRunIDsIncrease(t *testing.T) {
	s := openInMemory(t)

	a, err := s.WriteRun(RunInfo{Name: "a"}, testRun())
	require.NoError(t, err)
	b, err := s.WriteRun(RunInfo{Name: "b"}, testRun())
	require.NoError(t, err)
	assert.Equal(t, a+1, b)

	hits, err := s.SearchGeneset("GO:1")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "enriched", hits[b].Status)
}

func TestWriteAndLookupHybrid(t *testing.T) {
	s := openInMemory(t)

	res := &hybrid.Result{
		Matched:   2,
		HasStatus: true,
		Rows: []hybrid.Row{
			{GenesetID: "G3", PValueX: 0.9, PValueY: 0.01, PValue: 0.02, FDR: 0.04, StatusX: "depleted", StatusY: "enriched", Status: hybrid.StatusInconsistent},
			{GenesetID: "G2", PValueX: 0.5, PValueY: 0.2, PValue: 0.4, FDR: 0.4, StatusX: "enriched", StatusY: "enriched", Status: "enriched"},
		},
	}
	id, err := s.WriteHybrid(RunInfo{Name: "exp_hybrid"}, res)
	require.NoError(t, err)

	rows, err := s.LookupHybrid(id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, res.Rows, rows)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Equal(t, HybridMethod, runs[0].Method)
	assert.Equal(t, int64(2), runs[0].Tested)
}

func TestRunInputs(t *testing.T) {
	s := openInMemory(t)

	path := filepath.Join(t.TempDir(), "peaks.bed")
	require.NoError(t, os.WriteFile(path, []byte("chr1\t10\t20\n"), 0644))
	fp, err := StatFile("peaks", path)
	require.NoError(t, err)
	assert.Equal(t, int64(12), fp.Size)

	id, err := s.WriteRun(RunInfo{Name: "x", Inputs: []FileFingerprint{fp}, CreatedAt: time.Unix(1700000000, 0)}, testRun())
	require.NoError(t, err)

	var role, gotPath string
	var size int64
	require.NoError(t, s.DB().QueryRow("SELECT role, path, size FROM run_inputs WHERE run_id=?", id).Scan(&role, &gotPath, &size))
	assert.Equal(t, "peaks", role)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, int64(12), size)
}

func TestStatFile_Missing(t *testing.T) {
	_, err := StatFile("peaks", filepath.Join(t.TempDir(), "missing.bed"))
	assert.Error(t, err)
}

func TestOpen_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.WriteRun(RunInfo{Name: "disk"}, testRun())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
