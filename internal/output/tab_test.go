package output

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/hybrid"
	"github.com/inodb/peakenrich/internal/locus"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)
	w.SetColumns(enrich.Columns)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	assert.Equal(t, strings.Join(enrich.Columns, "\t")+"\n", buf.String())
}

func TestTabWriter_WriteRowColumnMismatch(t *testing.T) {
	w := NewTabWriter(&bytes.Buffer{})
	w.SetColumns([]string{"a", "b"})
	assert.Error(t, w.WriteRow([]string{"1"}))
}

func TestTabWriter_WriteFrame(t *testing.T) {
	run := &enrich.Run{Results: []enrich.Result{{
		Database:   "GOBP",
		GenesetID:  "GO:0001",
		PValue:     1.234e-12,
		FDR:        2.5e-10,
		Status:     enrich.StatusEnriched,
		Effect:     0.75,
		NGenes:     20,
		NPeakGenes: 2,
		PeakGenes:  []string{"A", "B"},
	}}}

	var buf bytes.Buffer
	w := NewTabWriter(&buf)
	require.NoError(t, w.WriteFrame(run.Frame()))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(enrich.Columns, "\t"), lines[0])

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, len(enrich.Columns))
	assert.Equal(t, "GOBP", fields[0])
	assert.Equal(t, "GO:0001", fields[1])
	assert.Equal(t, MissingValue, fields[2], "empty description")
	assert.Equal(t, "1.234e-12", fields[3], "p-values keep full precision")
	assert.Equal(t, "2.5e-10", fields[4])
	assert.Equal(t, "enriched", fields[5])
	assert.Equal(t, "0.75", fields[6])
	assert.Equal(t, "20", fields[7])
	assert.Equal(t, "2", fields[8])
	assert.Equal(t, "A,B", fields[9])
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.04", FormatFloat(0.04))
	assert.Equal(t, "1.2", FormatFloat(1.2))
	assert.Equal(t, MissingValue, FormatFloat(math.NaN()))
}

func TestWriteFile(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"G1", "G2"}, series.String, "Geneset.ID"),
		series.New([]float64{0.5, 0.25}, series.Float, "P.value"),
	)
	path := filepath.Join(t.TempDir(), "nested", "out.tsv")
	require.NoError(t, WriteFile(path, df))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Geneset.ID\tP.value\nG1\t0.5\nG2\t0.25\n", string(data))
}

func TestWriteRunSummary(t *testing.T) {
	run := &enrich.Run{
		Method: enrich.Count,
		Results: []enrich.Result{
			{GenesetID: "A", FDR: 0.01, Status: enrich.StatusEnriched},
			{GenesetID: "B", FDR: 0.02, Status: enrich.StatusEnriched},
			{GenesetID: "C", FDR: 0.04, Status: enrich.StatusDepleted},
			{GenesetID: "D", FDR: 0.5, Status: enrich.StatusDepleted},
		},
		Skipped:  3,
		Failures: []enrich.Failure{{GenesetID: "E", Reason: "singular information matrix"}},
	}

	var buf bytes.Buffer
	WriteRunSummary(&buf, run, 0.05)
	out := buf.String()
	assert.Contains(t, out, "Enrichment Summary (count, 5 genesets tested)")
	assert.Contains(t, out, "enriched            2")
	assert.Contains(t, out, "depleted            1")
	assert.Contains(t, out, "singular information matrix")
}

func TestWriteHybridSummary(t *testing.T) {
	res := &hybrid.Result{
		Matched:   2,
		HasStatus: true,
		Rows: []hybrid.Row{
			{GenesetID: "A", FDR: 0.01, Status: hybrid.StatusInconsistent},
			{GenesetID: "B", FDR: 0.9, Status: "enriched"},
		},
	}
	var buf bytes.Buffer
	WriteHybridSummary(&buf, res, 0.05)
	assert.Contains(t, buf.String(), "Hybrid Summary (2 common genesets)")
	assert.Contains(t, buf.String(), "Inconsistent        1")
	assert.NotContains(t, buf.String(), "enriched")
}

func TestWriteAssignmentSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteAssignmentSummary(&buf, locus.Report{TotalPeaks: 10, AssignedPeaks: 8, UnassignedPeaks: 2, DroppedPeaks: 1, DroppedChroms: []string{"Un"}})
	assert.Contains(t, buf.String(), "Peak Assignment (10 peaks)")
	assert.Contains(t, buf.String(), "[Un]")
}