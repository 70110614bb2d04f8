package locus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
)

func testAnnotation(t *testing.T) *genome.Annotation {
	t.Helper()
	ann := genome.NewAnnotation()
	genes := []*genome.Gene{
		{ID: "G1", Chrom: "1", Start: 10000, End: 20000, Strand: 1,
			Exons: []genome.Exon{{Start: 10000, End: 11000}, {Start: 15000, End: 16000}, {Start: 19000, End: 20000}}},
		{ID: "G2", Chrom: "1", Start: 30000, End: 40000, Strand: -1,
			Exons: []genome.Exon{{Start: 30000, End: 32000}, {Start: 38000, End: 40000}}},
		{ID: "G3", Chrom: "1", Start: 39500, End: 45000, Strand: 1},
		{ID: "G4", Chrom: "2", Start: 5000, End: 8000, Strand: 1},
	}
	for _, g := range genes {
		require.NoError(t, ann.AddGene(g))
	}
	return ann.Freeze()
}

func geneSet(a *Assignment) map[string]int {
	out := map[string]int{}
	for id, peaks := range a.ByGene {
		out[id] = len(peaks)
	}
	return out
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("NEAREST_TSS")
	require.NoError(t, err)
	assert.Equal(t, NearestTSS, k)

	k, err = ParseKind("5kb")
	require.NoError(t, err)
	assert.Equal(t, Window5kb, k)

	_, err = ParseKind("custom")
	assert.True(t, errors.Is(err, errs.ErrPrecondition))

	_, err = ParseKind("promoter")
	assert.True(t, errors.Is(err, errs.ErrPrecondition))

	assert.Contains(t, Names(), "10kb_outside_upstream")
	assert.NotContains(t, Names(), "custom")
}

func TestNewCustom_Validation(t *testing.T) {
	_, err := NewCustom("locus.tsv", nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = NewCustom("locus.tsv", []Region{{Chrom: "1", Start: 10, End: 5, GeneID: "G"}})
	var ie *errs.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.Line)

	def, err := NewCustom("locus.tsv", []Region{{Chrom: "chr1", Start: 0, End: 5, GeneID: "G"}})
	require.NoError(t, err)
	assert.Equal(t, "1", def.Regions[0].Chrom)
	assert.Equal(t, Custom, def.Kind)
}

func TestAssign_NearestTSS(t *testing.T) {
	ann := testAnnotation(t)
	peaks := []genome.Peak{
		{Chrom: "chr1", Start: 9000, End: 9100}, // G1 TSS 10000
		{Chrom: "1", Start: 24000, End: 24100},  // mid 24050: G1 (14050) beats G2 TSS 39999
		{Chrom: "1", Start: 39600, End: 39700},  // mid 39650: G3 TSS 39500 (150) vs G2 39999 (349)
		{Chrom: "2", Start: 100, End: 200},      // G4
		{Chrom: "chrUn", Start: 100, End: 200},  // dropped
		{Chrom: "chrUn", Start: 300, End: 400},  // dropped
	}
	a, err := NewAssigner(Builtin(NearestTSS)).Assign(peaks, ann)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"G1": 2, "G3": 1, "G4": 1}, geneSet(a))
	assert.Equal(t, 4, a.Report.TotalPeaks)
	assert.Equal(t, 4, a.Report.AssignedPeaks)
	assert.Equal(t, 2, a.Report.DroppedPeaks)
	assert.Equal(t, []string{"Un"}, a.Report.DroppedChroms)
	assert.Equal(t, []string{"G1", "G3", "G4"}, a.Genes())
	assert.Greater(t, a.Report.TSSDistance.Median, 0.0)
}

func TestAssign_NearestGene(t *testing.T) {
	ann := testAnnotation(t)
	peaks := []genome.Peak{
		{Chrom: "1", Start: 24000, End: 24100}, // G1 end 20000 (4051) vs G2 start 30000 (5950)
		{Chrom: "1", Start: 39600, End: 39700}, // inside G2 and G3 -> G2 (lower ID)
	}
	a, err := NewAssigner(Builtin(NearestGene)).Assign(peaks, ann)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"G1": 1, "G2": 1}, geneSet(a))
}

func TestAssign_Exon(t *testing.T) {
	ann := testAnnotation(t)
	peaks := []genome.Peak{
		{Chrom: "1", Start: 10400, End: 10600}, // exon 1 of G1
		{Chrom: "1", Start: 12000, End: 12200}, // intron of G1
		{Chrom: "1", Start: 39550, End: 39650}, // exon of G2 (G3 has no exons)
	}
	a, err := NewAssigner(Builtin(Exon)).Assign(peaks, ann)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"G1": 1, "G2": 1}, geneSet(a))
	assert.Equal(t, 1, a.Report.UnassignedPeaks)

	a, err = NewAssigner(Builtin(Intron)).Assign(peaks, ann)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"G1": 1}, geneSet(a))
}

func TestAssign_WindowAssignsMultipleGenes(t *testing.T) {
	ann := testAnnotation(t)
	// G2 TSS 39999, G3 TSS 39500: a peak at 39700-39800 lies in both 1kb windows.
	peaks := []genome.Peak{{Chrom: "1", Start: 39700, End: 39800}}
	a, err := NewAssigner(Builtin(Window1kb)).Assign(peaks, ann)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"G2": 1, "G3": 1}, geneSet(a))
	assert.Equal(t, 2, a.Report.Assignments)
	assert.Equal(t, 1, a.Report.AssignedPeaks)
}

func TestAssign_OverlapMode(t *testing.T) {
	ann := testAnnotation(t)
	// Midpoint 11100 is in the intron, but the peak overlaps exon 1 by 200bp.
	peaks := []genome.Peak{{Chrom: "1", Start: 10800, End: 11400}}

	as := NewAssigner(Builtin(Exon))
	a, err := as.Assign(peaks, ann)
	require.NoError(t, err)
	assert.Empty(t, a.ByGene)

	as.SetMode(Overlap)
	a, err = as.Assign(peaks, ann)
	require.NoError(t, err)
	require.Len(t, a.OverlapBP["G1"], 1)
	assert.Equal(t, int64(200), a.OverlapBP["G1"][0])
}

func TestAssign_OutsideUpstream(t *testing.T) {
	ann := genome.NewAnnotation()
	require.NoError(t, ann.AddGene(&genome.Gene{ID: "up", Chrom: "1", Start: 0, End: 1000, Strand: 1}))
	require.NoError(t, ann.AddGene(&genome.Gene{ID: "fwd", Chrom: "1", Start: 100000, End: 120000, Strand: 1}))
	ann.Freeze()

	// Region for fwd: [midpoint(0,100000)=50000, 100000-5000=95000)
	peaks := []genome.Peak{
		{Chrom: "1", Start: 60000, End: 60100},
		{Chrom: "1", Start: 97000, End: 97100}, // within 5kb, excluded
		{Chrom: "1", Start: 40000, End: 40100}, // closer to "up", in up's downstream: not upstream of fwd
	}
	a, err := NewAssigner(Builtin(Outside5kbUpstream)).Assign(peaks, ann)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"fwd": 1}, geneSet(a))
}

func TestAssign_Custom(t *testing.T) {
	ann := testAnnotation(t)
	def, err := NewCustom("custom.tsv", []Region{
		{Chrom: "1", Start: 0, End: 5000, GeneID: "G1"},
		{Chrom: "1", Start: 4000, End: 6000, GeneID: "G2"},
		{Chrom: "3", Start: 0, End: 100, GeneID: "NOVEL"},
	})
	require.NoError(t, err)

	peaks := []genome.Peak{
		{Chrom: "1", Start: 4400, End: 4600},
		{Chrom: "3", Start: 10, End: 20},
		{Chrom: "2", Start: 10, End: 20}, // no custom regions on chr2
	}
	a, err := NewAssigner(def).Assign(peaks, ann)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"G1": 1, "G2": 1, "NOVEL": 1}, geneSet(a))
	assert.Equal(t, 1, a.Report.DroppedPeaks)
}

func TestAssign_InvalidPeak(t *testing.T) {
	ann := testAnnotation(t)
	_, err := NewAssigner(Builtin(NearestTSS)).Assign([]genome.Peak{{Chrom: "1", Start: 10, End: 5}}, ann)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestAssign_DeterministicAndOrderIndependent(t *testing.T) {
	ann := testAnnotation(t)
	peaks := []genome.Peak{
		{Chrom: "1", Start: 9000, End: 9100},
		{Chrom: "1", Start: 39700, End: 39800},
		{Chrom: "1", Start: 15100, End: 15200},
		{Chrom: "2", Start: 7000, End: 7100},
	}
	reversed := make([]genome.Peak, len(peaks))
	for i, p := range peaks {
		reversed[len(peaks)-1-i] = p
	}

	coords := func(a *Assignment, ps []genome.Peak) map[string][]string {
		out := map[string][]string{}
		for id, idx := range a.ByGene {
			for _, i := range idx {
				out[id] = append(out[id], ps[i].String())
			}
		}
		return out
	}

	for _, k := range []Kind{NearestTSS, NearestGene, Exon, Window10kb} {
		as := NewAssigner(Builtin(k))
		a1, err := as.Assign(peaks, ann)
		require.NoError(t, err)
		a2, err := as.Assign(peaks, ann)
		require.NoError(t, err)
		a3, err := as.Assign(reversed, ann)
		require.NoError(t, err)

		assert.Equal(t, a1.ByGene, a2.ByGene, k.String())
		assert.Equal(t, coords(a1, peaks), coords(a3, reversed), k.String())
	}
}
