package covariate

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
	"github.com/inodb/peakenrich/internal/locus"
)

func testAnnotation(t *testing.T) *genome.Annotation {
	t.Helper()
	ann := genome.NewAnnotation()
	require.NoError(t, ann.AddGene(&genome.Gene{ID: "A", Chrom: "1", Start: 0, End: 1000, Strand: 1, Mappability: 0.5}))
	require.NoError(t, ann.AddGene(&genome.Gene{ID: "B", Chrom: "1", Start: 5000, End: 15000, Strand: 1, Mappability: 1}))
	require.NoError(t, ann.AddGene(&genome.Gene{ID: "C", Chrom: "2", Start: 0, End: 100, Strand: -1, Length: 10000, Mappability: 0}))
	return ann.Freeze()
}

func testAssignment() *locus.Assignment {
	return &locus.Assignment{
		ByGene:    map[string][]int{"A": {0, 1, 2}, "B": {3}, "GHOST": {4}},
		OverlapBP: map[string][]int64{"A": {10, 20, 30}, "B": {100}, "GHOST": {5}},
	}
}

func TestAggregate_NoMappability(t *testing.T) {
	d, err := NewAggregator(2, NoMappability()).Aggregate(testAssignment(), testAnnotation(t))
	require.NoError(t, err)
	require.Equal(t, 3, d.Len(), "zero-peak genes are included, unknown genes are not")

	a := d.Rows[0]
	assert.Equal(t, "A", a.GeneID)
	assert.Equal(t, 3, a.PeakCount)
	assert.Equal(t, int64(60), a.TotalPeakWidth)
	assert.True(t, a.HasPeak)
	assert.InDelta(t, 3.0, a.LogLength, 1e-12)

	b := d.Rows[1]
	assert.Equal(t, 1, b.PeakCount)
	assert.False(t, b.HasPeak, "below threshold 2")

	c := d.Rows[2]
	assert.Equal(t, 0, c.PeakCount)
	assert.Equal(t, int64(10000), c.Length, "explicit length overrides body length")
	assert.Equal(t, 1, d.GenesWithPeaks())

	i, ok := d.Index("B")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestAggregate_PresetMappability(t *testing.T) {
	m, err := PresetMappability(36)
	require.NoError(t, err)

	d, err := NewAggregator(1, m).Aggregate(testAssignment(), testAnnotation(t))
	require.NoError(t, err)
	require.Equal(t, 2, d.Len(), "gene C has zero mappable length")
	assert.InDelta(t, math.Log10(500), d.Rows[0].LogLength, 1e-12)
	assert.Equal(t, 0.5, d.Rows[0].Mappability)
}

func TestPresetMappability_Unsupported(t *testing.T) {
	_, err := PresetMappability(33)
	assert.True(t, errors.Is(err, errs.ErrPrecondition))
}

func TestCustomMappability(t *testing.T) {
	_, err := CustomMappability("m.tsv", map[string]float64{"A": 1.2})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = CustomMappability("m.tsv", map[string]float64{"A": math.NaN()})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = CustomMappability("m.tsv", nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	m, err := CustomMappability("m.tsv", map[string]float64{"A": 0.1, "B": 0.9})
	require.NoError(t, err)
	assert.Equal(t, "custom:m.tsv", m.String())

	d, err := NewAggregator(1, m).Aggregate(testAssignment(), testAnnotation(t))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len(), "C has no custom score")
	assert.InDelta(t, math.Log10(100), d.Rows[0].LogLength, 1e-12)
	assert.InDelta(t, math.Log10(9000), d.Rows[1].LogLength, 1e-12)
}

func TestAggregate_InvalidPresetScore(t *testing.T) {
	ann := genome.NewAnnotation()
	require.NoError(t, ann.AddGene(&genome.Gene{ID: "A", Chrom: "1", Start: 0, End: 10, Mappability: 2}))
	ann.Freeze()
	m, err := PresetMappability(50)
	require.NoError(t, err)

	_, err = NewAggregator(1, m).Aggregate(&locus.Assignment{}, ann)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestDesign_Permute(t *testing.T) {
	d, err := NewAggregator(1, NoMappability()).Aggregate(testAssignment(), testAnnotation(t))
	require.NoError(t, err)

	p, err := d.Permute([]int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "A", p.Rows[0].GeneID)
	assert.Equal(t, 0, p.Rows[0].PeakCount, "A receives C's payload")
	assert.Equal(t, 3, p.Rows[1].PeakCount, "B receives A's payload")
	assert.Equal(t, d.Rows[0].LogLength, p.Rows[0].LogLength, "covariates stay")
	assert.Equal(t, 3, d.Rows[0].PeakCount, "original untouched")

	_, err = d.Permute([]int{0})
	assert.Error(t, err)
}
