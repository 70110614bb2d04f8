package locus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/peakenrich/internal/genome"
)

func TestBuildGeneIndex_Empty(t *testing.T) {
	idx := BuildGeneIndex(nil)
	assert.Empty(t, idx.FindContaining(100))
	assert.Nil(t, idx.Nearest(100))
}

func TestGeneIndex_FindContaining(t *testing.T) {
	genes := []*genome.Gene{
		{ID: "A", Start: 100, End: 300},
		{ID: "B", Start: 150, End: 250},
		{ID: "C", Start: 200, End: 400},
	}
	idx := BuildGeneIndex(genes)

	ids := func(gs []*genome.Gene) map[string]bool {
		m := map[string]bool{}
		for _, g := range gs {
			m[g.ID] = true
		}
		return m
	}

	assert.Equal(t, map[string]bool{"A": true, "B": true}, ids(idx.FindContaining(175)))
	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": true}, ids(idx.FindContaining(240)))
	assert.Equal(t, map[string]bool{"C": true}, ids(idx.FindContaining(350)))
	assert.Empty(t, idx.FindContaining(400), "end is exclusive")
	assert.Empty(t, idx.FindContaining(99))
}

func TestGeneIndex_MaxEndPruning(t *testing.T) {
	// A long gene followed by a short one; the long one must still be found.
	idx := BuildGeneIndex([]*genome.Gene{
		{ID: "long", Start: 100, End: 500},
		{ID: "short", Start: 105, End: 110},
	})
	found := idx.FindContaining(400)
	assert.Len(t, found, 1)
	assert.Equal(t, "long", found[0].ID)
}

func TestGeneIndex_Nearest(t *testing.T) {
	idx := BuildGeneIndex([]*genome.Gene{
		{ID: "A", Start: 100, End: 200},
		{ID: "B", Start: 400, End: 500},
		{ID: "C", Start: 300, End: 310},
	})

	assert.Equal(t, "A", idx.Nearest(150).ID, "inside A")
	assert.Equal(t, "A", idx.Nearest(210).ID)
	assert.Equal(t, "C", idx.Nearest(280).ID)
	assert.Equal(t, "B", idx.Nearest(600).ID)
	assert.Equal(t, "A", idx.Nearest(0).ID)
}

func TestGeneIndex_NearestTieBreaksOnID(t *testing.T) {
	// pos 250: distance to X (end 200) is 51, to Y (start 301) is 51.
	idx := BuildGeneIndex([]*genome.Gene{
		{ID: "Y", Start: 301, End: 400},
		{ID: "X", Start: 100, End: 200},
	})
	assert.Equal(t, "X", idx.Nearest(250).ID)

	// Overlapping genes at the same position: lowest ID wins.
	idx = BuildGeneIndex([]*genome.Gene{
		{ID: "g2", Start: 100, End: 200},
		{ID: "g1", Start: 150, End: 300},
	})
	assert.Equal(t, "g1", idx.Nearest(160).ID)
}

func TestGeneIndex_MatchesLinearScan(t *testing.T) {
	genes := []*genome.Gene{
		{ID: "A", Start: 1000, End: 5000},
		{ID: "B", Start: 2000, End: 3000},
		{ID: "C", Start: 4000, End: 8000},
		{ID: "D", Start: 6000, End: 7000},
		{ID: "E", Start: 9000, End: 10000},
	}
	idx := BuildGeneIndex(genes)

	for pos := int64(0); pos <= 11000; pos += 250 {
		var best *genome.Gene
		for _, g := range genes {
			if best == nil || g.Distance(pos) < best.Distance(pos) ||
				(g.Distance(pos) == best.Distance(pos) && g.ID < best.ID) {
				best = g
			}
		}
		assert.Equal(t, best.ID, idx.Nearest(pos).ID, "pos=%d", pos)
	}
}

func TestTSSIndex_Nearest(t *testing.T) {
	idx := BuildTSSIndex([]*genome.Gene{
		{ID: "fwd", Start: 1000, End: 2000, Strand: 1},  // TSS 1000
		{ID: "rev", Start: 3000, End: 5001, Strand: -1}, // TSS 5000
	})
	assert.Equal(t, "fwd", idx.Nearest(10).ID)
	assert.Equal(t, "fwd", idx.Nearest(2999).ID)
	assert.Equal(t, "rev", idx.Nearest(3001).ID)
	assert.Equal(t, "rev", idx.Nearest(9000).ID)
	// 3000 is equidistant (2000 each): lower ID wins.
	assert.Equal(t, "fwd", idx.Nearest(3000).ID)
}

func TestTSSIndex_SharedTSS(t *testing.T) {
	idx := BuildTSSIndex([]*genome.Gene{
		{ID: "b", Start: 100, End: 200, Strand: 1},
		{ID: "a", Start: 100, End: 300, Strand: 1},
		{ID: "c", Start: 500, End: 900, Strand: 1},
	})
	assert.Equal(t, "a", idx.Nearest(120).ID)
	assert.Equal(t, "a", idx.Nearest(250).ID)
	assert.Equal(t, "c", idx.Nearest(400).ID)
}

func TestTSSIndex_Neighbors(t *testing.T) {
	idx := BuildTSSIndex([]*genome.Gene{
		{ID: "a", Start: 100, End: 200, Strand: 1},
		{ID: "b", Start: 500, End: 600, Strand: 1},
	})
	prev, okPrev, next, okNext := idx.neighbors(500)
	assert.True(t, okPrev)
	assert.Equal(t, int64(100), prev)
	assert.False(t, okNext)
	_ = next

	_, okPrev, next, okNext = idx.neighbors(100)
	assert.False(t, okPrev)
	assert.True(t, okNext)
	assert.Equal(t, int64(500), next)
}
