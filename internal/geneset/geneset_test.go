package geneset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabase(t *testing.T) {
	db := New("custom")
	db.Add("GS2", "g3")
	db.Add("GS1", "g2")
	db.Add("GS1", "g1")
	db.Add("GS1", "g1")
	db.SetDescription("GS1", "first set")

	assert.Equal(t, 2, db.Len())
	assert.Equal(t, []string{"GS1", "GS2"}, db.IDs())
	assert.Equal(t, []string{"g1", "g2"}, db.Genes("GS1"))
	assert.True(t, db.Contains("GS2", "g3"))
	assert.False(t, db.Contains("GS2", "g1"))
	assert.False(t, db.Contains("missing", "g1"))
	assert.Equal(t, "first set", db.Description("GS1"))
	assert.Equal(t, "", db.Description("GS2"))
	assert.Empty(t, db.Genes("missing"))
}
