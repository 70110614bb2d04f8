// Package geneset provides the geneset database consumed by enrichment tests.
package geneset

import (
	"sort"
)

// Database maps geneset identifiers to their member genes.
type Database struct {
	Name         string
	sets         map[string]map[string]struct{}
	descriptions map[string]string
}

// New creates an empty database.
func New(name string) *Database {
	return &Database{
		Name:         name,
		sets:         make(map[string]map[string]struct{}),
		descriptions: make(map[string]string),
	}
}

// Add records gene as a member of geneset id. Duplicate memberships are ignored.
func (d *Database) Add(id, gene string) {
	members, ok := d.sets[id]
	if !ok {
		members = make(map[string]struct{})
		d.sets[id] = members
	}
	members[gene] = struct{}{}
}

// SetDescription sets the human-readable description for a geneset.
func (d *Database) SetDescription(id, desc string) {
	d.descriptions[id] = desc
}

// Description returns the description for id, or "" when unknown.
func (d *Database) Description(id string) string {
	return d.descriptions[id]
}

// IDs returns all geneset identifiers in sorted order.
func (d *Database) IDs() []string {
	ids := make([]string, 0, len(d.sets))
	for id := range d.sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Genes returns the members of a geneset in sorted order.
func (d *Database) Genes(id string) []string {
	members := d.sets[id]
	genes := make([]string, 0, len(members))
	for g := range members {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}

// Contains reports whether gene belongs to geneset id.
func (d *Database) Contains(id, gene string) bool {
	_, ok := d.sets[id][gene]
	return ok
}

// Len returns the number of genesets.
func (d *Database) Len() int {
	return len(d.sets)
}
