// Package locus assigns peaks to genes under a locus definition.
package locus

import (
	"fmt"
	"strings"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
)

// Kind enumerates the built-in locus definitions.
type Kind int

const (
	NearestTSS Kind = iota
	NearestGene
	Exon
	Intron
	Window1kb
	Window5kb
	Window10kb
	Outside1kbUpstream
	Outside5kbUpstream
	Outside10kbUpstream
	Custom
)

var kindNames = map[Kind]string{
	NearestTSS:          "nearest_tss",
	NearestGene:         "nearest_gene",
	Exon:                "exon",
	Intron:              "intron",
	Window1kb:           "1kb",
	Window5kb:           "5kb",
	Window10kb:          "10kb",
	Outside1kbUpstream:  "1kb_outside_upstream",
	Outside5kbUpstream:  "5kb_outside_upstream",
	Outside10kbUpstream: "10kb_outside_upstream",
	Custom:              "custom",
}

// String returns the canonical name of the locus definition.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// OneToOne reports whether every assigned peak maps to exactly one gene.
func (k Kind) OneToOne() bool {
	return k == NearestTSS || k == NearestGene
}

// window returns the flank size for TSS window definitions.
func (k Kind) window() int64 {
	switch k {
	case Window1kb, Outside1kbUpstream:
		return 1000
	case Window5kb, Outside5kbUpstream:
		return 5000
	case Window10kb, Outside10kbUpstream:
		return 10000
	}
	return 0
}

// ParseKind resolves a built-in locus definition name. "custom" is not
// accepted here; custom definitions are built with NewCustom.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, s := range kindNames {
		if k != Custom && s == n {
			return k, nil
		}
	}
	return 0, errs.Preconditionf("unsupported locus definition %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the built-in definition names in declaration order.
func Names() []string {
	names := make([]string, 0, len(kindNames)-1)
	for k := NearestTSS; k < Custom; k++ {
		names = append(names, kindNames[k])
	}
	return names
}

// Region is one row of a custom locus definition table.
type Region struct {
	Chrom  string
	Start  int64
	End    int64
	GeneID string
}

// Definition is a built-in locus definition or a custom region table.
type Definition struct {
	Kind    Kind
	Name    string   // display name; the custom table's source for Custom
	Regions []Region // only for Custom
}

// Builtin returns the definition for a built-in kind.
func Builtin(k Kind) Definition {
	return Definition{Kind: k, Name: k.String()}
}

// NewCustom validates regions and returns a custom definition.
func NewCustom(name string, regions []Region) (Definition, error) {
	if len(regions) == 0 {
		return Definition{}, errs.Invalid(name, "", "custom locus definition has no regions")
	}
	out := make([]Region, len(regions))
	for i, r := range regions {
		if r.Chrom == "" {
			return Definition{}, &errs.InputError{Source: name, Line: i + 2, Column: "chr", Reason: "empty chromosome"}
		}
		if r.GeneID == "" {
			return Definition{}, &errs.InputError{Source: name, Line: i + 2, Column: "gene_id", Reason: "empty gene identifier"}
		}
		if r.Start < 0 || r.End <= r.Start {
			return Definition{}, &errs.InputError{Source: name, Line: i + 2, Column: "end", Reason: fmt.Sprintf("invalid region %d-%d", r.Start, r.End)}
		}
		r.Chrom = genome.NormalizeChrom(r.Chrom)
		out[i] = r
	}
	return Definition{Kind: Custom, Name: name, Regions: out}, nil
}

// Parse resolves a definition name, or builds a custom definition when regions are given.
func Parse(name string, regions []Region) (Definition, error) {
	if len(regions) > 0 {
		return NewCustom(name, regions)
	}
	k, err := ParseKind(name)
	if err != nil {
		return Definition{}, err
	}
	return Builtin(k), nil
}
