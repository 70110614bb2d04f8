package loader

import (
	"fmt"
	"io"

	"github.com/inodb/peakenrich/internal/covariate"
	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/locus"
)

type mappaRecord struct {
	GeneID string `csv:"gene_id"`
	Mappa  string `csv:"mappa"`
}

type regionRecord struct {
	Chrom  string `csv:"chr"`
	Start  string `csv:"start"`
	End    string `csv:"end"`
	GeneID string `csv:"gene_id"`
}

var geneIDAlias = map[string]string{"geneid": "gene_id"}

// LoadMappability reads a custom mappability table (optionally gzipped).
func LoadMappability(path string) (covariate.Mappability, error) {
	rc, err := open(path)
	if err != nil {
		return covariate.Mappability{}, err
	}
	defer rc.Close()
	return ReadMappability(rc, path)
}

// ReadMappability parses a table with columns gene_id (or geneid) and mappa.
// Every score must parse and lie in [0,1].
func ReadMappability(r io.Reader, source string) (covariate.Mappability, error) {
	var records []*mappaRecord
	lines, err := readTSV(r, source, geneIDAlias, []string{"gene_id", "mappa"}, &records)
	if err != nil {
		return covariate.Mappability{}, err
	}

	table := make(map[string]float64, len(records))
	for i, rec := range records {
		p := fieldParser{source: source, line: lines[i]}
		id := p.required("gene_id", rec.GeneID)
		v := p.optFloat("mappa", rec.Mappa)
		if p.err == nil && !v.Valid {
			p.fail("mappa", "missing value")
		}
		if p.err == nil && (v.Float64 < 0 || v.Float64 > 1) {
			p.fail("mappa", "mappability must lie in [0,1]")
		}
		if _, dup := table[id]; p.err == nil && dup {
			p.fail("gene_id", "duplicate gene "+id)
		}
		if p.err != nil {
			return covariate.Mappability{}, p.err
		}
		table[id] = v.Float64
	}
	return covariate.CustomMappability(source, table)
}

// LoadLocus reads a custom locus definition table (optionally gzipped).
func LoadLocus(path string) (locus.Definition, error) {
	rc, err := open(path)
	if err != nil {
		return locus.Definition{}, err
	}
	defer rc.Close()
	return ReadLocus(rc, path)
}

// ReadLocus parses a table with columns chr, start, end and gene_id (or
// geneid). Coordinates are 0-based half-open.
func ReadLocus(r io.Reader, source string) (locus.Definition, error) {
	var records []*regionRecord
	lines, err := readTSV(r, source, geneIDAlias, []string{"chr", "start", "end", "gene_id"}, &records)
	if err != nil {
		return locus.Definition{}, err
	}
	if len(records) == 0 {
		return locus.Definition{}, errs.Invalid(source, "", "no regions")
	}

	regions := make([]locus.Region, len(records))
	for i, rec := range records {
		p := fieldParser{source: source, line: lines[i]}
		regions[i] = locus.Region{
			Chrom:  p.required("chr", rec.Chrom),
			Start:  p.parseInt("start", rec.Start),
			End:    p.parseInt("end", rec.End),
			GeneID: p.required("gene_id", rec.GeneID),
		}
		if p.err == nil && (regions[i].Start < 0 || regions[i].End <= regions[i].Start) {
			p.fail("end", fmt.Sprintf("invalid region %d-%d", regions[i].Start, regions[i].End))
		}
		if p.err != nil {
			return locus.Definition{}, p.err
		}
	}
	return locus.NewCustom(source, regions)
}
