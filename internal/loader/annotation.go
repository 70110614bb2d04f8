package loader

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
)

// geneRecord is one row of a gene annotation table.
type geneRecord struct {
	GeneID     string `csv:"gene_id"`
	Symbol     string `csv:"symbol"`
	Chrom      string `csv:"chr"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	Strand     string `csv:"strand"`
	Length     string `csv:"length"`
	Mappa      string `csv:"mappa"`
	ExonStarts string `csv:"exon_starts"`
	ExonEnds   string `csv:"exon_ends"`
}

var annotationAliases = map[string]string{
	"geneid":     "gene_id",
	"chrom":      "chr",
	"txStart":    "start",
	"txEnd":      "end",
	"exonStarts": "exon_starts",
	"exonEnds":   "exon_ends",
}

// LoadAnnotation reads a gene annotation TSV (optionally gzipped).
func LoadAnnotation(path string, readLength int) (*genome.Annotation, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadAnnotation(rc, path, readLength)
}

// ReadAnnotation parses a gene annotation table with columns gene_id, chr,
// start, end (0-based half-open) and optional symbol, strand, length, mappa
// and comma-separated exon_starts/exon_ends. With a positive readLength the
// mappability column is mappa_<readLength>. Missing mappability reads as 1.
func ReadAnnotation(r io.Reader, source string, readLength int) (*genome.Annotation, error) {
	aliases := make(map[string]string, len(annotationAliases)+1)
	for k, v := range annotationAliases {
		aliases[k] = v
	}
	required := []string{"gene_id", "chr", "start", "end"}
	if readLength > 0 {
		col := fmt.Sprintf("mappa_%d", readLength)
		aliases[col] = "mappa"
		required = append(required, "mappa")
	}

	var records []*geneRecord
	lines, err := readTSV(r, source, aliases, required, &records)
	if err != nil {
		return nil, err
	}

	ann := genome.NewAnnotation()
	for i, rec := range records {
		g, err := rec.gene(source, lines[i])
		if err != nil {
			return nil, err
		}
		if err := ann.AddGene(g); err != nil {
			return nil, &errs.InputError{Source: source, Line: lines[i], Column: "gene_id", Reason: err.Error()}
		}
	}
	if ann.GeneCount() == 0 {
		return nil, errs.Invalid(source, "", "no genes")
	}
	return ann.Freeze(), nil
}

func (rec *geneRecord) gene(source string, line int) (*genome.Gene, error) {
	p := fieldParser{source: source, line: line}
	g := &genome.Gene{
		ID:          p.required("gene_id", rec.GeneID),
		Symbol:      strings.TrimSpace(rec.Symbol),
		Chrom:       p.required("chr", rec.Chrom),
		Start:       p.parseInt("start", rec.Start),
		End:         p.parseInt("end", rec.End),
		Strand:      parseStrand(rec.Strand),
		Mappability: 1,
	}
	if n := p.optInt("length", rec.Length); n.Valid {
		g.Length = n.Int64
	}
	if m := p.optFloat("mappa", rec.Mappa); m.Valid {
		g.Mappability = m.Float64
	}
	if rec.ExonStarts != "" || rec.ExonEnds != "" {
		exons, err := parseExons(rec.ExonStarts, rec.ExonEnds)
		if err != nil {
			p.fail("exon_starts", err.Error())
		}
		g.Exons = exons
	}
	if p.err != nil {
		return nil, p.err
	}
	return g, nil
}

// parseExons reads UCSC-style comma-separated exon boundaries.
func parseExons(starts, ends string) ([]genome.Exon, error) {
	s := splitList(starts)
	e := splitList(ends)
	if len(s) != len(e) {
		return nil, fmt.Errorf("%d exon starts but %d exon ends", len(s), len(e))
	}
	exons := make([]genome.Exon, len(s))
	for i := range s {
		start, err := strconv.ParseInt(s[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse exon start: %w", err)
		}
		end, err := strconv.ParseInt(e[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse exon end: %w", err)
		}
		if end <= start {
			return nil, fmt.Errorf("invalid exon %d-%d", start, end)
		}
		exons[i] = genome.Exon{Start: start, End: end}
	}
	sort.Slice(exons, func(i, j int) bool { return exons[i].Start < exons[j].Start })
	return exons, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(strings.TrimSpace(v), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseStrand converts strand string to int8.
func parseStrand(s string) int8 {
	switch strings.TrimSpace(s) {
	case "-", "-1":
		return -1
	}
	return 1
}
