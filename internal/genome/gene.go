package genome

// Exon is a half-open exon interval of a gene.
type Exon struct {
	Start int64
	End   int64
}

// Gene represents a gene body with the covariates used for enrichment testing.
type Gene struct {
	ID          string  // stable identifier (e.g., Entrez or Ensembl ID)
	Symbol      string  // gene symbol, optional
	Chrom       string  // chromosome, normalized without "chr"
	Start       int64   // 0-based start
	End         int64   // 0-based exclusive end
	Strand      int8    // +1 (forward) or -1 (reverse)
	Length      int64   // locus length used as covariate; gene body length when unset
	Mappability float64 // mappability score in [0,1]
	Exons       []Exon  // sorted by start, optional
}

// IsForwardStrand returns true if the gene is on the forward strand.
func (g *Gene) IsForwardStrand() bool {
	return g.Strand >= 0
}

// IsReverseStrand returns true if the gene is on the reverse strand.
func (g *Gene) IsReverseStrand() bool {
	return g.Strand < 0
}

// TSS returns the transcription start site.
func (g *Gene) TSS() int64 {
	if g.IsReverseStrand() {
		return g.End - 1
	}
	return g.Start
}

// Contains returns true if pos lies within the gene body.
func (g *Gene) Contains(pos int64) bool {
	return pos >= g.Start && pos < g.End
}

// Distance returns the distance from pos to the gene body, 0 inside.
func (g *Gene) Distance(pos int64) int64 {
	switch {
	case pos < g.Start:
		return g.Start - pos
	case pos >= g.End:
		return pos - g.End + 1
	}
	return 0
}

// CovariateLength returns Length, falling back to the gene body length.
func (g *Gene) CovariateLength() int64 {
	if g.Length > 0 {
		return g.Length
	}
	return g.End - g.Start
}

// Introns returns the gaps between consecutive exons.
func (g *Gene) Introns() []Exon {
	if len(g.Exons) < 2 {
		return nil
	}
	introns := make([]Exon, 0, len(g.Exons)-1)
	for i := 1; i < len(g.Exons); i++ {
		if g.Exons[i].Start > g.Exons[i-1].End {
			introns = append(introns, Exon{Start: g.Exons[i-1].End, End: g.Exons[i].Start})
		}
	}
	return introns
}
