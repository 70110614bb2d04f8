package enrich

import (
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Result columns, in output order.
const (
	ColDatabase    = "Geneset.Type"
	ColGenesetID   = "Geneset.ID"
	ColDescription = "Description"
	ColPValue      = "P.value"
	ColFDR         = "FDR"
	ColStatus      = "Status"
	ColEffect      = "Effect"
	ColNGenes      = "N.Geneset.Genes"
	ColNPeakGenes  = "N.Geneset.Peak.Genes"
	ColPeakGenes   = "Geneset.Peak.Genes"
)

// Columns lists the result table columns in output order.
var Columns = []string{
	ColDatabase, ColGenesetID, ColDescription, ColPValue, ColFDR,
	ColStatus, ColEffect, ColNGenes, ColNPeakGenes, ColPeakGenes,
}

// Result is the outcome of one geneset test.
type Result struct {
	Database    string
	GenesetID   string
	Description string
	PValue      float64
	FDR         float64 // BH within Database
	Status      string
	Effect      float64
	NGenes      int
	NPeakGenes  int
	PeakGenes   []string
}

// Failure records a geneset excluded because its fit failed.
type Failure struct {
	Database  string
	GenesetID string
	Reason    string
}

// Run is the output of one enrichment run.
type Run struct {
	Method        Method
	Randomization Randomization
	Seed          uint64
	Results       []Result // sorted by PValue, then GenesetID
	Skipped       int      // genesets outside the size bounds
	Failures      []Failure
}

// Tested returns the number of genesets that reached a fit.
func (r *Run) Tested() int {
	return len(r.Results) + len(r.Failures)
}

// Result returns the result for a geneset ID.
func (r *Run) Result(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.GenesetID == id {
			return res, true
		}
	}
	return Result{}, false
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].PValue != results[j].PValue {
			return results[i].PValue < results[j].PValue
		}
		return results[i].GenesetID < results[j].GenesetID
	})
}

// Frame returns the result table as a dataframe with the columns in
// Columns order.
func (r *Run) Frame() dataframe.DataFrame {
	n := len(r.Results)
	db := make([]string, n)
	ids := make([]string, n)
	desc := make([]string, n)
	pv := make([]float64, n)
	fdr := make([]float64, n)
	status := make([]string, n)
	effect := make([]float64, n)
	ngenes := make([]int, n)
	npeak := make([]int, n)
	peakGenes := make([]string, n)
	for i, res := range r.Results {
		db[i] = res.Database
		ids[i] = res.GenesetID
		desc[i] = res.Description
		pv[i] = res.PValue
		fdr[i] = res.FDR
		status[i] = res.Status
		effect[i] = res.Effect
		ngenes[i] = res.NGenes
		npeak[i] = res.NPeakGenes
		peakGenes[i] = strings.Join(res.PeakGenes, ",")
	}
	return dataframe.New(
		series.New(db, series.String, ColDatabase),
		series.New(ids, series.String, ColGenesetID),
		series.New(desc, series.String, ColDescription),
		series.New(pv, series.Float, ColPValue),
		series.New(fdr, series.Float, ColFDR),
		series.New(status, series.String, ColStatus),
		series.New(effect, series.Float, ColEffect),
		series.New(ngenes, series.Int, ColNGenes),
		series.New(npeak, series.Int, ColNPeakGenes),
		series.New(peakGenes, series.String, ColPeakGenes),
	)
}
