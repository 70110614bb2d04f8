package hybrid

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/errs"
)

// StatusInconsistent marks genesets whose two inputs disagree on direction.
const StatusInconsistent = "Inconsistent"

// Hybrid columns, appended after the first input's remaining columns.
const (
	ColPValueX      = "P.value.x"
	ColPValueY      = "P.value.y"
	ColPValueHybrid = "P.value.Hybrid"
	ColFDRHybrid    = "FDR.Hybrid"
	ColStatusX      = "Status.x"
	ColStatusY      = "Status.y"
	ColStatusHybrid = "Status.Hybrid"
)

// Row is one combined geneset.
type Row struct {
	GenesetID string
	PValueX   float64
	PValueY   float64
	PValue    float64 // 2*min(x, y), not clamped to 1
	FDR       float64
	StatusX   string
	StatusY   string
	Status    string // empty when either input has no Status column
}

// Result is the hybrid table.
type Result struct {
	Rows      []Row // sorted by PValue, then GenesetID
	Matched   int
	HasStatus bool
	Frame     dataframe.DataFrame
}

// Combiner joins two result tables.
type Combiner struct {
	logger *zap.Logger
}

// NewCombiner creates a combiner.
func NewCombiner() *Combiner {
	return &Combiner{logger: zap.NewNop()}
}

// SetLogger sets the logger for the combiner.
func (c *Combiner) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Combine is shorthand for NewCombiner().Combine(x, y).
func Combine(x, y Source) (*Result, error) {
	return NewCombiner().Combine(x, y)
}

// side is one resolved input.
type side struct {
	label  string
	df     dataframe.DataFrame
	ids    []string
	pvals  []float64
	status []string // nil without a Status column
	index  map[string]int
}

func load(s Source, fallback string) (*side, error) {
	label := s.label
	if label == "" {
		label = fallback
	}
	df, err := s.resolve(label)
	if err != nil {
		return nil, err
	}

	sd := &side{
		label: label,
		df:    df,
		ids:   df.Col(enrich.ColGenesetID).Records(),
		pvals: df.Col(enrich.ColPValue).Float(),
		index: make(map[string]int, df.Nrow()),
	}
	if hasColumn(df, enrich.ColStatus) {
		sd.status = df.Col(enrich.ColStatus).Records()
	}
	for i, id := range sd.ids {
		if _, dup := sd.index[id]; dup {
			return nil, errs.Invalid(label, enrich.ColGenesetID, fmt.Sprintf("duplicate geneset %q", id))
		}
		p := sd.pvals[i]
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, errs.Invalid(label, enrich.ColPValue, fmt.Sprintf("geneset %q: p-value %v outside [0,1]", id, p))
		}
		sd.index[id] = i
	}
	return sd, nil
}

// Combine inner-joins x and y on Geneset.ID. The hybrid p-value is twice the
// smaller input p-value and FDR.Hybrid is Benjamini-Hochberg over the joined
// genesets only. Status.Hybrid is produced only when both inputs carry a
// Status column.
func (c *Combiner) Combine(x, y Source) (*Result, error) {
	sx, err := load(x, "x")
	if err != nil {
		return nil, err
	}
	sy, err := load(y, "y")
	if err != nil {
		return nil, err
	}
	hasStatus := sx.status != nil && sy.status != nil

	var rows []Row
	var xrows []int
	for i, id := range sx.ids {
		j, ok := sy.index[id]
		if !ok {
			continue
		}
		r := Row{
			GenesetID: id,
			PValueX:   sx.pvals[i],
			PValueY:   sy.pvals[j],
		}
		r.PValue = 2 * math.Min(r.PValueX, r.PValueY)
		if hasStatus {
			r.StatusX, r.StatusY = sx.status[i], sy.status[j]
			r.Status = combineStatus(r.StatusX, r.StatusY)
		}
		rows = append(rows, r)
		xrows = append(xrows, i)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("combine %s and %s: %w", sx.label, sy.label, errs.ErrNoCommonGenesets)
	}

	p := make([]float64, len(rows))
	for i, r := range rows {
		p[i] = r.PValue
	}
	for i, q := range enrich.AdjustBH(p) {
		rows[i].FDR = q
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := rows[order[a]], rows[order[b]]
		if ra.PValue != rb.PValue {
			return ra.PValue < rb.PValue
		}
		return ra.GenesetID < rb.GenesetID
	})
	sorted := make([]Row, len(rows))
	subset := make([]int, len(rows))
	for k, i := range order {
		sorted[k] = rows[i]
		subset[k] = xrows[i]
	}

	frame, err := buildFrame(sx.df, subset, sorted, hasStatus)
	if err != nil {
		return nil, err
	}

	c.logger.Info("combined result tables",
		zap.String("x", sx.label),
		zap.String("y", sy.label),
		zap.Int("x_genesets", len(sx.ids)),
		zap.Int("y_genesets", len(sy.ids)),
		zap.Int("matched", len(sorted)),
		zap.Bool("status", hasStatus))

	return &Result{Rows: sorted, Matched: len(sorted), HasStatus: hasStatus, Frame: frame}, nil
}

func combineStatus(a, b string) string {
	if a == b {
		return a
	}
	return StatusInconsistent
}

// buildFrame keeps the first input's columns except P.value and Status, in
// their original order, and appends the hybrid columns.
func buildFrame(df dataframe.DataFrame, subset []int, rows []Row, hasStatus bool) (dataframe.DataFrame, error) {
	var keep []string
	for _, n := range df.Names() {
		if n != enrich.ColPValue && n != enrich.ColStatus {
			keep = append(keep, n)
		}
	}
	out := df.Subset(subset).Select(keep)

	n := len(rows)
	px, py, ph, fdr := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, r := range rows {
		px[i], py[i], ph[i], fdr[i] = r.PValueX, r.PValueY, r.PValue, r.FDR
	}
	out = out.Mutate(series.New(px, series.Float, ColPValueX)).
		Mutate(series.New(py, series.Float, ColPValueY)).
		Mutate(series.New(ph, series.Float, ColPValueHybrid)).
		Mutate(series.New(fdr, series.Float, ColFDRHybrid))

	if hasStatus {
		sx, sy, sh := make([]string, n), make([]string, n), make([]string, n)
		for i, r := range rows {
			sx[i], sy[i], sh[i] = r.StatusX, r.StatusY, r.Status
		}
		out = out.Mutate(series.New(sx, series.String, ColStatusX)).
			Mutate(series.New(sy, series.String, ColStatusY)).
			Mutate(series.New(sh, series.String, ColStatusHybrid))
	}
	if out.Err != nil {
		return out, fmt.Errorf("build hybrid table: %w", out.Err)
	}
	return out, nil
}
