package enrich

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inodb/peakenrich/internal/covariate"
)

// outcome is the statistic of one geneset test. A positive effect means the
// geneset has more peaks than expected.
type outcome struct {
	pvalue float64
	effect float64
}

// tester runs one method against a fixed design. Implementations are
// read-only after construction and safe for concurrent use.
type tester interface {
	test(members []int) (outcome, error)
}

var (
	errDegenerate = errors.New("degenerate test statistic")
	errNoContrast = errors.New("geneset membership does not vary across design genes")
)

// collinearTol is the smallest membership information, relative to the
// summed weights of the members, that is not treated as zero.
const collinearTol = 1e-8

// constantMembership reports whether members covers none or all of n
// genes. Members are distinct design rows.
func constantMembership(members []int, n int) bool {
	return len(members) == 0 || len(members) >= n
}

func newTester(m Method, d *covariate.Design) (tester, error) {
	n := d.Len()
	hasPeak := make([]float64, n)
	counts := make([]float64, n)
	logLength := make([]float64, n)
	for i, r := range d.Rows {
		if r.HasPeak {
			hasPeak[i] = 1
		}
		counts[i] = float64(r.PeakCount)
		logLength[i] = r.LogLength
	}
	basis := splineBasis(logLength)

	switch m {
	case Presence:
		return &glmTester{fam: binomial, y: hasPeak, basis: basis}, nil
	case Count:
		return &glmTester{fam: poisson, y: counts, basis: basis}, nil
	case PresenceApprox:
		return newScoreTester(binomial, hasPeak, basis)
	case CountApprox:
		return newScoreTester(poisson, counts, basis)
	case Fisher:
		t := &fisherTester{hasPeak: make([]bool, n)}
		for i, v := range hasPeak {
			t.hasPeak[i] = v > 0
			if v > 0 {
				t.withPeak++
			}
		}
		return t, nil
	}
	return nil, fmt.Errorf("no tester for method %s", m)
}

// twoSided returns the two-sided normal p-value of z.
func twoSided(z float64) float64 {
	return math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
}

// nullMatrix returns [1, basis...] for every gene, with extra empty columns
// inserted after the intercept.
func nullMatrix(basis [][]float64, n, extra int) *modelMatrix {
	x := newModelMatrix(n, 1+extra+len(basis))
	for i := 0; i < n; i++ {
		r := x.row(i)
		r[0] = 1
		for j, col := range basis {
			r[1+extra+j] = col[i]
		}
	}
	return x
}

// glmTester refits the full model per geneset and tests membership with a
// Wald test.
type glmTester struct {
	fam   family
	y     []float64
	basis [][]float64
}

func (t *glmTester) test(members []int) (outcome, error) {
	if constantMembership(members, len(t.y)) {
		return outcome{}, errNoContrast
	}
	x := nullMatrix(t.basis, len(t.y), 1)
	for _, i := range members {
		x.row(i)[1] = 1
	}

	fit, err := fitGLM(x, t.y, t.fam)
	if err != nil {
		return outcome{}, err
	}
	coef, se := fit.wald(1)
	if !isFinite(coef) || !isFinite(se) || se <= 0 {
		return outcome{}, errDegenerate
	}
	return outcome{pvalue: twoSided(coef / se), effect: coef}, nil
}

// scoreTester tests membership against a null model fit once per run.
type scoreTester struct {
	x0         *modelMatrix
	resid      []float64
	weights    []float64
	cov        *mat.SymDense
	dispersion float64
}

func newScoreTester(fam family, y []float64, basis [][]float64) (*scoreTester, error) {
	x0 := nullMatrix(basis, len(y), 0)
	fit, err := fitGLM(x0, y, fam)
	if err != nil {
		return nil, fmt.Errorf("fit null model: %w", err)
	}
	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = y[i] - fit.mu[i]
	}
	return &scoreTester{
		x0:         x0,
		resid:      resid,
		weights:    fit.weights,
		cov:        fit.cov,
		dispersion: fit.dispersion,
	}, nil
}

func (t *scoreTester) test(members []int) (outcome, error) {
	if constantMembership(members, len(t.resid)) {
		return outcome{}, errNoContrast
	}
	q := t.x0.p
	b := make([]float64, q)
	var u, wsum float64
	for _, i := range members {
		u += t.resid[i]
		wsum += t.weights[i]
		floats.AddScaled(b, t.weights[i], t.x0.row(i))
	}
	bv := mat.NewVecDense(q, b)
	info := wsum - mat.Inner(bv, t.cov, bv)
	if info <= collinearTol*wsum {
		// Membership lies in the span of the null design.
		return outcome{}, errSingular
	}
	v := info * t.dispersion
	if !isFinite(v) || v <= 0 {
		return outcome{}, errDegenerate
	}
	return outcome{pvalue: twoSided(u / math.Sqrt(v)), effect: u / info}, nil
}
