package enrich

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// family is the response distribution of a generalized linear model with its
// canonical link.
type family int

const (
	binomial family = iota // logit link
	poisson                // log link
)

const (
	maxIRLSIter = 25
	irlsTol     = 1e-8
	muEps       = 1e-10
	maxEta      = 30.0
)

var (
	errNotConverged = errors.New("regression did not converge")
	errSingular     = errors.New("singular information matrix")
)

// glmFit is a fitted generalized linear model.
type glmFit struct {
	beta       []float64
	cov        *mat.SymDense // (X'WX)^-1 at convergence
	mu         []float64
	weights    []float64
	dispersion float64 // 1 for binomial, Pearson estimate for poisson
	iterations int
}

// modelMatrix is a dense row-major n x p design matrix.
type modelMatrix struct {
	n, p int
	data []float64
}

func newModelMatrix(n, p int) *modelMatrix {
	return &modelMatrix{n: n, p: p, data: make([]float64, n*p)}
}

func (m *modelMatrix) row(i int) []float64 {
	return m.data[i*m.p : (i+1)*m.p]
}

func (f family) linkinv(eta float64) float64 {
	switch f {
	case binomial:
		mu := 1 / (1 + math.Exp(-eta))
		return math.Min(math.Max(mu, muEps), 1-muEps)
	default:
		return math.Exp(math.Min(eta, maxEta))
	}
}

// variance is also the IRLS weight for canonical links.
func (f family) variance(mu float64) float64 {
	if f == binomial {
		return mu * (1 - mu)
	}
	return mu
}

func (f family) deviance(y, mu []float64) float64 {
	var dev float64
	for i := range y {
		switch f {
		case binomial:
			if y[i] > 0 {
				dev -= 2 * y[i] * math.Log(mu[i])
			}
			if y[i] < 1 {
				dev -= 2 * (1 - y[i]) * math.Log(1-mu[i])
			}
		default:
			if y[i] > 0 {
				dev += 2 * y[i] * math.Log(y[i]/mu[i])
			}
			dev -= 2 * (y[i] - mu[i])
		}
	}
	return dev
}

func (f family) initialMu(y float64) float64 {
	if f == binomial {
		return (y + 0.5) / 2
	}
	return y + 0.1
}

// fitGLM fits a GLM by iteratively reweighted least squares.
func fitGLM(x *modelMatrix, y []float64, fam family) (*glmFit, error) {
	n, p := x.n, x.p
	if n <= p {
		return nil, fmt.Errorf("%d observations for %d parameters", n, p)
	}

	mu := make([]float64, n)
	eta := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)
	for i := range y {
		mu[i] = fam.initialMu(y[i])
		if fam == binomial {
			eta[i] = math.Log(mu[i] / (1 - mu[i]))
		} else {
			eta[i] = math.Log(mu[i])
		}
	}

	xtwx := mat.NewSymDense(p, nil)
	xtwz := mat.NewVecDense(p, nil)
	beta := mat.NewVecDense(p, nil)
	var chol mat.Cholesky

	devOld := math.Inf(1)
	for iter := 1; iter <= maxIRLSIter; iter++ {
		for i := range y {
			w[i] = fam.variance(mu[i])
			z[i] = eta[i] + (y[i]-mu[i])/w[i]
		}
		accumulate(x, w, z, xtwx, xtwz)

		if ok := chol.Factorize(xtwx); !ok {
			return nil, errSingular
		}
		if err := chol.SolveVecTo(beta, xtwz); err != nil {
			return nil, fmt.Errorf("%w: %v", errSingular, err)
		}

		for i := 0; i < n; i++ {
			eta[i] = floats.Dot(x.row(i), beta.RawVector().Data)
			mu[i] = fam.linkinv(eta[i])
		}
		dev := fam.deviance(y, mu)
		if !isFinite(dev) {
			return nil, fmt.Errorf("non-finite deviance at iteration %d", iter)
		}

		if math.Abs(dev-devOld)/(math.Abs(dev)+0.1) < irlsTol {
			return finishFit(x, y, fam, mu, beta, iter)
		}
		devOld = dev
	}
	return nil, errNotConverged
}

// finishFit computes the covariance at the converged estimate.
func finishFit(x *modelMatrix, y []float64, fam family, mu []float64, beta *mat.VecDense, iter int) (*glmFit, error) {
	n, p := x.n, x.p
	w := make([]float64, n)
	for i := range mu {
		w[i] = fam.variance(mu[i])
	}
	xtwx := mat.NewSymDense(p, nil)
	accumulate(x, w, nil, xtwx, nil)

	fit := &glmFit{
		beta:       append([]float64(nil), beta.RawVector().Data...),
		mu:         mu,
		weights:    w,
		dispersion: 1,
		iterations: iter,
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(xtwx); !ok {
		return nil, errSingular
	}
	fit.cov = mat.NewSymDense(p, nil)
	if err := chol.InverseTo(fit.cov); err != nil {
		return nil, fmt.Errorf("%w: %v", errSingular, err)
	}

	if fam == poisson {
		var pearson float64
		for i := range y {
			r := y[i] - mu[i]
			pearson += r * r / mu[i]
		}
		fit.dispersion = pearson / float64(n-p)
	}
	return fit, nil
}

// accumulate computes X'WX and, when z is non-nil, X'Wz.
func accumulate(x *modelMatrix, w, z []float64, xtwx *mat.SymDense, xtwz *mat.VecDense) {
	p := x.p
	acc := make([]float64, p*p)
	vec := make([]float64, p)
	for i := 0; i < x.n; i++ {
		r := x.row(i)
		wi := w[i]
		for a := 0; a < p; a++ {
			wa := wi * r[a]
			for b := a; b < p; b++ {
				acc[a*p+b] += wa * r[b]
			}
			if z != nil {
				vec[a] += wa * z[i]
			}
		}
	}
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			xtwx.SetSym(a, b, acc[a*p+b])
		}
	}
	if xtwz != nil {
		for a := 0; a < p; a++ {
			xtwz.SetVec(a, vec[a])
		}
	}
}

// wald returns the coefficient j and its standard error, scaled by the
// dispersion.
func (f *glmFit) wald(j int) (coef, se float64) {
	return f.beta[j], math.Sqrt(f.cov.At(j, j) * f.dispersion)
}
