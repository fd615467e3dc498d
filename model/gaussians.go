package model

import (
	"math"
	"math/rand"

	"go-ml.dev/pkg/gmminr/config"
	"go-ml.dev/pkg/zorros/zorros"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"
)

/*
GaussianField is a mixture of anisotropic Gaussians carrying feature vectors

Shapes hold precision matrices with the Precision strategy and covariance
matrices with the Covariance strategy. All shape matrices share one backing
array of N·D·D values.
*/
type GaussianField struct {
	N, D, F  int
	Strategy config.Strategy
	Centers  *mat.Dense // N×D
	Shapes   []*mat.Dense
	Features *mat.Dense // N×F
	Scale    float64

	shapes []float64
}

/*
NewGaussianField draws centres uniform in [-1,1]^D and covariances Q·S·Qᵀ

S is the identity scaled by 1/N and Q is a Householder reflection about a
random direction. Every initial covariance is checked to be positive
definite.
*/
func NewGaussianField(opts config.Options, rng *rand.Rand) (*GaussianField, error) {
	g := &GaussianField{N: opts.NGaussians, D: opts.NDims, F: opts.NFeatures, Strategy: opts.Strategy, Scale: 1}
	if g.N == 0 {
		return g, nil
	}
	if opts.FeatureScale {
		g.Scale = math.Sqrt(6 / float64(g.N))
	}
	g.Centers = mat.NewDense(g.N, g.D, nil)
	uniform(rng, g.Centers.RawMatrix().Data, 1)

	dd := g.D * g.D
	g.shapes = make([]float64, g.N*dd)
	g.Shapes = make([]*mat.Dense, g.N)
	s := mat.NewDense(g.D, g.D, nil)
	for i := 0; i < g.D; i++ {
		s.Set(i, i, 1/float64(g.N))
	}
	for k := range g.Shapes {
		g.Shapes[k] = mat.NewDense(g.D, g.D, g.shapes[k*dd:(k+1)*dd])
		cov := householderCovariance(s, rng)
		if g.Strategy == config.Covariance {
			g.Shapes[k].Copy(cov)
		} else if err := g.Shapes[k].Inverse(cov); err != nil {
			return nil, zorros.Wrapf(err, "failed to invert covariance of gaussian %d", k)
		}
	}

	g.Features = mat.NewDense(g.N, g.F, nil)
	if g.Strategy == config.Covariance {
		uniform(rng, g.Features.RawMatrix().Data, 1)
	} else {
		normal(rng, g.Features.RawMatrix().Data, 1)
	}

	if err := g.CheckPositiveDefinite(); err != nil {
		return nil, zorros.Trace(err)
	}
	return g, nil
}

func householderCovariance(s *mat.Dense, rng *rand.Rand) *mat.Dense {
	d, _ := s.Dims()
	v := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		v.SetVec(i, rng.Float64())
	}
	v.ScaleVec(1/mat.Norm(v, 2), v)
	q := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		q.Set(i, i, 1)
	}
	var vvt mat.Dense
	vvt.Outer(2, v, v)
	q.Sub(q, &vvt)
	var qs, cov mat.Dense
	qs.Mul(q, s)
	cov.Mul(&qs, q.T())
	return &cov
}

/*
Covariances returns covariance matrices of all components
*/
func (g *GaussianField) Covariances() ([]*mat.Dense, error) {
	r := make([]*mat.Dense, g.N)
	for k, m := range g.Shapes {
		r[k] = new(mat.Dense)
		if g.Strategy == config.Covariance {
			r[k].CloneFrom(m)
		} else if err := r[k].Inverse(m); err != nil {
			return nil, zorros.Wrapf(err, "failed to invert precision of gaussian %d", k)
		}
	}
	return r, nil
}

/*
CheckPositiveDefinite verifies that every covariance has only positive eigenvalues
*/
func (g *GaussianField) CheckPositiveDefinite() error {
	covs, err := g.Covariances()
	if err != nil {
		return zorros.Trace(err)
	}
	for k, c := range covs {
		sym := mat.NewSymDense(g.D, nil)
		for i := 0; i < g.D; i++ {
			for j := i; j < g.D; j++ {
				sym.SetSym(i, j, (c.At(i, j)+c.At(j, i))/2)
			}
		}
		var es mat.EigenSym
		if !es.Factorize(sym, false) {
			return zorros.Errorf("eigen decomposition of gaussian %d failed", k)
		}
		for _, v := range es.Values(nil) {
			if !(v > 0) {
				return xerrors.Errorf("gaussian %d has eigenvalue %v: %w", k, v, ErrNotPositiveDefinite)
			}
		}
	}
	return nil
}

func (g *GaussianField) precision(k int) (*mat.Dense, float64, error) {
	if g.Strategy == config.Covariance {
		var p mat.Dense
		if err := p.Inverse(g.Shapes[k]); err != nil {
			return nil, 0, zorros.Wrapf(err, "failed to invert covariance of gaussian %d", k)
		}
		return &p, mat.Det(g.Shapes[k]), nil
	}
	var c mat.Dense
	if err := c.Inverse(g.Shapes[k]); err != nil {
		return nil, 0, zorros.Wrapf(err, "failed to invert precision of gaussian %d", k)
	}
	return g.Shapes[k], mat.Det(&c), nil
}

/*
Densities returns the density of every component at every point, B×N

The normalization is 1/((2π)^(D/2)·|Σ|^(1/2)).
*/
func (g *GaussianField) Densities(x *mat.Dense) (*mat.Dense, error) {
	b, d := x.Dims()
	if d != g.D {
		return nil, xerrors.Errorf("points have %d dims but gaussians have %d: %w", d, g.D, ErrDimMismatch)
	}
	if g.N == 0 {
		return nil, nil
	}
	w := mat.NewDense(b, g.N, nil)
	diff := mat.NewDense(b, g.D, nil)
	t := mat.NewDense(b, g.D, nil)
	norm := math.Pow(2*math.Pi, float64(g.D)/2)
	for k := 0; k < g.N; k++ {
		p, det, err := g.precision(k)
		if err != nil {
			return nil, err
		}
		coeff := 1 / (norm * math.Sqrt(det))
		center := g.Centers.RawRowView(k)
		for i := 0; i < b; i++ {
			src, dst := x.RawRowView(i), diff.RawRowView(i)
			for j := range dst {
				dst[j] = src[j] - center[j]
			}
		}
		t.Mul(diff, p)
		for i := 0; i < b; i++ {
			var q float64
			tr, dr := t.RawRowView(i), diff.RawRowView(i)
			for j := range tr {
				q += tr[j] * dr[j]
			}
			w.Set(i, k, coeff*math.Exp(-q/2))
		}
	}
	return w, nil
}

/*
Forward returns density weighted sum of component features, B×F

Without components the result is all zeros.
*/
func (g *GaussianField) Forward(x *mat.Dense) (*mat.Dense, error) {
	b, _ := x.Dims()
	if g.N == 0 {
		if g.F == 0 {
			return nil, nil
		}
		return mat.NewDense(b, g.F, nil), nil
	}
	w, err := g.Densities(x)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(b, g.F, nil)
	out.Mul(w, g.Features)
	if g.Scale != 1 {
		out.Scale(g.Scale, out)
	}
	return out, nil
}

/*
Density returns the summed density of all components, one value per point
*/
func (g *GaussianField) Density(x *mat.Dense) ([]float64, error) {
	b, _ := x.Dims()
	r := make([]float64, b)
	if g.N == 0 {
		return r, nil
	}
	w, err := g.Densities(x)
	if err != nil {
		return nil, err
	}
	for i := range r {
		for _, v := range w.RawRowView(i) {
			r[i] += v
		}
	}
	return r, nil
}

/*
Params returns learnable tensors of the mixture
*/
func (g *GaussianField) Params() []Param {
	if g.N == 0 {
		return nil
	}
	shape := "gaussians.precision"
	if g.Strategy == config.Covariance {
		shape = "gaussians.covariance"
	}
	return []Param{
		{Name: "gaussians.centers", Shape: []int{g.N, g.D}, Values: g.Centers.RawMatrix().Data},
		{Name: shape, Shape: []int{g.N, g.D, g.D}, Values: g.shapes},
		{Name: "gaussians.features", Shape: []int{g.N, g.F}, Values: g.Features.RawMatrix().Data},
	}
}
