package model

import (
	"math"
	"math/rand"
	"testing"

	"go-ml.dev/pkg/gmminr/config"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"
	"gotest.tools/assert"
)

func fieldOptions(s config.Strategy, dims, n int) config.Options {
	o := config.Defaults(s)
	o.NDims = dims
	o.NGaussians = n
	o.NFeatures = 4
	return o
}

func randomPoints(rng *rand.Rand, b, d int) *mat.Dense {
	x := mat.NewDense(b, d, nil)
	uniform(rng, x.RawMatrix().Data, 1)
	return x
}

// referenceDensity evaluates one component at one point without batching
func referenceDensity(t *testing.T, g *GaussianField, k int, x []float64) float64 {
	covs, err := g.Covariances()
	assert.NilError(t, err)
	var p mat.Dense
	assert.NilError(t, p.Inverse(covs[k]))
	d := mat.NewVecDense(g.D, nil)
	for j := range x {
		d.SetVec(j, x[j]-g.Centers.At(k, j))
	}
	q := mat.Inner(d, &p, d)
	return math.Exp(-q/2) / (math.Pow(2*math.Pi, float64(g.D)/2) * math.Sqrt(mat.Det(covs[k])))
}

func Test_FieldPositiveDefinite(t *testing.T) {
	for _, s := range []config.Strategy{config.Precision, config.Covariance} {
		for _, d := range []int{1, 2, 3, 5} {
			g, err := NewGaussianField(fieldOptions(s, d, 7), rand.New(rand.NewSource(int64(d))))
			assert.NilError(t, err)
			covs, err := g.Covariances()
			assert.NilError(t, err)
			assert.Equal(t, len(covs), 7)
			for _, c := range covs {
				for i := 0; i < d; i++ {
					for j := 0; j < d; j++ {
						want := 0.0
						if i == j {
							want = 1.0 / 7
						}
						assert.Assert(t, math.Abs(c.At(i, j)-want) < 1e-9)
					}
				}
			}
		}
	}
}

func Test_FieldCentersAndFeatures(t *testing.T) {
	g, err := NewGaussianField(fieldOptions(config.Covariance, 3, 50), rand.New(rand.NewSource(3)))
	assert.NilError(t, err)
	assert.Assert(t, bounded(g.Centers.RawMatrix().Data, 1))
	assert.Assert(t, bounded(g.Features.RawMatrix().Data, 1))
	assert.Equal(t, g.Scale, 1.0)

	p, err := NewGaussianField(fieldOptions(config.Precision, 3, 6), rand.New(rand.NewSource(3)))
	assert.NilError(t, err)
	assert.Equal(t, p.Scale, 1.0)
}

func Test_FieldNotPositiveDefinite(t *testing.T) {
	g, err := NewGaussianField(fieldOptions(config.Precision, 2, 2), rand.New(rand.NewSource(1)))
	assert.NilError(t, err)
	g.Shapes[1].Set(0, 0, -3)
	g.Shapes[1].Set(0, 1, 0)
	g.Shapes[1].Set(1, 0, 0)
	err = g.CheckPositiveDefinite()
	assert.Assert(t, xerrors.Is(err, ErrNotPositiveDefinite), "%v", err)
}

func Test_FieldDensities(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, s := range []config.Strategy{config.Precision, config.Covariance} {
		g, err := NewGaussianField(fieldOptions(s, 3, 4), rng)
		assert.NilError(t, err)
		// make components anisotropic to exercise the full quadratic form
		for k, m := range g.Shapes {
			m.Set(0, 1, 0.05*float64(k+1))
			m.Set(1, 0, 0.05*float64(k+1))
		}
		assert.NilError(t, g.CheckPositiveDefinite())
		x := randomPoints(rng, 6, 3)
		w, err := g.Densities(x)
		assert.NilError(t, err)
		for i := 0; i < 6; i++ {
			for k := 0; k < 4; k++ {
				want := referenceDensity(t, g, k, x.RawRowView(i))
				assert.Assert(t, math.Abs(w.At(i, k)-want) <= 1e-9*math.Max(1, want), "%v point %d gaussian %d", s, i, k)
			}
		}
	}
}

func Test_FieldFeatures(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	o := fieldOptions(config.Precision, 2, 3)
	g, err := NewGaussianField(o, rng)
	assert.NilError(t, err)
	assert.Equal(t, g.Scale, math.Sqrt(2))
	x := randomPoints(rng, 5, 2)
	f, err := g.Forward(x)
	assert.NilError(t, err)
	w, err := g.Densities(x)
	assert.NilError(t, err)
	for i := 0; i < 5; i++ {
		for c := 0; c < 4; c++ {
			var want float64
			for k := 0; k < 3; k++ {
				want += w.At(i, k) * g.Features.At(k, c)
			}
			want *= math.Sqrt(2)
			assert.Assert(t, math.Abs(f.At(i, c)-want) < 1e-12)
		}
	}
	density, err := g.Density(x)
	assert.NilError(t, err)
	for i, v := range density {
		assert.Assert(t, math.Abs(v-mat.Sum(w.Slice(i, i+1, 0, 3))) < 1e-12)
	}
}

func Test_FieldWithoutGaussians(t *testing.T) {
	g, err := NewGaussianField(fieldOptions(config.Precision, 2, 0), rand.New(rand.NewSource(1)))
	assert.NilError(t, err)
	assert.Assert(t, g.Params() == nil)
	covs, err := g.Covariances()
	assert.NilError(t, err)
	assert.Equal(t, len(covs), 0)
	f, err := g.Forward(mat.NewDense(3, 2, []float64{0, 0, 1, 1, -1, 0.5}))
	assert.NilError(t, err)
	r, c := f.Dims()
	assert.Equal(t, r, 3)
	assert.Equal(t, c, 4)
	assert.Equal(t, mat.Sum(f), 0.0)
	density, err := g.Density(mat.NewDense(2, 2, nil))
	assert.NilError(t, err)
	assert.DeepEqual(t, density, []float64{0, 0})
}

func Test_FieldSingular(t *testing.T) {
	g, err := NewGaussianField(fieldOptions(config.Precision, 2, 2), rand.New(rand.NewSource(1)))
	assert.NilError(t, err)
	g.Shapes[0].Zero()
	_, err = g.Forward(mat.NewDense(1, 2, nil))
	assert.ErrorContains(t, err, "gaussian 0")
}

func Test_FieldBatchOfOne(t *testing.T) {
	o := fieldOptions(config.Precision, 2, 1)
	o.NFeatures = 1
	g, err := NewGaussianField(o, rand.New(rand.NewSource(1)))
	assert.NilError(t, err)
	f, err := g.Forward(mat.NewDense(1, 2, []float64{0.2, 0.3}))
	assert.NilError(t, err)
	r, c := f.Dims()
	assert.Equal(t, r, 1)
	assert.Equal(t, c, 1)
}
