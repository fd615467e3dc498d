package model

import (
	"math"
	"testing"

	"go-ml.dev/pkg/gmminr/dataset"
	"go-ml.dev/pkg/gmminr/volume"
	"gonum.org/v1/gonum/mat"
	"gotest.tools/assert"
)

type constant struct {
	value float64
	n     int
}

func (c constant) Outputs() int { return c.n }

func (c constant) Forward(x *mat.Dense) (*mat.Dense, error) {
	r, _ := x.Dims()
	y := mat.NewDense(r, c.n, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c.n; j++ {
			y.Set(i, j, c.value)
		}
	}
	return y, nil
}

func Test_Evaluate(t *testing.T) {
	b := dataset.Batch{
		Inputs: mat.NewDense(2, 2, nil),
		Data:   mat.NewDense(2, 1, []float64{1, 3}),
	}
	r, err := Evaluate(constant{value: 2, n: 1}, b, 2)
	assert.NilError(t, err)
	assert.Equal(t, r.Points, 2)
	assert.Equal(t, r.Mse, 1.0)
	assert.Assert(t, math.Abs(r.Psnr-20*math.Log10(2)) < 1e-12)
	assert.Equal(t, r.String(), "points: 2, mse: 1.000000, psnr: 6.021")

	_, err = Evaluate(constant{value: 2, n: 3}, b, 2)
	assert.ErrorContains(t, err, "prediction")
}

func Test_EvaluateSource(t *testing.T) {
	v, err := volume.New(1, 4, 4)
	assert.NilError(t, err)
	for i := range v.Data {
		v.Data[i] = float64(i%2) * 0.5
	}
	o := exampleOptions()
	src, err := dataset.New(o, v, nil)
	assert.NilError(t, err)
	r, err := EvaluateSource(LuckyNew(o, nil), src, 8)
	assert.NilError(t, err)
	assert.Equal(t, r.Points, 8)
	assert.Assert(t, r.Mse >= 0 && !math.IsNaN(r.Psnr))
}
