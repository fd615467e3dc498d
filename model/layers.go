package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

/*
Param is a named learnable tensor

Values aliases the storage the model computes with, an optimizer updates
it in place.
*/
type Param struct {
	Name   string    `msgpack:"name"`
	Shape  []int     `msgpack:"shape"`
	Values []float64 `msgpack:"values"`
}

/*
Layer is one step of the decoder
*/
type Layer interface {
	// Forward maps a batch with one row per point
	Forward(x *mat.Dense) *mat.Dense
	// Initialize draws fresh weights
	Initialize(rng *rand.Rand)
	// Params returns learnable tensors prefixed by the name
	Params(prefix string) []Param
	// Width returns count of output columns, 0 keeps the input width
	Width() int
}

/*
Affine is y = x·Wᵀ + b
*/
type Affine struct {
	In, Out int
	W       *mat.Dense
	B       []float64
}

func newAffine(in, out int) Affine {
	return Affine{In: in, Out: out, W: mat.NewDense(out, in, nil), B: make([]float64, out)}
}

func uniform(rng *rand.Rand, a []float64, bound float64) {
	for i := range a {
		a[i] = (rng.Float64()*2 - 1) * bound
	}
}

func normal(rng *rand.Rand, a []float64, std float64) {
	for i := range a {
		a[i] = rng.NormFloat64() * std
	}
}

// default affine bias init U(-1/√in, 1/√in)
func (a *Affine) initBias(rng *rand.Rand) {
	uniform(rng, a.B, 1/math.Sqrt(float64(a.In)))
}

func (a *Affine) xavierNormal(rng *rand.Rand) {
	normal(rng, a.W.RawMatrix().Data, math.Sqrt(2/float64(a.In+a.Out)))
	a.initBias(rng)
}

func (a *Affine) kaimingUniform(rng *rand.Rand) {
	uniform(rng, a.W.RawMatrix().Data, math.Sqrt(6/float64(a.In)))
	a.initBias(rng)
}

func (a *Affine) apply(x *mat.Dense) *mat.Dense {
	r, _ := x.Dims()
	y := mat.NewDense(r, a.Out, nil)
	y.Mul(x, a.W.T())
	for i := 0; i < r; i++ {
		row := y.RawRowView(i)
		for j, b := range a.B {
			row[j] += b
		}
	}
	return y
}

func (a *Affine) Params(prefix string) []Param {
	return []Param{
		{Name: prefix + ".weight", Shape: []int{a.Out, a.In}, Values: a.W.RawMatrix().Data},
		{Name: prefix + ".bias", Shape: []int{a.Out}, Values: a.B},
	}
}

func (a *Affine) Width() int {
	return a.Out
}

func each(y *mat.Dense, f func(float64) float64) *mat.Dense {
	y.Apply(func(_, _ int, v float64) float64 { return f(v) }, y)
	return y
}

/*
Sine is sin(ω₀·(x·Wᵀ + b))
*/
type Sine struct {
	Affine
	Omega0 float64
	First  bool
}

func NewSine(in, out int, omega0 float64, first bool) *Sine {
	return &Sine{Affine: newAffine(in, out), Omega0: omega0, First: first}
}

func (l *Sine) Initialize(rng *rand.Rand) {
	bound := math.Sqrt(6/float64(l.In)) / l.Omega0
	if l.First {
		bound = 1 / float64(l.In)
	}
	uniform(rng, l.W.RawMatrix().Data, bound)
	l.initBias(rng)
}

func (l *Sine) Forward(x *mat.Dense) *mat.Dense {
	return each(l.apply(x), func(v float64) float64 { return math.Sin(l.Omega0 * v) })
}

const leakySlope = 0.2

/*
LeakyReLU is an affine map followed by leaky ReLU with slope 0.2
*/
type LeakyReLU struct {
	Affine
}

func NewLeakyReLU(in, out int) *LeakyReLU {
	return &LeakyReLU{newAffine(in, out)}
}

func (l *LeakyReLU) Initialize(rng *rand.Rand) {
	l.kaimingUniform(rng)
}

func (l *LeakyReLU) Forward(x *mat.Dense) *mat.Dense {
	return each(l.apply(x), func(v float64) float64 {
		if v < 0 {
			return leakySlope * v
		}
		return v
	})
}

/*
SnakeAlt is 0.5·a + sin²(a) over the affine map a
*/
type SnakeAlt struct {
	Affine
}

func NewSnakeAlt(in, out int) *SnakeAlt {
	return &SnakeAlt{newAffine(in, out)}
}

func (l *SnakeAlt) Initialize(rng *rand.Rand) {
	l.xavierNormal(rng)
}

func (l *SnakeAlt) Forward(x *mat.Dense) *mat.Dense {
	return each(l.apply(x), func(v float64) float64 {
		s := math.Sin(v)
		return 0.5*v + s*s
	})
}

/*
Init is a weight initialization scheme of a plain linear layer
*/
type Init int

const (
	XavierNormal Init = iota
	KaimingUniform
)

/*
Linear is a plain affine layer
*/
type Linear struct {
	Affine
	Init Init
}

func NewLinear(in, out int, init Init) *Linear {
	return &Linear{Affine: newAffine(in, out), Init: init}
}

func (l *Linear) Initialize(rng *rand.Rand) {
	switch l.Init {
	case KaimingUniform:
		l.kaimingUniform(rng)
	default:
		l.xavierNormal(rng)
	}
}

func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	return l.apply(x)
}

/*
Tanh bounds the output into (-1,1)
*/
type Tanh struct{}

func (Tanh) Initialize(*rand.Rand) {}

func (Tanh) Params(string) []Param { return nil }

func (Tanh) Width() int { return 0 }

func (Tanh) Forward(x *mat.Dense) *mat.Dense {
	return each(mat.DenseCopyOf(x), math.Tanh)
}

func layerName(i int) string {
	return fmt.Sprintf("decoder.%d", i)
}
