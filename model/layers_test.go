package model

import (
	"math"
	"math/rand"
	"testing"

	"go-ml.dev/pkg/gmminr/config"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gotest.tools/assert"
)

func bounded(a []float64, bound float64) bool {
	return floats.Max(a) <= bound && floats.Min(a) >= -bound
}

func Test_SineInit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	first := NewSine(8, 16, 30, true)
	first.Initialize(rng)
	assert.Assert(t, bounded(first.W.RawMatrix().Data, 1.0/8))
	next := NewSine(16, 16, 30, false)
	next.Initialize(rng)
	assert.Assert(t, bounded(next.W.RawMatrix().Data, math.Sqrt(6.0/16)/30))
	assert.Assert(t, bounded(next.B, 1/math.Sqrt(16)))
}

func Test_KaimingInit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := NewLeakyReLU(6, 10)
	l.Initialize(rng)
	assert.Assert(t, bounded(l.W.RawMatrix().Data, 1.0))
	k := NewLinear(24, 3, KaimingUniform)
	k.Initialize(rng)
	assert.Assert(t, bounded(k.W.RawMatrix().Data, 0.5))
}

func Test_XavierNormalInit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := NewLinear(200, 200, XavierNormal)
	l.Initialize(rng)
	w := l.W.RawMatrix().Data
	var s float64
	for _, x := range w {
		s += x * x
	}
	std := math.Sqrt(s / float64(len(w)))
	assert.Assert(t, math.Abs(std-math.Sqrt(2.0/400)) < 0.005, "std %v", std)
}

func Test_Activations(t *testing.T) {
	x := mat.NewDense(1, 1, []float64{-2})
	l := NewLeakyReLU(1, 1)
	l.W.Set(0, 0, 1)
	assert.Equal(t, l.Forward(x).At(0, 0), -0.4)

	s := NewSine(1, 1, 30, true)
	s.W.Set(0, 0, 0.01)
	s.B[0] = 0.02
	assert.Assert(t, math.Abs(s.Forward(mat.NewDense(1, 1, []float64{1})).At(0, 0)-math.Sin(0.9)) < 1e-12)

	n := NewSnakeAlt(1, 1)
	n.W.Set(0, 0, 1)
	assert.Assert(t, math.Abs(n.Forward(x).At(0, 0)-(-1+math.Pow(math.Sin(-2), 2))) < 1e-12)

	y := Tanh{}.Forward(x)
	assert.Equal(t, y.At(0, 0), math.Tanh(-2))
	assert.Equal(t, x.At(0, 0), -2.0)
}

func Test_AffineBatch(t *testing.T) {
	l := NewLinear(2, 3, XavierNormal)
	copy(l.W.RawMatrix().Data, []float64{1, 0, 0, 1, 1, 1})
	copy(l.B, []float64{0, 0, 10})
	y := l.Forward(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	assert.DeepEqual(t, y.RawRowView(0), []float64{1, 2, 13})
	assert.DeepEqual(t, y.RawRowView(1), []float64{3, 4, 17})
}

func decoderOptions(layers int, act config.Activation) config.Options {
	o := config.Defaults(config.Precision)
	o.NLayers = layers
	o.NodesPerLayer = 16
	o.NOutputs = 3
	o.Activation = act
	return o
}

func Test_DecoderLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDecoder(decoderOptions(3, config.Sine), 7, rng)
	assert.Equal(t, len(d.Layers), 5)
	assert.Assert(t, d.Layers[0].(*Sine).First)
	assert.Assert(t, !d.Layers[1].(*Sine).First)
	assert.Equal(t, d.Layers[3].(*Linear).Init, XavierNormal)
	_, ok := d.Layers[4].(Tanh)
	assert.Assert(t, ok)
	assert.Equal(t, d.Out(), 3)

	o := decoderOptions(0, config.Sine)
	d = NewDecoder(o, 7, rng)
	assert.Equal(t, len(d.Layers), 1)
	assert.Equal(t, d.Layers[0].(*Linear).Init, KaimingUniform)

	o = decoderOptions(2, config.LeakyReLU)
	o.BoundOutput = false
	d = NewDecoder(o, 7, rng)
	assert.Equal(t, len(d.Layers), 3)
	_, ok = d.Layers[1].(*LeakyReLU)
	assert.Assert(t, ok)

	d = NewDecoder(decoderOptions(1, config.Snake), 7, rng)
	_, ok = d.Layers[0].(*SnakeAlt)
	assert.Assert(t, ok)
}

func Test_DecoderShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, layers := range []int{0, 1, 2, 4} {
		for _, act := range []config.Activation{config.Sine, config.LeakyReLU, config.Snake} {
			d := NewDecoder(decoderOptions(layers, act), 5, rng)
			for _, b := range []int{1, 9} {
				y := d.Forward(mat.NewDense(b, 5, nil))
				r, c := y.Dims()
				assert.Equal(t, r, b)
				assert.Equal(t, c, 3)
			}
		}
	}
}

func Test_DecoderParams(t *testing.T) {
	d := NewDecoder(decoderOptions(2, config.Sine), 5, rand.New(rand.NewSource(1)))
	p := d.Params()
	assert.Equal(t, len(p), 6)
	assert.Equal(t, p[0].Name, "decoder.0.weight")
	assert.DeepEqual(t, p[0].Shape, []int{16, 5})
	assert.Equal(t, p[5].Name, "decoder.2.bias")
	assert.Equal(t, Count(p), 16*5+16+16*16+16+3*16+3)
}
