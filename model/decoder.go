package model

import (
	"math/rand"

	"go-ml.dev/pkg/gmminr/config"
	"gonum.org/v1/gonum/mat"
)

/*
Decoder is an ordered sequence of layers
*/
type Decoder struct {
	In     int
	Layers []Layer
}

func hidden(opts config.Options, in, out int, first bool) Layer {
	switch opts.Activation {
	case config.LeakyReLU:
		return NewLeakyReLU(in, out)
	case config.Snake:
		return NewSnakeAlt(in, out)
	default:
		return NewSine(in, out, opts.Omega0, first)
	}
}

/*
NewDecoder builds and initializes the decoder for input of the given width

With n_layers > 0 it is a first hidden layer, n_layers-1 more hidden layers
and a xavier-normal linear head, optionally bounded by tanh. With
n_layers = 0 it is a single kaiming-uniform linear map.
*/
func NewDecoder(opts config.Options, in int, rng *rand.Rand) *Decoder {
	d := &Decoder{In: in}
	if opts.NLayers > 0 {
		d.Layers = append(d.Layers, hidden(opts, in, opts.NodesPerLayer, true))
		for i := 0; i < opts.NLayers; i++ {
			if i == opts.NLayers-1 {
				d.Layers = append(d.Layers, NewLinear(opts.NodesPerLayer, opts.NOutputs, XavierNormal))
			} else {
				d.Layers = append(d.Layers, hidden(opts, opts.NodesPerLayer, opts.NodesPerLayer, false))
			}
		}
		if opts.BoundOutput {
			d.Layers = append(d.Layers, Tanh{})
		}
	} else {
		d.Layers = append(d.Layers, NewLinear(in, opts.NOutputs, KaimingUniform))
	}
	for _, l := range d.Layers {
		l.Initialize(rng)
	}
	return d
}

/*
Out returns count of output columns
*/
func (d *Decoder) Out() int {
	w := d.In
	for _, l := range d.Layers {
		if x := l.Width(); x != 0 {
			w = x
		}
	}
	return w
}

func (d *Decoder) Forward(x *mat.Dense) *mat.Dense {
	for _, l := range d.Layers {
		x = l.Forward(x)
	}
	return x
}

func (d *Decoder) Params() (p []Param) {
	for i, l := range d.Layers {
		p = append(p, l.Params(layerName(i))...)
	}
	return
}
