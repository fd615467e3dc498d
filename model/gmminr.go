package model

import (
	"math/rand"

	"github.com/sirupsen/logrus"
	"go-ml.dev/pkg/gmminr/config"
	"go-ml.dev/pkg/gmminr/grid"
	"go-ml.dev/pkg/gmminr/volume"
	"go-ml.dev/pkg/zorros/zlog"
	"go-ml.dev/pkg/zorros/zorros"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrDimMismatch         = xerrors.New("dimension mismatch")
	ErrEmptyBatch          = xerrors.New("empty batch")
	ErrNotPositiveDefinite = xerrors.New("covariance is not positive definite")
)

/*
GMMINR is an implicit neural representation mixing Gaussian features with a coordinate decoder

Forward encodes coordinates (raw or positional), concatenates them with the
Gaussian mixture features when there are any and runs the decoder. The
Precision strategy orders the decoder input as [features, coordinates], the
Covariance strategy as [encoding, features].
*/
type GMMINR struct {
	Options   config.Options
	Encoding  *PositionalEncoding // nil when raw coordinates are fed
	Gaussians *GaussianField
	Decoder   *Decoder

	log logrus.FieldLogger
}

/*
New builds a model with freshly initialized parameters
*/
func New(opts config.Options, logger logrus.FieldLogger) (*GMMINR, error) {
	if err := opts.Validate(); err != nil {
		return nil, zorros.Wrapf(err, "bad model options: %v", err.Error())
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	m := &GMMINR{Options: opts, log: logger}
	var err error
	if m.Gaussians, err = NewGaussianField(opts, rng); err != nil {
		return nil, zorros.Trace(err)
	}
	if opts.PositionalEncoding {
		m.Encoding = NewPositionalEncoding(opts)
	}
	m.Decoder = NewDecoder(opts, m.DecoderInputWidth(), rng)
	logger.WithFields(logrus.Fields{
		"strategy":      opts.Strategy,
		"n_dims":        opts.NDims,
		"n_gaussians":   opts.NGaussians,
		"decoder_input": m.Decoder.In,
		"decoder_depth": len(m.Decoder.Layers),
	}).Info("model initialized")
	return m, nil
}

/*
LuckyNew builds a model and panics on any error
*/
func LuckyNew(opts config.Options, logger logrus.FieldLogger) *GMMINR {
	m, err := New(opts, logger)
	if err != nil {
		panic(zorros.Panic(err))
	}
	return m
}

/*
CoordinateWidth returns width of the encoded coordinates
*/
func (m *GMMINR) CoordinateWidth() int {
	if m.Encoding != nil {
		return m.Encoding.Width()
	}
	return m.Options.NDims
}

/*
DecoderInputWidth returns coordinate width plus feature width when there are gaussians
*/
func (m *GMMINR) DecoderInputWidth() int {
	w := m.CoordinateWidth()
	if m.Options.NGaussians > 0 {
		w += m.Options.NFeatures
	}
	return w
}

/*
Outputs returns count of predicted channels
*/
func (m *GMMINR) Outputs() int {
	return m.Options.NOutputs
}

/*
Forward predicts values at coordinates, one row per point
*/
func (m *GMMINR) Forward(x *mat.Dense) (*mat.Dense, error) {
	if x == nil || x.IsEmpty() {
		return nil, ErrEmptyBatch
	}
	if _, d := x.Dims(); d != m.Options.NDims {
		return nil, xerrors.Errorf("points have %d dims but n_dims is %d: %w", d, m.Options.NDims, ErrDimMismatch)
	}
	input := x
	if m.Encoding != nil {
		var err error
		if input, err = m.Encoding.Encode(x); err != nil {
			return nil, zorros.Trace(err)
		}
	}
	if m.Options.NGaussians > 0 {
		features, err := m.Gaussians.Forward(x)
		if err != nil {
			return nil, zorros.Trace(err)
		}
		joined := new(mat.Dense)
		if m.Options.Strategy == config.Covariance {
			joined.Augment(input, features)
		} else {
			joined.Augment(features, input)
		}
		input = joined
	}
	return m.Decoder.Forward(input), nil
}

/*
LuckyForward predicts values and panics on any error
*/
func (m *GMMINR) LuckyForward(x *mat.Dense) *mat.Dense {
	y, err := m.Forward(x)
	if err != nil {
		panic(zorros.Panic(err))
	}
	return y
}

/*
GaussianDensity evaluates the summed mixture density over a lattice of the given shape

Values are divided by their maximum so they lie in [0,1]. The mixture does
not take part in this with its features, it is a visualization aid.
*/
func (m *GMMINR) GaussianDensity(shape ...int) (*volume.Volume, error) {
	if len(shape) != m.Options.NDims {
		return nil, xerrors.Errorf("density grid has %d dims but n_dims is %d: %w", len(shape), m.Options.NDims, ErrDimMismatch)
	}
	v, err := volume.New(1, shape...)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	if m.Options.NGaussians == 0 {
		return v, nil
	}
	g, err := grid.Make(shape, m.Options.AlignCorners)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	if v.Data, err = m.Gaussians.Density(g.Coords); err != nil {
		return nil, zorros.Trace(err)
	}
	max := floats.Max(v.Data)
	if max > 0 {
		for i := range v.Data {
			v.Data[i] /= max
		}
	} else {
		zlog.Warning("gaussian density vanishes over the whole grid")
	}
	return v, nil
}

/*
Parameters returns every learnable tensor, decoder first
*/
func (m *GMMINR) Parameters() []Param {
	return append(m.Decoder.Params(), m.Gaussians.Params()...)
}
