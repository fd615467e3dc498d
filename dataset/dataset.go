/*
Package dataset feeds coordinate/value pairs sampled from a volume
*/
package dataset

import (
	"math/rand"

	"github.com/sirupsen/logrus"
	"go-ml.dev/pkg/gmminr/config"
	"go-ml.dev/pkg/gmminr/fu"
	"go-ml.dev/pkg/gmminr/grid"
	"go-ml.dev/pkg/gmminr/volume"
	"go-ml.dev/pkg/zorros/zorros"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var ErrDimMismatch = xerrors.New("dimension mismatch")

/*
Batch is a set of coordinates with field values observed there
*/
type Batch struct {
	Inputs *mat.Dense // one row per point, n_dims columns
	Data   *mat.Dense // one row per point, one column per channel
}

/*
Len returns count of points in the batch
*/
func (b Batch) Len() int {
	r, _ := b.Inputs.Dims()
	return r
}

/*
Dataset samples a loaded volume

Statistics and the full coordinate grid are computed on first access and
kept until Reset.
*/
type Dataset struct {
	opts  config.Options
	data  *volume.Volume
	index *grid.Grid
	rng   *rand.Rand
	log   logrus.FieldLogger

	min, mean, max *float64
	fullCoordGrid  *grid.Grid
	reductions     int
}

/*
New wraps the volume, its spatial rank must equal n_dims
*/
func New(opts config.Options, data *volume.Volume, logger logrus.FieldLogger) (*Dataset, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if len(data.Shape) != opts.NDims {
		return nil, xerrors.Errorf("volume has %d spatial dims but n_dims is %d: %w", len(data.Shape), opts.NDims, ErrDimMismatch)
	}
	index, err := grid.Make(data.Shape, opts.AlignCorners)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	logger.WithFields(logrus.Fields{
		"data":     opts.Data,
		"shape":    data.Shape,
		"channels": data.Channels,
	}).Info("dataset initialized")
	return &Dataset{
		opts:  opts,
		data:  data,
		index: index,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		log:   logger,
	}, nil
}

/*
Load reads the volume named by the data option
*/
func Load(opts config.Options, logger logrus.FieldLogger) (*Dataset, error) {
	path := fu.DataPath(opts.Data)
	if logger != nil {
		logger.WithField("path", path).Debug("reading dataset")
	}
	v, err := volume.Load(path)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to load dataset `%v`", opts.Data)
	}
	return New(opts, v, logger)
}

/*
LuckyLoad loads dataset and panics on any error
*/
func LuckyLoad(opts config.Options, logger logrus.FieldLogger) *Dataset {
	d, err := Load(opts, logger)
	if err != nil {
		panic(zorros.Panic(err))
	}
	return d
}

func (d *Dataset) Volume() *volume.Volume {
	return d.data
}

func (d *Dataset) reduce(f func([]float64) float64) *float64 {
	d.reductions++
	x := f(d.data.Data)
	return &x
}

func (d *Dataset) Min() float64 {
	if d.min == nil {
		d.min = d.reduce(floats.Min)
	}
	return *d.min
}

func (d *Dataset) Mean() float64 {
	if d.mean == nil {
		d.mean = d.reduce(fu.Mean)
	}
	return *d.mean
}

func (d *Dataset) Max() float64 {
	if d.max == nil {
		d.max = d.reduce(floats.Max)
	}
	return *d.max
}

/*
Reset drops memoized statistics and the cached coordinate grid
*/
func (d *Dataset) Reset() {
	d.min, d.mean, d.max = nil, nil, nil
	d.fullCoordGrid = nil
	d.log.Debug("dataset caches reset")
}

/*
Get2DSlice returns a 2D cross-section for visualization
*/
func (d *Dataset) Get2DSlice() *volume.Volume {
	return d.data.Slice2D()
}

/*
TotalPoints returns product of spatial dimensions
*/
func (d *Dataset) TotalPoints() int {
	return d.data.Points()
}

/*
FullCoordGrid returns the coordinate of every voxel, flattened
*/
func (d *Dataset) FullCoordGrid() *grid.Grid {
	if d.fullCoordGrid == nil {
		d.fullCoordGrid = grid.LuckyMake(d.data.Shape, d.opts.AlignCorners)
	}
	return d.fullCoordGrid
}

/*
SampleRect samples an axis-aligned box with linear interpolation

Starts and widths are in [0,1] units of the volume extent, component i
addresses the same coordinate column i as model inputs do. The result has
samples[i] points along axis i.
*/
func (d *Dataset) SampleRect(starts, widths []float64, samples []int) (*volume.Volume, error) {
	n := len(d.data.Shape)
	if len(starts) != n || len(widths) != n || len(samples) != n {
		return nil, xerrors.Errorf("rect needs %d starts, widths and samples: %w", n, ErrDimMismatch)
	}
	axes := make([][]float64, n)
	for i := range axes {
		if samples[i] < 1 {
			return nil, zorros.Errorf("rect axis %d has %d samples", i, samples[i])
		}
		step := widths[i] / float64(samples[i])
		axes[i] = make([]float64, samples[i])
		for j := range axes[i] {
			axes[i][j] = (starts[i] + float64(j)*step - 0.5) * 2
		}
	}
	g := grid.Stack(samples, axes)
	vals, err := d.data.Sample(g.Coords, volume.Linear, d.opts.AlignCorners)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	out, err := volume.New(d.data.Channels, samples...)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	p := g.Len()
	for i := 0; i < p; i++ {
		for c := 0; c < d.data.Channels; c++ {
			out.Data[c*p+i] = vals.At(i, c)
		}
	}
	return out, nil
}

/*
GetRandomPoints samples n points

With interpolate option points are uniform in [-1,1]^D and values are
interpolated linearly. Otherwise voxel centres are drawn without
replacement and read as is; n not less than TotalPoints returns every
voxel once in grid order.
*/
func (d *Dataset) GetRandomPoints(n int) (Batch, error) {
	if n < 1 {
		return Batch{}, zorros.Errorf("count of random points must be positive, got %d", n)
	}
	dims := len(d.data.Shape)
	var x *mat.Dense
	mode := volume.Nearest
	switch {
	case d.opts.Interpolate:
		mode = volume.Linear
		x = mat.NewDense(n, dims, nil)
		raw := x.RawMatrix().Data
		for i := range raw {
			raw[i] = d.rng.Float64()*2 - 1
		}
	case n >= d.index.Len():
		x = mat.DenseCopyOf(d.index.Coords)
	default:
		x = mat.NewDense(n, dims, nil)
		for i, j := range d.rng.Perm(d.index.Len())[:n] {
			x.SetRow(i, d.index.Coords.RawRowView(j))
		}
	}
	y, err := d.data.Sample(x, mode, d.opts.AlignCorners)
	if err != nil {
		return Batch{}, zorros.Trace(err)
	}
	return Batch{Inputs: x, Data: y}, nil
}
