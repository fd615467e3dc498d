/*
Package volume keeps a dense multichannel field and samples it at normalized coordinates
*/
package volume

import (
	"math"

	"go-ml.dev/pkg/gmminr/fu"
	"go-ml.dev/pkg/zorros/zorros"
	"gonum.org/v1/gonum/mat"
)

/*
Mode is a grid sampling mode
*/
type Mode int

const (
	// Linear is bilinear for 2D volumes, trilinear for 3D and so on
	Linear Mode = iota
	Nearest
)

/*
Volume is a field with Channels values at every point of Shape

Data is stored row-major as [Channels, Shape...].
*/
type Volume struct {
	Channels int
	Shape    []int
	Data     []float64
}

/*
New allocates a zero volume
*/
func New(channels int, shape ...int) (*Volume, error) {
	if channels < 1 {
		return nil, zorros.Errorf("volume needs at least one channel, got %d", channels)
	}
	if len(shape) == 0 {
		return nil, zorros.Errorf("volume needs at least one spatial axis")
	}
	for i, n := range shape {
		if n < 1 {
			return nil, zorros.Errorf("volume axis %d has size %d", i, n)
		}
	}
	return &Volume{
		Channels: channels,
		Shape:    append([]int(nil), shape...),
		Data:     make([]float64, channels*fu.Prodi(shape)),
	}, nil
}

/*
Points returns count of spatial points
*/
func (v *Volume) Points() int {
	return fu.Prodi(v.Shape)
}

func (v *Volume) offset(c int, index []int) int {
	o := c
	for k, n := range v.Shape {
		o = o*n + index[k]
	}
	return o
}

/*
At returns value of the channel c at the spatial index
*/
func (v *Volume) At(c int, index ...int) float64 {
	return v.Data[v.offset(c, index)]
}

/*
Set changes value of the channel c at the spatial index
*/
func (v *Volume) Set(x float64, c int, index ...int) {
	v.Data[v.offset(c, index)] = x
}

func (v *Volume) inside(index []int) bool {
	for k, n := range v.Shape {
		if index[k] < 0 || index[k] >= n {
			return false
		}
	}
	return true
}

func unnormalize(x float64, size int, alignCorners bool) float64 {
	if alignCorners {
		return (x + 1) / 2 * float64(size-1)
	}
	return ((x+1)*float64(size) - 1) / 2
}

/*
Sample evaluates the volume at normalized coordinates

Every row of coords is one point, column k addresses the spatial axis
len(Shape)-1-k. Points outside the volume read zeros. The result has one
row per point and one column per channel.
*/
func (v *Volume) Sample(coords *mat.Dense, mode Mode, alignCorners bool) (*mat.Dense, error) {
	p, d := coords.Dims()
	if d != len(v.Shape) {
		return nil, zorros.Errorf("coordinates have %d dims but volume has %d", d, len(v.Shape))
	}
	out := mat.NewDense(p, v.Channels, nil)
	u := make([]float64, d)
	index := make([]int, d)
	for i := 0; i < p; i++ {
		row := coords.RawRowView(i)
		for k := 0; k < d; k++ {
			u[d-1-k] = unnormalize(row[k], v.Shape[d-1-k], alignCorners)
		}
		dst := out.RawRowView(i)
		if mode == Nearest {
			for k := range u {
				index[k] = int(math.RoundToEven(u[k]))
			}
			if v.inside(index) {
				for c := range dst {
					dst[c] = v.At(c, index...)
				}
			}
			continue
		}
		v.interpolate(u, index, dst)
	}
	return out, nil
}

func (v *Volume) interpolate(u []float64, index []int, dst []float64) {
	d := len(u)
	base := make([]int, d)
	frac := make([]float64, d)
	for k := range u {
		f := math.Floor(u[k])
		base[k] = int(f)
		frac[k] = u[k] - f
	}
	for corner := 0; corner < 1<<uint(d); corner++ {
		w := 1.0
		for k := 0; k < d; k++ {
			if corner&(1<<uint(k)) != 0 {
				index[k] = base[k] + 1
				w *= frac[k]
			} else {
				index[k] = base[k]
				w *= 1 - frac[k]
			}
		}
		if w == 0 || !v.inside(index) {
			continue
		}
		for c := range dst {
			dst[c] += w * v.At(c, index...)
		}
	}
}

/*
Slice2D returns a copy of a representative 2D cross-section

A 2D volume is returned whole, higher dimensional volumes are cut through
the middle of every axis past the first two.
*/
func (v *Volume) Slice2D() *Volume {
	if len(v.Shape) <= 2 {
		return &Volume{
			Channels: v.Channels,
			Shape:    append([]int(nil), v.Shape...),
			Data:     append([]float64(nil), v.Data...),
		}
	}
	s := &Volume{Channels: v.Channels, Shape: []int{v.Shape[0], v.Shape[1]}}
	s.Data = make([]float64, v.Channels*v.Shape[0]*v.Shape[1])
	index := make([]int, len(v.Shape))
	for k := 2; k < len(v.Shape); k++ {
		index[k] = v.Shape[k] / 2
	}
	for c := 0; c < v.Channels; c++ {
		for i := 0; i < v.Shape[0]; i++ {
			for j := 0; j < v.Shape[1]; j++ {
				index[0], index[1] = i, j
				s.Set(v.At(c, index...), c, i, j)
			}
		}
	}
	return s
}
