/*
Package grid builds normalized coordinate lattices over [-1,1]^D
*/
package grid

import (
	"go-ml.dev/pkg/zorros/zorros"
	"gonum.org/v1/gonum/mat"
)

/*
Grid is a lattice of coordinates

Coords has one row per lattice point in row-major order of Shape and one
column per dimension. Column 0 addresses the last axis of Shape, the way
grid sampling addresses the innermost (x) axis.
*/
type Grid struct {
	Shape  []int
	Coords *mat.Dense
}

/*
Axis returns normalized positions of n samples along one axis
*/
func Axis(n int, alignCorners bool) []float64 {
	r := make([]float64, n)
	for i := range r {
		switch {
		case alignCorners && n == 1:
			r[i] = 0
		case alignCorners:
			r[i] = -1 + 2*float64(i)/float64(n-1)
		default:
			r[i] = -1 + float64(2*i+1)/float64(n)
		}
	}
	return r
}

/*
Make builds the coordinate lattice of the given shape
*/
func Make(shape []int, alignCorners bool) (*Grid, error) {
	if len(shape) == 0 {
		return nil, zorros.Errorf("grid shape must not be empty")
	}
	axes := make([][]float64, len(shape))
	for i, n := range shape {
		if n < 1 {
			return nil, zorros.Errorf("grid axis %d has size %d", i, n)
		}
		axes[i] = Axis(n, alignCorners)
	}
	return FromAxes(shape, axes), nil
}

/*
FromAxes builds an ij meshgrid over explicit axis positions, column 0 addresses the last axis
*/
func FromAxes(shape []int, axes [][]float64) *Grid {
	return mesh(shape, axes, true)
}

/*
Stack builds an ij meshgrid keeping column k for axis k
*/
func Stack(shape []int, axes [][]float64) *Grid {
	return mesh(shape, axes, false)
}

func mesh(shape []int, axes [][]float64, flip bool) *Grid {
	d := len(shape)
	total := 1
	for _, n := range shape {
		total *= n
	}
	coords := mat.NewDense(total, d, nil)
	index := make([]int, d)
	for p := 0; p < total; p++ {
		row := coords.RawRowView(p)
		for k := 0; k < d; k++ {
			if flip {
				row[d-1-k] = axes[k][index[k]]
			} else {
				row[k] = axes[k][index[k]]
			}
		}
		for k := d - 1; k >= 0; k-- {
			index[k]++
			if index[k] < shape[k] {
				break
			}
			index[k] = 0
		}
	}
	return &Grid{Shape: append([]int(nil), shape...), Coords: coords}
}

/*
Len returns count of lattice points
*/
func (g *Grid) Len() int {
	r, _ := g.Coords.Dims()
	return r
}

/*
LuckyMake builds the lattice and panics on invalid shape
*/
func LuckyMake(shape []int, alignCorners bool) *Grid {
	g, err := Make(shape, alignCorners)
	if err != nil {
		panic(zorros.Panic(err))
	}
	return g
}
