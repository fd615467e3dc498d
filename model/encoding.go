package model

import (
	"math"

	"go-ml.dev/pkg/gmminr/config"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"
)

/*
PositionalEncoding maps coordinates onto sinusoids of geometrically growing frequency

The input of width D is repeated 2L times, column j is scaled by 2^(j/2D)·π.
Columns then alternate in blocks of sines and cosines, two of each for D=2
and three of each otherwise.
*/
type PositionalEncoding struct {
	L, D  int
	terms []float64
}

func NewPositionalEncoding(opts config.Options) *PositionalEncoding {
	pe := &PositionalEncoding{L: opts.NumPETerms, D: opts.NDims}
	pe.terms = make([]float64, 2*pe.L*pe.D)
	for j := range pe.terms {
		pe.terms[j] = math.Pow(2, float64(j/(2*pe.D))) * math.Pi
	}
	return pe
}

/*
Width returns count of encoded columns
*/
func (pe *PositionalEncoding) Width() int {
	return len(pe.terms)
}

func (pe *PositionalEncoding) stride() int {
	if pe.D == 2 {
		return 4
	}
	return 6
}

/*
Encode returns encoded coordinates, one row per input row
*/
func (pe *PositionalEncoding) Encode(x *mat.Dense) (*mat.Dense, error) {
	r, c := x.Dims()
	if c != pe.D {
		return nil, xerrors.Errorf("encoding expects %d columns, got %d: %w", pe.D, c, ErrDimMismatch)
	}
	stride := pe.stride()
	out := mat.NewDense(r, pe.Width(), nil)
	for i := 0; i < r; i++ {
		src, dst := x.RawRowView(i), out.RawRowView(i)
		for j, w := range pe.terms {
			v := src[j%pe.D] * w
			if j%stride < stride/2 {
				dst[j] = math.Sin(v)
			} else {
				dst[j] = math.Cos(v)
			}
		}
	}
	return out, nil
}
