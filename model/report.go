package model

import (
	"fmt"

	"go-ml.dev/pkg/gmminr/dataset"
	"go-ml.dev/pkg/gmminr/fu"
	"go-ml.dev/pkg/zorros/zorros"
	"gonum.org/v1/gonum/mat"
)

/*
Report is a model evaluation report
*/
type Report struct {
	Points int     // count of evaluated points
	Mse    float64 // mean squared error over all channels
	Psnr   float64 // peak signal to noise ratio in dB
}

func (r *Report) String() string {
	return fmt.Sprintf("points: %d, mse: %.6f, psnr: %.3f", r.Points, r.Mse, r.Psnr)
}

/*
Evaluate compares field predictions with the batch values, valueRange is the data max minus min
*/
func Evaluate(f Field, b dataset.Batch, valueRange float64) (*Report, error) {
	y, err := f.Forward(b.Inputs)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	yr, yc := y.Dims()
	dr, dc := b.Data.Dims()
	if yr != dr || yc != dc {
		return nil, zorros.Errorf("prediction is %d×%d but data is %d×%d", yr, yc, dr, dc)
	}
	mse := fu.Mse(flat(y), flat(b.Data))
	return &Report{Points: yr, Mse: mse, Psnr: fu.Psnr(mse, valueRange)}, nil
}

func flat(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = m.RawRowView(i)
	}
	return fu.Flatnr(rows)
}

/*
EvaluateSource draws n points from the source and evaluates the field on them
*/
func EvaluateSource(f Field, src Source, n int) (*Report, error) {
	b, err := src.GetRandomPoints(n)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	return Evaluate(f, b, src.Max()-src.Min())
}
