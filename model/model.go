/*
Package model implements the Gaussian mixture implicit neural representation
*/
package model

import (
	"go-ml.dev/pkg/gmminr/fu"
	"gonum.org/v1/gonum/mat"
)

/*
Field is a continuous function of coordinates
*/
type Field interface {
	// Forward predicts values at every row of x
	Forward(x *mat.Dense) (*mat.Dense, error)
	// Outputs returns count of predicted channels
	Outputs() int
}

/*
ParametricField is a field an external optimizer can train
*/
type ParametricField interface {
	Field
	Parameters() []Param
}

var _ ParametricField = (*GMMINR)(nil)

/*
Path resolves the model file name under the models cache
*/
func Path(s string) string {
	return fu.ModelPath(s)
}

/*
Count returns total count of learnable values
*/
func Count(params []Param) int {
	n := 0
	for _, p := range params {
		n += len(p.Values)
	}
	return n
}
