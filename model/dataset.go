package model

import (
	"go-ml.dev/pkg/gmminr/dataset"
)

/*
Source is an abstraction of a data source the model is fitted to and evaluated on
*/
type Source interface {
	GetRandomPoints(n int) (dataset.Batch, error)
	Min() float64
	Max() float64
}

var _ Source = (*dataset.Dataset)(nil)
