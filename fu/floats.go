package fu

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

func Mean(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Sum(a) / float64(len(a))
}

func Mse(a, b []float64) float64 {
	var c float64
	for i, x := range a {
		q := x - b[i]
		c += q * q
	}
	return c / float64(len(a))
}

/*
Psnr is a peak signal-to-noise ratio in dB for the given mse and the value range
*/
func Psnr(mse, valueRange float64) float64 {
	return 20*math.Log10(valueRange) - 10*math.Log10(mse)
}

func Flatnr(a [][]float64) []float64 {
	n := 0
	for _, x := range a {
		n += len(x)
	}
	r := make([]float64, n)
	i := 0
	for _, x := range a {
		copy(r[i:i+len(x)], x)
		i += len(x)
	}
	return r
}

// Widen converts float32 storage to float64
func Widen(a []float32) []float64 {
	r := make([]float64, len(a))
	for i, x := range a {
		r[i] = float64(x)
	}
	return r
}

// Narrow converts float64 values to float32 storage
func Narrow(a []float64) []float32 {
	r := make([]float32, len(a))
	for i, x := range a {
		r[i] = float32(x)
	}
	return r
}

func Prodi(a []int) int {
	p := 1
	for _, x := range a {
		p *= x
	}
	return p
}
