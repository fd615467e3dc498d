package volume

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go-ml.dev/pkg/gmminr/grid"
	"gonum.org/v1/gonum/mat"
	"gotest.tools/assert"
)

func ramp(t *testing.T, shape ...int) *Volume {
	v, err := New(1, shape...)
	assert.NilError(t, err)
	for i := range v.Data {
		v.Data[i] = float64(i)
	}
	return v
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func Test_NewErrors(t *testing.T) {
	_, err := New(0, 2, 2)
	assert.ErrorContains(t, err, "channel")
	_, err = New(1)
	assert.ErrorContains(t, err, "spatial")
	_, err = New(1, 2, 0)
	assert.ErrorContains(t, err, "axis 1")
}

func Test_NearestOnOwnGrid(t *testing.T) {
	for _, align := range []bool{true, false} {
		v := ramp(t, 3, 4)
		g := grid.LuckyMake(v.Shape, align)
		s, err := v.Sample(g.Coords, Nearest, align)
		assert.NilError(t, err)
		for i := 0; i < g.Len(); i++ {
			assert.Equal(t, s.At(i, 0), v.Data[i], "align=%v point %d", align, i)
		}
	}
}

func Test_LinearOnOwnGrid(t *testing.T) {
	v := ramp(t, 2, 3, 4)
	g := grid.LuckyMake(v.Shape, false)
	s, err := v.Sample(g.Coords, Linear, false)
	assert.NilError(t, err)
	for i := 0; i < g.Len(); i++ {
		assert.Assert(t, near(s.At(i, 0), v.Data[i]), "point %d: %v", i, s.At(i, 0))
	}
}

func Test_LinearMidpoint(t *testing.T) {
	v := ramp(t, 2, 2)
	// centre of a 2x2 volume with corners aligned
	s, err := v.Sample(mat.NewDense(1, 2, []float64{0, 0}), Linear, true)
	assert.NilError(t, err)
	assert.Assert(t, near(s.At(0, 0), 1.5))
	// halfway along the last axis of the first row
	s, err = v.Sample(mat.NewDense(1, 2, []float64{0, -1}), Linear, true)
	assert.NilError(t, err)
	assert.Assert(t, near(s.At(0, 0), 0.5))
}

func Test_ZerosPadding(t *testing.T) {
	v := ramp(t, 2, 2)
	for i := range v.Data {
		v.Data[i] = 1
	}
	s, err := v.Sample(mat.NewDense(2, 2, []float64{3, 3, 1, 1}), Linear, false)
	assert.NilError(t, err)
	assert.Equal(t, s.At(0, 0), 0.0)
	// corner of the outer pixel with align_corners=false blends with padding
	assert.Assert(t, near(s.At(1, 0), 0.25))
	s, err = v.Sample(mat.NewDense(1, 2, []float64{3, 3}), Nearest, false)
	assert.NilError(t, err)
	assert.Equal(t, s.At(0, 0), 0.0)
}

func Test_SampleDims(t *testing.T) {
	v := ramp(t, 2, 2)
	_, err := v.Sample(mat.NewDense(1, 3, nil), Linear, true)
	assert.ErrorContains(t, err, "3 dims")
}

func Test_Slice2D(t *testing.T) {
	v := ramp(t, 2, 3, 5)
	s := v.Slice2D()
	assert.DeepEqual(t, s.Shape, []int{2, 3})
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, s.At(0, i, j), v.At(0, i, j, 2))
		}
	}
	f := ramp(t, 2, 3)
	c := f.Slice2D()
	c.Data[0] = 100
	assert.Equal(t, f.Data[0], 0.0)
}

func Test_Codec(t *testing.T) {
	v := ramp(t, 3, 2)
	var b bytes.Buffer
	assert.NilError(t, v.Encode(&b))
	w, err := Decode(&b)
	assert.NilError(t, err)
	assert.DeepEqual(t, w, v)

	dir := t.TempDir()
	for _, name := range []string{"ramp.vol", "ramp.vol.xz"} {
		path := filepath.Join(dir, name)
		assert.NilError(t, v.Save(path))
		w, err := Load(path)
		assert.NilError(t, err)
		assert.DeepEqual(t, w, v)
	}
}

func Test_SaveFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"broken.vol", "broken.vol.xz"} {
		path := filepath.Join(dir, name)
		assert.NilError(t, ramp(t, 2, 2).Save(path))
		broken := ramp(t, 2, 2)
		broken.Data = broken.Data[:3]
		assert.ErrorContains(t, broken.Save(path), "expects 4 values")
		_, err := os.Stat(path)
		assert.Assert(t, os.IsNotExist(err), name)
	}
}

func Test_LoadDetectsCompression(t *testing.T) {
	v := ramp(t, 2, 3)
	dir := t.TempDir()
	xzPath := filepath.Join(dir, "ramp.vol.xz")
	assert.NilError(t, v.Save(xzPath))
	plain := filepath.Join(dir, "ramp.bin")
	assert.NilError(t, os.Rename(xzPath, plain))
	w, err := Load(plain)
	assert.NilError(t, err)
	assert.DeepEqual(t, w, v)

	_, err = Load(filepath.Join(dir, "missing.vol"))
	assert.Assert(t, err != nil)
}
