package volume

import (
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"go-ml.dev/pkg/gmminr/fu"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/zorros/zorros"
)

const XzExt = ".xz"

type record struct {
	Channels int       `msgpack:"channels"`
	Shape    []int     `msgpack:"shape"`
	Data     []float32 `msgpack:"data"`
}

/*
Decode reads a msgpack encoded volume
*/
func Decode(r io.Reader) (*Volume, error) {
	var rec record
	if err := msgpack.NewDecoder(r).Decode(&rec); err != nil {
		return nil, zorros.Wrapf(err, "failed to decode volume: %v", err.Error())
	}
	v, err := New(rec.Channels, rec.Shape...)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	if len(rec.Data) != len(v.Data) {
		return nil, zorros.Errorf("volume %v×%v expects %d values, got %d", rec.Channels, rec.Shape, len(v.Data), len(rec.Data))
	}
	v.Data = fu.Widen(rec.Data)
	return v, nil
}

/*
Encode writes the volume as msgpack
*/
func (v *Volume) Encode(w io.Writer) error {
	if n := v.Channels * fu.Prodi(v.Shape); len(v.Data) != n {
		return zorros.Errorf("volume %v×%v expects %d values, has %d", v.Channels, v.Shape, n, len(v.Data))
	}
	rec := record{Channels: v.Channels, Shape: v.Shape, Data: fu.Narrow(v.Data)}
	if err := msgpack.NewEncoder(w).Encode(&rec); err != nil {
		return zorros.Wrapf(err, "failed to encode volume: %v", err.Error())
	}
	return nil
}

/*
Load reads volume file, compressed files are recognized by content
*/
func Load(path string) (*Volume, error) {
	rd, err := iokit.Compressed(iokit.File(path)).Open()
	if err != nil {
		return nil, zorros.Trace(err)
	}
	defer rd.Close()
	v, err := Decode(rd)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to load volume %v", path)
	}
	return v, nil
}

/*
Save writes volume file, files with .xz extension are compressed

The file appears only when the whole volume is written.
*/
func (v *Volume) Save(path string) error {
	var output iokit.Output = iokit.File(path)
	if strings.HasSuffix(path, XzExt) {
		output = iokit.Lzma2(output)
	}
	wh, err := output.Create()
	if err != nil {
		return zorros.Trace(err)
	}
	defer wh.End()
	if err = v.Encode(wh); err != nil {
		return zorros.Trace(err)
	}
	if err = wh.Commit(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}
