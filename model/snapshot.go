package model

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
	"github.com/vmihailenco/msgpack/v5"
	"go-ml.dev/pkg/gmminr/config"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/zorros/zorros"
)

const SnapshotVersion = "gmminr.v1"

/*
Snapshot is a copy of model options and parameters
*/
type Snapshot struct {
	Version string         `msgpack:"version"`
	Options config.Options `msgpack:"options"`
	Params  []Param        `msgpack:"params"`
}

/*
Snapshot copies current parameters
*/
func (m *GMMINR) Snapshot() *Snapshot {
	s := &Snapshot{Version: SnapshotVersion, Options: m.Options}
	for _, p := range m.Parameters() {
		s.Params = append(s.Params, Param{
			Name:   p.Name,
			Shape:  append([]int(nil), p.Shape...),
			Values: append([]float64(nil), p.Values...),
		})
	}
	return s
}

/*
Restore builds a model from the snapshot
*/
func Restore(s *Snapshot, logger logrus.FieldLogger) (*GMMINR, error) {
	if s.Version != SnapshotVersion {
		return nil, zorros.Errorf("unsupported snapshot version `%v`", s.Version)
	}
	m, err := New(s.Options, logger)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	if err = m.Load(s); err != nil {
		return nil, zorros.Trace(err)
	}
	return m, nil
}

/*
Load copies snapshot parameters into the model, names and shapes must match
*/
func (m *GMMINR) Load(s *Snapshot) error {
	params := m.Parameters()
	if len(params) != len(s.Params) {
		return zorros.Errorf("snapshot has %d parameters, model has %d", len(s.Params), len(params))
	}
	for i, p := range params {
		q := s.Params[i]
		if q.Name != p.Name || len(q.Values) != len(p.Values) {
			return zorros.Errorf("snapshot parameter %v%v does not fit %v%v", q.Name, q.Shape, p.Name, p.Shape)
		}
	}
	for i, p := range params {
		copy(p.Values, s.Params[i].Values)
	}
	m.log.WithField("params", len(params)).Debug("parameters loaded")
	return nil
}

/*
WriteSnapshot writes the snapshot as xz compressed msgpack
*/
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return zorros.Trace(err)
	}
	if err = msgpack.NewEncoder(xw).Encode(s); err != nil {
		return zorros.Wrapf(err, "failed to encode snapshot: %v", err.Error())
	}
	if err = xw.Close(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}

/*
ReadSnapshot reads the snapshot written by WriteSnapshot
*/
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, zorros.Wrapf(err, "bad snapshot stream: %v", err.Error())
	}
	s := &Snapshot{}
	if err = msgpack.NewDecoder(xr).Decode(s); err != nil {
		return nil, zorros.Wrapf(err, "failed to decode snapshot: %v", err.Error())
	}
	return s, nil
}

/*
Save writes the model snapshot to output
*/
func (m *GMMINR) Save(output iokit.Output) error {
	wh, err := output.Create()
	if err != nil {
		return zorros.Trace(err)
	}
	defer wh.End()
	if err = WriteSnapshot(wh, m.Snapshot()); err != nil {
		return zorros.Trace(err)
	}
	if err = wh.Commit(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}
