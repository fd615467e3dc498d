package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go-ml.dev/pkg/gmminr/config"
	"go-ml.dev/pkg/gmminr/dataset"
	"go-ml.dev/pkg/gmminr/model"
	"go-ml.dev/pkg/gmminr/store"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/zorros/zlog"
	"go-ml.dev/pkg/zorros/zorros"
	"golang.org/x/xerrors"
)

var (
	configFlag = &cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "yaml options file"}
	setFlag    = &cli.StringSliceFlag{Name: "set", Usage: "numeric option override, name=value"}
	storeFlag  = &cli.StringFlag{Name: "store", Value: "snapshots.db", Usage: "snapshot database"}
	nameFlag   = &cli.StringFlag{Name: "name", Value: "default", Usage: "snapshot history name"}
)

func main() {
	app := &cli.App{
		Name:  "gmminr",
		Usage: "gaussian mixture implicit neural representation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "", Usage: "overrides log_level option"},
		},
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "build a model and print its parameters",
				Flags:  []cli.Flag{configFlag, setFlag},
				Action: info,
			},
			{
				Name:  "density",
				Usage: "write normalized gaussian density over a grid",
				Flags: []cli.Flag{configFlag, setFlag, storeFlag, nameFlag,
					&cli.StringFlag{Name: "shape", Value: "64,64,64", Usage: "grid shape"},
					&cli.StringFlag{Name: "out", Value: "density.vol.xz", Usage: "output volume file"},
				},
				Action: density,
			},
			{
				Name:  "eval",
				Usage: "evaluate the latest snapshot on random dataset points",
				Flags: []cli.Flag{configFlag, setFlag, storeFlag, nameFlag,
					&cli.IntFlag{Name: "points", Value: 100000, Usage: "count of sampled points"},
				},
				Action: eval,
			},
			{
				Name:   "save",
				Usage:  "initialize a model and store its snapshot",
				Flags:  []cli.Flag{configFlag, setFlag, storeFlag, nameFlag},
				Action: save,
			},
			{
				Name:   "list",
				Usage:  "list stored snapshots",
				Flags:  []cli.Flag{storeFlag, nameFlag},
				Action: list,
			},
			{
				Name:  "export",
				Usage: "write the latest snapshot into the models cache",
				Flags: []cli.Flag{storeFlag, nameFlag,
					&cli.StringFlag{Name: "out", Usage: "model file, relative names resolve under the models cache"},
				},
				Action: export,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func options(c *cli.Context) (o config.Options, err error) {
	o = config.Defaults(config.Precision)
	if path := c.String("config"); path != "" {
		if o, err = config.Load(path); err != nil {
			return
		}
	}
	p, err := config.ParseParams(c.StringSlice("set"))
	if err != nil {
		return
	}
	if o, err = p.Apply(o); err != nil {
		return
	}
	if err = o.Validate(); err != nil {
		return
	}
	level := o.LogLevel
	if l := c.String("log-level"); l != "" {
		level = l
	}
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	logrus.SetLevel(lv)
	return
}

func info(c *cli.Context) error {
	o, err := options(c)
	if err != nil {
		return err
	}
	m, err := model.New(o, nil)
	if err != nil {
		return err
	}
	params := m.Parameters()
	for _, p := range params {
		fmt.Printf("%-24s %v\n", p.Name, p.Shape)
	}
	fmt.Printf("decoder input width: %d\nlearnable values: %d\n", m.DecoderInputWidth(), model.Count(params))
	return nil
}

func open(c *cli.Context) (*store.Store, error) {
	return store.Open(c.String("store"))
}

var errOptionsMismatch = xerrors.New("stored snapshot was made with other options")

// latest restores the newest snapshot or builds a fresh model when there is none
func latest(c *cli.Context, o config.Options) (*model.GMMINR, error) {
	s, err := open(c)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	explicit := c.IsSet("config") || len(c.StringSlice("set")) > 0
	return restoreLatest(s, c.String("name"), o, explicit)
}

/*
restoreLatest falls back to a fresh model only when the name has no history,
explicitly requested options must match the stored ones
*/
func restoreLatest(s *store.Store, name string, o config.Options, explicit bool) (*model.GMMINR, error) {
	snap, err := s.Latest(name)
	if xerrors.Is(err, store.ErrNotFound) {
		logrus.WithField("name", name).Warn("no stored snapshot, using a fresh model")
		return model.New(o, nil)
	}
	if err != nil {
		return nil, zorros.Trace(err)
	}
	if explicit && !sameModel(o, snap.Options) {
		zlog.Warning("requested options differ from the stored snapshot, restore refused")
		return nil, xerrors.Errorf("snapshot `%v`: %w", name, errOptionsMismatch)
	}
	return model.Restore(snap, nil)
}

func sameModel(a, b config.Options) bool {
	a.LogLevel = b.LogLevel
	return a == b
}

func density(c *cli.Context) error {
	o, err := options(c)
	if err != nil {
		return err
	}
	var shape []int
	for _, s := range strings.Split(c.String("shape"), ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		shape = append(shape, n)
	}
	m, err := latest(c, o)
	if err != nil {
		return err
	}
	v, err := m.GaussianDensity(shape...)
	if err != nil {
		return err
	}
	return v.Save(c.String("out"))
}

func eval(c *cli.Context) error {
	o, err := options(c)
	if err != nil {
		return err
	}
	m, err := latest(c, o)
	if err != nil {
		return err
	}
	d, err := dataset.Load(m.Options, nil)
	if err != nil {
		return err
	}
	r, err := model.EvaluateSource(m, d, c.Int("points"))
	if err != nil {
		return err
	}
	fmt.Println(r)
	return nil
}

func save(c *cli.Context) error {
	o, err := options(c)
	if err != nil {
		return err
	}
	m, err := model.New(o, nil)
	if err != nil {
		return err
	}
	s, err := open(c)
	if err != nil {
		return err
	}
	defer s.Close()
	id, err := s.Put(c.String("name"), m.Snapshot())
	if err != nil {
		return err
	}
	fmt.Printf("stored snapshot %d\n", id)
	return nil
}

func list(c *cli.Context) error {
	s, err := open(c)
	if err != nil {
		return err
	}
	defer s.Close()
	entries, err := s.List(c.String("name"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%6d  %s  %s  %d\n", e.ID, e.Name, e.Created.Format("2006-01-02 15:04:05"), e.Params)
	}
	return nil
}

func export(c *cli.Context) error {
	s, err := open(c)
	if err != nil {
		return err
	}
	defer s.Close()
	snap, err := s.Latest(c.String("name"))
	if err != nil {
		return err
	}
	m, err := model.Restore(snap, nil)
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = c.String("name") + ".gmminr.xz"
	}
	return m.Save(iokit.File(model.Path(out)))
}
