/*
Package config defines the immutable model and dataset configuration.

Options is passed by value to every component at construction time.
Nothing in the module keeps a process-wide configuration.
*/
package config

import (
	"github.com/hashicorp/go-multierror"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/zorros/zorros"
	"gopkg.in/yaml.v2"
)

/*
Strategy selects the Gaussian shape parameterization and the matching decoder layout
*/
type Strategy string

const (
	// Precision learns the inverse covariance directly, feeds raw coordinates
	// and concatenates [features, coordinates]
	Precision Strategy = "precision"
	// Covariance learns the covariance matrix, feeds positional encoding
	// and concatenates [encoding, features]
	Covariance Strategy = "covariance"
)

/*
Activation selects the hidden decoder layer kind
*/
type Activation string

const (
	Sine      Activation = "sine"
	LeakyReLU Activation = "lrelu"
	Snake     Activation = "snake"
)

const CPU = "cpu"

/*
Options is a set of model and dataset options
*/
type Options struct {
	NDims         int    `yaml:"n_dims"`
	NGaussians    int    `yaml:"n_gaussians"`
	NFeatures     int    `yaml:"n_features"`
	NLayers       int    `yaml:"n_layers"`
	NodesPerLayer int    `yaml:"nodes_per_layer"`
	NOutputs      int    `yaml:"n_outputs"`
	NumPETerms    int    `yaml:"num_positional_encoding_terms"`
	Device        string `yaml:"device"`
	DataDevice    string `yaml:"data_device"`
	AlignCorners  bool   `yaml:"align_corners"`
	Interpolate   bool   `yaml:"interpolate"`
	Data          string `yaml:"data"`

	Strategy           Strategy   `yaml:"strategy"`
	Activation         Activation `yaml:"activation"`
	Omega0             float64    `yaml:"omega_0"`
	BoundOutput        bool       `yaml:"bound_output"`
	PositionalEncoding bool       `yaml:"positional_encoding"`
	FeatureScale       bool       `yaml:"feature_scale"`
	Seed               int64      `yaml:"seed"`
	LogLevel           string     `yaml:"log_level"`
}

/*
Defaults returns options filled with the values the given strategy is tuned for
*/
func Defaults(s Strategy) Options {
	o := Options{
		NDims:         3,
		NGaussians:    64,
		NFeatures:     4,
		NLayers:       2,
		NodesPerLayer: 64,
		NOutputs:      1,
		NumPETerms:    6,
		Device:        CPU,
		DataDevice:    CPU,
		Strategy:      s,
		Omega0:        30,
		LogLevel:      "info",
	}
	switch s {
	case Covariance:
		o.Activation = LeakyReLU
		o.PositionalEncoding = true
	default:
		o.Strategy = Precision
		o.Activation = Sine
		o.BoundOutput = true
		o.FeatureScale = true
	}
	return o
}

/*
Validate checks all options and reports every problem at once
*/
func (o Options) Validate() error {
	var errs *multierror.Error
	add := func(format string, a ...interface{}) {
		errs = multierror.Append(errs, zorros.Errorf(format, a...))
	}
	if o.NDims < 1 {
		add("n_dims must be positive, got %d", o.NDims)
	}
	if o.NGaussians < 0 {
		add("n_gaussians must not be negative, got %d", o.NGaussians)
	}
	if o.NGaussians > 0 && o.NFeatures < 1 {
		add("n_features must be positive when n_gaussians > 0, got %d", o.NFeatures)
	}
	if o.NLayers < 0 {
		add("n_layers must not be negative, got %d", o.NLayers)
	}
	if o.NLayers > 0 && o.NodesPerLayer < 1 {
		add("nodes_per_layer must be positive, got %d", o.NodesPerLayer)
	}
	if o.NOutputs < 1 {
		add("n_outputs must be positive, got %d", o.NOutputs)
	}
	if o.PositionalEncoding && o.NumPETerms < 1 {
		add("num_positional_encoding_terms must be positive, got %d", o.NumPETerms)
	}
	if o.Device != CPU {
		add("unsupported device `%v`", o.Device)
	}
	if o.DataDevice != CPU {
		add("unsupported data_device `%v`", o.DataDevice)
	}
	switch o.Strategy {
	case Precision, Covariance:
	default:
		add("unknown strategy `%v`", o.Strategy)
	}
	switch o.Activation {
	case Sine, LeakyReLU, Snake:
	default:
		add("unknown activation `%v`", o.Activation)
	}
	if o.Activation == Sine && o.Omega0 == 0 {
		add("omega_0 must not be zero for sine activation")
	}
	return errs.ErrorOrNil()
}

/*
Load reads yaml options over the defaults of the strategy named in the file
*/
func Load(path string) (o Options, err error) {
	bs, err := iokit.File(path).ReadAll()
	if err != nil {
		return o, zorros.Trace(err)
	}
	return Parse(bs)
}

func Parse(bs []byte) (o Options, err error) {
	var head struct {
		Strategy Strategy `yaml:"strategy"`
	}
	if err = yaml.Unmarshal(bs, &head); err != nil {
		return o, zorros.Wrapf(err, "failed to parse options: %v", err.Error())
	}
	o = Defaults(head.Strategy)
	if err = yaml.UnmarshalStrict(bs, &o); err != nil {
		return o, zorros.Wrapf(err, "failed to parse options: %v", err.Error())
	}
	if err = o.Validate(); err != nil {
		return o, zorros.Trace(err)
	}
	return o, nil
}

/*
LuckyLoad loads options and panics on any error
*/
func LuckyLoad(path string) Options {
	o, err := Load(path)
	if err != nil {
		panic(zorros.Panic(err))
	}
	return o
}
