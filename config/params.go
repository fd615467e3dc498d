package config

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"go-ml.dev/pkg/zorros/zorros"
)

/*
Params is a set of numeric overrides addressed by yaml option name
*/
type Params map[string]float64

/*
ParseParams parses `name=value` pairs
*/
func ParseParams(kv []string) (Params, error) {
	p := Params{}
	for _, s := range kv {
		i := strings.IndexByte(s, '=')
		if i <= 0 {
			return nil, zorros.Errorf("bad parameter `%v`, expected name=value", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
		if err != nil {
			return nil, zorros.Wrapf(err, "bad value of parameter `%v`", s[:i])
		}
		p[strings.TrimSpace(s[:i])] = v
	}
	return p, nil
}

func fields(o *Options) map[string]reflect.Value {
	m := map[string]reflect.Value{}
	v := reflect.ValueOf(o).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("yaml"); tag != "" {
			m[tag] = v.Field(i)
		}
	}
	return m
}

/*
Apply returns a copy of options with the parameters applied
*/
func (p Params) Apply(o Options) (Options, error) {
	m := fields(&o)
	for k, x := range p {
		ref, ok := m[k]
		if !ok {
			return o, zorros.Errorf("options do not have field `%v`", k)
		}
		switch ref.Kind() {
		case reflect.Int, reflect.Int64:
			if x != math.Trunc(x) {
				return o, zorros.Errorf("field `%v` expects an integer, got %v", k, x)
			}
			ref.SetInt(int64(x))
		case reflect.Float64:
			ref.SetFloat(x)
		case reflect.Bool:
			ref.SetBool(x != 0)
		default:
			return o, zorros.Errorf("field `%v` is not numeric", k)
		}
	}
	return o, nil
}
