// Package native reads NetCDF classic and NetCDF-4 files in pure Go with
// github.com/batchatco/go-native-netcdf, for builds without netCDF-C.
package native

import (
	"context"
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/adapter/store/cf"
	"go.ngs.io/gridquery/internal/domain"
)

// Loader decodes NetCDF files without cgo.
type Loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a Loader that logs to log.
func NewLoader(log logrus.FieldLogger) *Loader {
	return &Loader{log: log}
}

// Load reads and decodes the file at path. Decode failures are returned as
// *domain.ReadError.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, &domain.ReadError{Path: path, Err: err}
	}
	ds, err := cf.Assemble(f)
	if err != nil {
		return nil, &domain.ReadError{Path: path, Err: err}
	}
	if l.log != nil {
		l.log.WithFields(logrus.Fields{
			"path":      path,
			"dims":      len(ds.Dims),
			"variables": len(ds.Vars),
		}).Debug("decoded netcdf file (native)")
	}
	return ds, nil
}

// ReadFile reads the root group of a NetCDF file.
func ReadFile(path string) (cf.File, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return cf.File{}, err
	}
	defer nc.Close()

	out := cf.File{Path: path, Attrs: attrMap(nc.Attributes())}
	lens := make(map[string]int)
	for _, name := range nc.ListVariables() {
		v, err := nc.GetVariable(name)
		if err != nil {
			return cf.File{}, fmt.Errorf("variable %s: %w", name, err)
		}
		rv := cf.Var{Name: name, Dims: v.Dimensions, Attrs: attrMap(v.Attributes)}

		data, shape, ok := flatten(v.Values, len(v.Dimensions))
		if ok {
			rv.Data, rv.Shape = data, shape
			rv.Single = float32Values(v.Values)
		} else {
			rv.Shape = make([]int, len(v.Dimensions))
		}
		for i, d := range v.Dimensions {
			if !ok {
				continue
			}
			if n, seen := lens[d]; seen {
				if n != shape[i] {
					return cf.File{}, fmt.Errorf("variable %s: dimension %s has length %d, %d elsewhere", name, d, shape[i], n)
				}
				continue
			}
			lens[d] = shape[i]
			out.Dims = append(out.Dims, domain.Dim{Name: d, Len: shape[i]})
		}
		out.Vars = append(out.Vars, rv)
	}
	return out, nil
}

func attrMap(am api.AttributeMap) map[string]any {
	attrs := make(map[string]any)
	if am == nil {
		return attrs
	}
	for _, k := range am.Keys() {
		v, ok := am.Get(k)
		if !ok {
			continue
		}
		// Text arrives as string; a []uint8 is an unsigned byte attribute.
		if b, isBytes := v.([]uint8); isBytes {
			wide := make([]uint16, len(b))
			for i, x := range b {
				wide[i] = uint16(x)
			}
			v = wide
		}
		attrs[k] = v
	}
	return attrs
}

// float32Values reports whether the innermost element type of values is
// float32.
func float32Values(values any) bool {
	t := reflect.TypeOf(values)
	for t != nil && t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Float32
}

// flatten converts the nested slices returned by the decoder into a
// row-major float64 array and its shape. It reports false for text and
// other non-numeric values.
func flatten(values any, ndims int) ([]float64, []int, bool) {
	rv := reflect.ValueOf(values)
	if !rv.IsValid() {
		return nil, nil, false
	}
	shape := make([]int, 0, ndims)
	for cur, d := rv, 0; d < ndims; d++ {
		if cur.Kind() != reflect.Slice {
			return nil, nil, false
		}
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			for len(shape) < ndims {
				shape = append(shape, 0)
			}
			return []float64{}, shape, true
		}
		cur = cur.Index(0)
	}

	var out []float64
	var walk func(v reflect.Value, depth int) bool
	walk = func(v reflect.Value, depth int) bool {
		if depth < ndims {
			for i := 0; i < v.Len(); i++ {
				if !walk(v.Index(i), depth+1) {
					return false
				}
			}
			return true
		}
		switch v.Kind() {
		case reflect.Float32, reflect.Float64:
			out = append(out, v.Float())
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
			out = append(out, float64(v.Int()))
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
			out = append(out, float64(v.Uint()))
		default:
			return false
		}
		return true
	}
	if !walk(rv, 0) {
		return nil, nil, false
	}
	return out, shape, true
}
