// Package cf turns the raw arrays read by a NetCDF decoder into a domain
// dataset, applying the CF conventions a gridded dataset relies on: masked
// values, packed values, coordinate detection and time decoding.
package cf

import (
	"fmt"
	"math"
	"strings"

	"go.ngs.io/gridquery/internal/domain"
)

// Var is one variable as read from a file. Data holds the stored numbers in
// row-major order; character and string variables leave it nil.
type Var struct {
	Name  string
	Dims  []string
	Shape []int
	Attrs map[string]any
	Data  []float64

	// Single is set for variables stored as 32-bit floats.
	Single bool
}

// File is the undecoded content of a dataset file.
type File struct {
	Path  string
	Dims  []domain.Dim
	Vars  []Var
	Attrs map[string]any
}

// encodingAttrs are consumed by decoding and not reported as attributes.
var encodingAttrs = []string{"_FillValue", "missing_value", "scale_factor", "add_offset"}

// Assemble decodes f into a dataset.
//
// Dimension coordinates (a 1-D variable named after its dimension) and the
// variables listed in any "coordinates" attribute become coordinates, in
// file order. Every other numeric variable is a data variable. Coordinates
// whose units read "<unit> since <reference>" are decoded to timestamps;
// when that fails they stay numeric.
func Assemble(f File) (*domain.Dataset, error) {
	ds := &domain.Dataset{
		Source: f.Path,
		Dims:   f.Dims,
		Attrs:  domain.PortableAttrs(f.Attrs),
	}

	dimNames := make(map[string]bool, len(f.Dims))
	for _, d := range f.Dims {
		dimNames[d.Name] = true
	}
	listed := make(map[string]bool)
	for _, v := range f.Vars {
		if s, ok := v.Attrs["coordinates"].(string); ok {
			for _, name := range strings.Fields(s) {
				listed[name] = true
			}
		}
	}

	for _, v := range f.Vars {
		if v.Data == nil {
			continue
		}
		if len(v.Data) != product(v.Shape) {
			return nil, fmt.Errorf("variable %s: shape %v needs %d values, got %d", v.Name, v.Shape, product(v.Shape), len(v.Data))
		}
		data := Unpack(v.Data, v.Attrs)
		single := v.Single && !widePacking(v.Attrs)
		attrs := domain.PortableAttrs(v.Attrs)
		for _, k := range encodingAttrs {
			delete(attrs, k)
		}

		isDimCoord := len(v.Dims) == 1 && v.Dims[0] == v.Name && dimNames[v.Name]
		if !isDimCoord && !listed[v.Name] {
			ds.Vars = append(ds.Vars, &domain.Variable{
				Name:   v.Name,
				Dims:   v.Dims,
				Shape:  v.Shape,
				Attrs:  attrs,
				Data:   data,
				Single: single,
			})
			continue
		}

		c := &domain.Coord{Name: v.Name, Dims: v.Dims, Shape: v.Shape, Attrs: attrs, Single: single}
		units, _ := attrs["units"].(string)
		calendar, _ := attrs["calendar"].(string)
		if IsTimeUnits(units) {
			if times, err := DecodeTimes(data, units, calendar); err == nil {
				c.Times = times
				delete(attrs, "units")
				delete(attrs, "calendar")
			}
		}
		if c.Times == nil {
			c.Values = data
		}
		ds.Coords = append(ds.Coords, c)
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Unpack applies the CF masking and packing attributes: values equal to
// _FillValue or missing_value become NaN, then scale_factor and add_offset
// are applied. The input is not modified.
func Unpack(data []float64, attrs map[string]any) []float64 {
	var missing []float64
	for _, k := range []string{"_FillValue", "missing_value"} {
		missing = append(missing, Floats(attrs[k])...)
	}
	scale, hasScale := Float(attrs["scale_factor"])
	offset, hasOffset := Float(attrs["add_offset"])
	if len(missing) == 0 && !hasScale && !hasOffset {
		return data
	}
	if !hasScale {
		scale = 1
	}

	out := make([]float64, len(data))
	for i, x := range data {
		for _, m := range missing {
			if x == m {
				x = math.NaN()
				break
			}
		}
		out[i] = x*scale + offset
	}
	return out
}

// widePacking reports whether attrs scale or offset values by a
// double-precision factor, which promotes float32 data.
func widePacking(attrs map[string]any) bool {
	for _, k := range []string{"scale_factor", "add_offset"} {
		switch attrs[k].(type) {
		case nil, float32, []float32:
		default:
			return true
		}
	}
	return false
}

// Float returns the first number held by an attribute value.
func Float(v any) (float64, bool) {
	fs := Floats(v)
	if len(fs) == 0 {
		return 0, false
	}
	return fs[0], true
}

// Floats returns the numbers held by an attribute value. Strings and other
// values yield nil.
func Floats(v any) []float64 {
	switch x := domain.Portable(v).(type) {
	case float64:
		return []float64{x}
	case int64:
		return []float64{float64(x)}
	case []any:
		var out []float64
		for _, e := range x {
			switch n := e.(type) {
			case float64:
				out = append(out, n)
			case int64:
				out = append(out, float64(n))
			}
		}
		return out
	}
	return nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
