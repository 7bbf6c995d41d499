// Package domain holds the gridded dataset model and the query engine that
// runs on it: coordinate role detection, metadata and coverage extraction,
// nearest grid point resolution, time slicing, unit normalization and the
// reduction of a point to series and export tables.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Dim is a named dataset dimension.
type Dim struct {
	Name string `json:"name"`
	Len  int    `json:"len"`
}

// Coord is a coordinate array. Numeric coordinates carry Values; time
// coordinates carry Times instead. A coordinate with no dimensions is a
// scalar coordinate holding exactly one value.
type Coord struct {
	Name  string
	Dims  []string
	Shape []int
	Attrs map[string]any

	Values []float64
	Times  []time.Time

	// Single marks Values stored at float32 precision.
	Single bool

	// Location is the zone of a timezone-aware time axis. It is nil for naive
	// axes, whose wall clock values are stored in UTC.
	Location *time.Location
}

// IsTime reports whether c holds timestamps.
func (c *Coord) IsTime() bool { return c.Times != nil }

// Naive reports whether c is a time coordinate without timezone information.
func (c *Coord) Naive() bool { return c.IsTime() && c.Location == nil }

// Len returns the number of values held by c.
func (c *Coord) Len() int {
	if c.IsTime() {
		return len(c.Times)
	}
	return len(c.Values)
}

// IsScalar reports whether c has no dimensions.
func (c *Coord) IsScalar() bool { return len(c.Dims) == 0 }

// Variable is a data variable stored as a row-major float64 array. Missing
// values are NaN.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Attrs map[string]any
	Data  []float64

	// Single marks Data stored at float32 precision.
	Single bool
}

// Units returns the variable's units attribute, or "" when absent.
func (v *Variable) Units() string {
	if s, ok := v.Attrs["units"].(string); ok {
		return s
	}
	return ""
}

// HasDim reports whether the variable spans dimension dim.
func (v *Variable) HasDim(dim string) bool {
	return indexOf(v.Dims, dim) >= 0
}

// AllMissing reports whether every value is NaN. Empty variables count as
// missing.
func (v *Variable) AllMissing() bool {
	for _, x := range v.Data {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}

// Dataset is an in-memory gridded dataset. Datasets are treated as immutable:
// selection methods return new datasets that may share arrays with the
// receiver.
type Dataset struct {
	Source string
	Dims   []Dim
	Coords []*Coord
	Vars   []*Variable
	Attrs  map[string]any
}

// DimLen returns the length of dimension name.
func (ds *Dataset) DimLen(name string) (int, bool) {
	for _, d := range ds.Dims {
		if d.Name == name {
			return d.Len, true
		}
	}
	return 0, false
}

// Coord returns the coordinate called name, or nil.
func (ds *Dataset) Coord(name string) *Coord {
	for _, c := range ds.Coords {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Var returns the data variable called name, or nil.
func (ds *Dataset) Var(name string) *Variable {
	for _, v := range ds.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// CoordNames returns coordinate names in dataset order.
func (ds *Dataset) CoordNames() []string {
	names := make([]string, len(ds.Coords))
	for i, c := range ds.Coords {
		names[i] = c.Name
	}
	return names
}

// IsDimCoord reports whether c is the index coordinate of a dimension of the
// same name.
func (ds *Dataset) IsDimCoord(c *Coord) bool {
	if len(c.Dims) != 1 || c.Dims[0] != c.Name {
		return false
	}
	_, ok := ds.DimLen(c.Name)
	return ok
}

// Roles runs the dimension classifier over the dataset's coordinate names.
func (ds *Dataset) Roles() Roles {
	return ClassifyRoles(ds.CoordNames())
}

// Validate checks that every array agrees with the declared dimensions.
func (ds *Dataset) Validate() error {
	check := func(kind, name string, dims []string, shape []int, n int) error {
		if len(dims) != len(shape) {
			return fmt.Errorf("%s %s: %d dimensions but shape %v", kind, name, len(dims), shape)
		}
		for i, d := range dims {
			l, ok := ds.DimLen(d)
			if !ok {
				return fmt.Errorf("%s %s: unknown dimension %q", kind, name, d)
			}
			if l != shape[i] {
				return fmt.Errorf("%s %s: dimension %s has length %d, shape says %d", kind, name, d, l, shape[i])
			}
		}
		if want := product(shape); want != n {
			return fmt.Errorf("%s %s: shape %v needs %d values, got %d", kind, name, shape, want, n)
		}
		return nil
	}
	for _, c := range ds.Coords {
		if err := check("coordinate", c.Name, c.Dims, c.Shape, c.Len()); err != nil {
			return err
		}
	}
	for _, v := range ds.Vars {
		if err := check("variable", v.Name, v.Dims, v.Shape, len(v.Data)); err != nil {
			return err
		}
	}
	return nil
}

// Isel selects the given positions along dimension dim. The dimension is
// kept, with its length set to len(idx).
func (ds *Dataset) Isel(dim string, idx []int) *Dataset {
	out := &Dataset{
		Source: ds.Source,
		Dims:   make([]Dim, len(ds.Dims)),
		Coords: make([]*Coord, len(ds.Coords)),
		Vars:   make([]*Variable, len(ds.Vars)),
		Attrs:  ds.Attrs,
	}
	for i, d := range ds.Dims {
		if d.Name == dim {
			d.Len = len(idx)
		}
		out.Dims[i] = d
	}
	for i, c := range ds.Coords {
		axis := indexOf(c.Dims, dim)
		if axis < 0 {
			out.Coords[i] = c
			continue
		}
		nc := *c
		nc.Shape = resized(c.Shape, axis, len(idx))
		if c.IsTime() {
			nc.Times = take(c.Times, c.Shape, axis, idx)
		} else {
			nc.Values = take(c.Values, c.Shape, axis, idx)
		}
		out.Coords[i] = &nc
	}
	for i, v := range ds.Vars {
		axis := indexOf(v.Dims, dim)
		if axis < 0 {
			out.Vars[i] = v
			continue
		}
		nv := *v
		nv.Shape = resized(v.Shape, axis, len(idx))
		nv.Data = take(v.Data, v.Shape, axis, idx)
		out.Vars[i] = &nv
	}
	return out
}

// Index selects position i along dimension dim and drops the dimension.
// Coordinates along dim become scalar coordinates.
func (ds *Dataset) Index(dim string, i int) *Dataset {
	sel := ds.Isel(dim, []int{i})
	dims := make([]Dim, 0, len(sel.Dims))
	for _, d := range sel.Dims {
		if d.Name != dim {
			dims = append(dims, d)
		}
	}
	sel.Dims = dims
	for j, c := range sel.Coords {
		if axis := indexOf(c.Dims, dim); axis >= 0 {
			nc := *c
			nc.Dims = without(c.Dims, axis)
			nc.Shape = without(c.Shape, axis)
			sel.Coords[j] = &nc
		}
	}
	for j, v := range sel.Vars {
		if axis := indexOf(v.Dims, dim); axis >= 0 {
			nv := *v
			nv.Dims = without(v.Dims, axis)
			nv.Shape = without(v.Shape, axis)
			sel.Vars[j] = &nv
		}
	}
	return sel
}

// take gathers positions idx along axis of a row-major array.
func take[T any](data []T, shape []int, axis int, idx []int) []T {
	outer := product(shape[:axis])
	inner := product(shape[axis+1:])
	n := shape[axis]
	out := make([]T, 0, outer*len(idx)*inner)
	for o := 0; o < outer; o++ {
		for _, k := range idx {
			start := (o*n + k) * inner
			out = append(out, data[start:start+inner]...)
		}
	}
	return out
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func resized(shape []int, axis, n int) []int {
	out := append([]int(nil), shape...)
	out[axis] = n
	return out
}

func without[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
