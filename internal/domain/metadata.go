package domain

import (
	"math"
	"reflect"
	"time"

	"gonum.org/v1/gonum/floats"
)

// TimeLayout is the rendering used for timestamps in metadata and exports.
const TimeLayout = "2006-01-02 15:04:05"

// Metadata is the JSON-ready description of a dataset.
type Metadata struct {
	Source      string                  `json:"source,omitempty"`
	Coords      map[string]CoordSummary `json:"coords"`
	Variables   map[string]VarSummary   `json:"variables"`
	GlobalAttrs map[string]any          `json:"global_attrs"`
	Roles       Roles                   `json:"roles"`
	Time        *TimeSummary            `json:"time,omitempty"`
}

// CoordSummary describes a dimension coordinate. Time coordinates report
// their extent as strings.
type CoordSummary struct {
	Min  any `json:"min"`
	Max  any `json:"max"`
	Size int `json:"size"`
}

// VarSummary describes a data variable.
type VarSummary struct {
	Dims  []string       `json:"dims"`
	Shape []int          `json:"shape"`
	Attrs map[string]any `json:"attrs"`
}

// TimeSummary is the extent of the detected time coordinate.
type TimeSummary struct {
	Coord string `json:"coord"`
	Min   string `json:"min"`
	Max   string `json:"max"`
}

// ExtractMetadata describes the coordinates, variables and global attributes
// of ds using only portable JSON values.
func ExtractMetadata(ds *Dataset, roles Roles) Metadata {
	md := Metadata{
		Source:      ds.Source,
		Coords:      make(map[string]CoordSummary),
		Variables:   make(map[string]VarSummary, len(ds.Vars)),
		GlobalAttrs: PortableAttrs(ds.Attrs),
		Roles:       roles,
	}
	for _, d := range ds.Dims {
		c := ds.Coord(d.Name)
		if c == nil || !ds.IsDimCoord(c) {
			continue
		}
		md.Coords[d.Name] = summarizeCoord(c)
	}
	for _, v := range ds.Vars {
		md.Variables[v.Name] = VarSummary{
			Dims:  append([]string{}, v.Dims...),
			Shape: append([]int{}, v.Shape...),
			Attrs: PortableAttrs(v.Attrs),
		}
	}
	if c := ds.Coord(roles.Time); c != nil && c.IsTime() && c.Len() > 0 {
		lo, hi := timeExtent(c.Times)
		md.Time = &TimeSummary{
			Coord: c.Name,
			Min:   FormatTime(lo, c.Location),
			Max:   FormatTime(hi, c.Location),
		}
	}
	return md
}

func summarizeCoord(c *Coord) CoordSummary {
	s := CoordSummary{Size: c.Len()}
	if c.Len() == 0 {
		return s
	}
	if c.IsTime() {
		lo, hi := timeExtent(c.Times)
		s.Min = FormatTime(lo, c.Location)
		s.Max = FormatTime(hi, c.Location)
		return s
	}
	s.Min = Portable(floats.Min(c.Values))
	s.Max = Portable(floats.Max(c.Values))
	return s
}

func timeExtent(ts []time.Time) (time.Time, time.Time) {
	lo, hi := ts[0], ts[0]
	for _, t := range ts[1:] {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	return lo, hi
}

// FormatTime renders t in loc. A nil loc marks a naive timestamp, rendered
// without offset.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		return t.UTC().Format(TimeLayout)
	}
	return t.In(loc).Format(TimeLayout + "-07:00")
}

// PortableAttrs converts every attribute value with Portable.
func PortableAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = Portable(v)
	}
	return out
}

// Portable converts decoder values into JSON-encodable scalars and slices.
// Integers become int64, floats become float64 (NaN and Inf become nil),
// byte slices become strings and other slices become []any.
func Portable(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return Portable(float64(x))
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Portable(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Portable(rv.Index(i).Interface())
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	}
	return nil
}
