package domain

import (
	"math"
	"time"
)

// ChartLabels are the titles a chart collaborator shows for a series.
type ChartLabels struct {
	Title string `json:"title"`
	XAxis string `json:"xaxis"`
	YAxis string `json:"yaxis"`
}

// SeriesRecord is the reduction of one variable at a grid point.
//
// Variables spanning the time dimension carry one value per time step in
// Times, or in Steps when the time axis could not be decoded to timestamps.
// Any other variable carries a single Scalar.
type SeriesRecord struct {
	Name     string
	Units    string
	Times    []time.Time
	Location *time.Location
	Steps    []float64
	Values   []float64
	Scalar   *float64

	// Fixed holds the coordinate value chosen for each extra dimension
	// (level, member, expver, ...): the first index, in dimension order,
	// whose series holds a value.
	Fixed map[string]float64

	Chart ChartLabels
}

// IsSeries reports whether r holds a time series rather than a scalar.
func (r SeriesRecord) IsSeries() bool { return r.Scalar == nil }

// ChartLabelsFor returns the labels of the chart of variable name.
func ChartLabelsFor(name, units string) ChartLabels {
	y := units
	if y == "" {
		y = "Value"
	}
	return ChartLabels{Title: "Time Series of " + name, XAxis: "Time", YAxis: y}
}

// ReduceSeries reduces every data variable of a point view to a series or a
// scalar, in dataset order. Variables holding no value or only missing values
// are left out entirely.
func ReduceSeries(point *Dataset, roles Roles, units UnitNormalizer) []SeriesRecord {
	var timeC *Coord
	if roles.Time != "" {
		if c := point.Coord(roles.Time); c != nil && len(c.Dims) == 1 {
			timeC = c
		}
	}

	var out []SeriesRecord
	for _, v := range point.Vars {
		if len(v.Data) == 0 || v.AllMissing() {
			continue
		}
		u, data, _ := units.Normalize(v.Units(), v.Data)
		rec := SeriesRecord{
			Name:  v.Name,
			Units: u,
			Chart: ChartLabelsFor(v.Name, u),
		}

		axis := -1
		if timeC != nil {
			axis = indexOf(v.Dims, timeC.Dims[0])
		}
		if axis < 0 {
			x, ok := firstValid(data)
			if !ok {
				continue
			}
			rec.Scalar = &x
			out = append(out, rec)
			continue
		}

		values, at, ok := firstSeries(data, v.Shape, axis)
		if !ok {
			continue
		}
		rec.Values = values
		if timeC.IsTime() {
			rec.Times = timeC.Times
			rec.Location = timeC.Location
		} else {
			rec.Steps = timeC.Values
		}
		for i, d := range v.Dims {
			if i == axis {
				continue
			}
			if rec.Fixed == nil {
				rec.Fixed = make(map[string]float64)
			}
			rec.Fixed[d] = coordValue(point, d, at[i])
		}
		out = append(out, rec)
	}
	return out
}

// firstSeries returns the values on axis at the first index of the other
// dimensions, last dimension fastest, that holds a non-missing value. at is
// that index; its axis entry is unused.
func firstSeries(data []float64, shape []int, axis int) (values []float64, at []int, ok bool) {
	at = make([]int, len(shape))
	for {
		values = along(data, shape, axis, at)
		if !allNaN(values) {
			return values, at, true
		}
		if !advance(at, shape, axis) {
			return nil, nil, false
		}
	}
}

// advance steps at to the next index over every dimension but axis.
func advance(at, shape []int, axis int) bool {
	for i := len(at) - 1; i >= 0; i-- {
		if i == axis {
			continue
		}
		at[i]++
		if at[i] < shape[i] {
			return true
		}
		at[i] = 0
	}
	return false
}

// along extracts the values on axis with every other index held at at.
func along(data []float64, shape []int, axis int, at []int) []float64 {
	base := 0
	for i, k := range at {
		if i != axis {
			base += k * product(shape[i+1:])
		}
	}
	stride := product(shape[axis+1:])
	out := make([]float64, shape[axis])
	for i := range out {
		out[i] = data[base+i*stride]
	}
	return out
}

// coordValue is the coordinate value of dim at index i, or i itself when the
// dimension has no numeric coordinate.
func coordValue(ds *Dataset, dim string, i int) float64 {
	c := ds.Coord(dim)
	if c == nil || c.IsTime() || len(c.Dims) != 1 || i >= len(c.Values) {
		return float64(i)
	}
	return c.Values[i]
}

func firstValid(xs []float64) (float64, bool) {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return x, true
		}
	}
	return 0, false
}

func allNaN(xs []float64) bool {
	_, ok := firstValid(xs)
	return !ok
}
