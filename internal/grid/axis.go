// Package grid provides helpers for one-dimensional coordinate axes of
// rectilinear grids.
package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Bounds is the bounding rectangle of a lat/lon grid in degrees.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Contains reports whether (lat, lon) falls inside the rectangle, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Pad returns the rectangle grown by margin degrees on every side.
func (b Bounds) Pad(margin float64) Bounds {
	return Bounds{
		South: b.South - margin,
		West:  b.West - margin,
		North: b.North + margin,
		East:  b.East + margin,
	}
}

// NewBounds builds the bounding rectangle of the lat and lon axes.
// Axes may be ascending or descending.
func NewBounds(lats, lons []float64) (Bounds, error) {
	if len(lats) == 0 || len(lons) == 0 {
		return Bounds{}, fmt.Errorf("grid must have at least 1 latitude and 1 longitude value")
	}
	return Bounds{
		South: floats.Min(lats),
		West:  floats.Min(lons),
		North: floats.Max(lats),
		East:  floats.Max(lons),
	}, nil
}

// NearestIndex returns the index of the axis value closest to target.
//
// The axis does not need to be sorted. Ties are broken toward the larger
// coordinate value, and NaN axis entries never match. It returns -1 for an
// empty axis or an axis made only of NaN.
func NearestIndex(axis []float64, target float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range axis {
		if math.IsNaN(v) {
			continue
		}
		d := math.Abs(v - target)
		switch {
		case best == -1, d < bestDist:
			best, bestDist = i, d
		case d == bestDist && v > axis[best]:
			best = i
		}
	}
	return best
}

// MeanSpacing returns the average step between consecutive axis values, or 0
// for axes shorter than two values.
func MeanSpacing(axis []float64) float64 {
	if len(axis) < 2 {
		return 0
	}
	return (axis[len(axis)-1] - axis[0]) / float64(len(axis)-1)
}

// Mean returns the arithmetic mean of the axis values.
func Mean(axis []float64) float64 {
	if len(axis) == 0 {
		return math.NaN()
	}
	return floats.Sum(axis) / float64(len(axis))
}
