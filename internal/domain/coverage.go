package domain

import (
	"math"

	"go.ngs.io/gridquery/internal/grid"
)

// CoveragePadding is the margin, in degrees, added around the grid extent
// for the map rectangle.
const CoveragePadding = 0.5

// Coverage lists the discrete grid of a dataset for the map collaborator.
type Coverage struct {
	Lats          []float64   `json:"lats"`
	Lons          []float64   `json:"lons"`
	Bounds        grid.Bounds `json:"bounds"`
	Rectangle     grid.Bounds `json:"rectangle"`
	Center        LatLon      `json:"center"`
	LatSpacing    float64     `json:"lat_spacing"`
	LonSpacing    float64     `json:"lon_spacing"`
	SnapThreshold float64     `json:"snap_threshold"`
	Points        []LatLon    `json:"points"`
	Truncated     bool        `json:"truncated,omitempty"`
}

// LatLon is a geographic position in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IndexCoverage enumerates the latitude/longitude grid of ds. It returns
// false when either spatial role is unresolved or its coordinate holds no
// values; this is not an error and spatial querying is simply unavailable.
//
// Points are the Cartesian product of the two axes, latitude-major. When
// limit is positive at most limit points are listed and Truncated is set.
func IndexCoverage(ds *Dataset, roles Roles, limit int) (*Coverage, bool) {
	if !roles.HasSpatial() {
		return nil, false
	}
	latC, lonC := ds.Coord(roles.Lat), ds.Coord(roles.Lon)
	if latC == nil || lonC == nil || latC.IsTime() || lonC.IsTime() {
		return nil, false
	}
	lats, lons := latC.Values, lonC.Values
	bounds, err := grid.NewBounds(lats, lons)
	if err != nil {
		return nil, false
	}

	cov := &Coverage{
		Lats:       lats,
		Lons:       lons,
		Bounds:     bounds,
		Rectangle:  bounds.Pad(CoveragePadding),
		Center:     LatLon{Lat: grid.Mean(lats), Lon: grid.Mean(lons)},
		LatSpacing: math.Abs(grid.MeanSpacing(lats)),
		LonSpacing: math.Abs(grid.MeanSpacing(lons)),
	}
	cov.SnapThreshold = math.Hypot(cov.LatSpacing/2, cov.LonSpacing/2)

	total := len(lats) * len(lons)
	n := total
	if limit > 0 && limit < total {
		n = limit
		cov.Truncated = true
	}
	cov.Points = make([]LatLon, 0, n)
outer:
	for _, la := range lats {
		for _, lo := range lons {
			if len(cov.Points) == n {
				break outer
			}
			cov.Points = append(cov.Points, LatLon{Lat: la, Lon: lo})
		}
	}
	return cov, true
}
