package domain

import (
	"fmt"
	"math"

	"go.ngs.io/gridquery/internal/grid"
)

// GridPoint is a latitude/longitude pair present in the dataset's coordinate
// arrays, together with its position on each axis.
type GridPoint struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	LatIndex int     `json:"-"`
	LonIndex int     `json:"-"`
}

// ResolvePoint maps (lat, lon) to the nearest grid point, matching each axis
// independently. Queries outside the grid resolve to an edge point; values
// are never interpolated.
func ResolvePoint(ds *Dataset, roles Roles, lat, lon float64) (GridPoint, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return GridPoint{}, fmt.Errorf("%w: coordinates must be numbers", ErrInvalidRequest)
	}
	if err := roles.RequireSpatial(); err != nil {
		return GridPoint{}, err
	}
	latC, err := spatialAxis(ds, roles.Lat)
	if err != nil {
		return GridPoint{}, err
	}
	lonC, err := spatialAxis(ds, roles.Lon)
	if err != nil {
		return GridPoint{}, err
	}

	i := grid.NearestIndex(latC.Values, lat)
	j := grid.NearestIndex(lonC.Values, lon)
	if i < 0 || j < 0 {
		return GridPoint{}, fmt.Errorf("%w: spatial coordinates hold no values", ErrMissingSpatialDimension)
	}
	return GridPoint{
		Lat:      latC.Values[i],
		Lon:      lonC.Values[j],
		LatIndex: i,
		LonIndex: j,
	}, nil
}

func spatialAxis(ds *Dataset, name string) (*Coord, error) {
	c := ds.Coord(name)
	if c == nil {
		return nil, fmt.Errorf("%w: coordinate %q not present", ErrMissingSpatialDimension, name)
	}
	if c.IsTime() || len(c.Dims) > 1 {
		return nil, fmt.Errorf("%w: coordinate %q is not a 1-D axis", ErrMissingSpatialDimension, name)
	}
	return c, nil
}

// AtPoint selects p from ds. The latitude and longitude dimensions are
// removed and their coordinates kept as scalar coordinates holding the
// resolved values.
func (ds *Dataset) AtPoint(roles Roles, p GridPoint) *Dataset {
	out := ds
	if c := ds.Coord(roles.Lat); c != nil && len(c.Dims) == 1 {
		out = out.Index(c.Dims[0], p.LatIndex)
	}
	if c := out.Coord(roles.Lon); c != nil && len(c.Dims) == 1 {
		out = out.Index(c.Dims[0], p.LonIndex)
	}
	return out
}
