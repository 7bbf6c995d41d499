package domain

import (
	"fmt"
	"strings"
)

// Roles maps the latitude, longitude and time roles to coordinate names. An
// empty name means the role was not found.
type Roles struct {
	Lat  string `json:"lat,omitempty"`
	Lon  string `json:"lon,omitempty"`
	Time string `json:"time,omitempty"`
}

var timeMarkers = []string{"time", "date", "datetime", "valid_time"}

// ClassifyRoles assigns roles by substring match on lowercased names.
//
// Each name is checked against the open roles in the order latitude ("lat"),
// longitude ("lon"), time, and receives at most one role; each role goes to
// the first name that matches it. A name such as "latitude_time" is therefore
// a latitude even though it also mentions time.
func ClassifyRoles(names []string) Roles {
	var r Roles
	for _, name := range names {
		n := strings.ToLower(name)
		switch {
		case r.Lat == "" && strings.Contains(n, "lat"):
			r.Lat = name
		case r.Lon == "" && strings.Contains(n, "lon"):
			r.Lon = name
		case r.Time == "" && containsAny(n, timeMarkers):
			r.Time = name
		}
	}
	return r
}

// ClassifyRolesWithHints prefers CF metadata over names: a coordinate whose
// standard_name is latitude/longitude/time, or whose axis attribute is Y/X/T,
// claims that role first. Roles left open fall back to ClassifyRoles.
func ClassifyRolesWithHints(ds *Dataset) Roles {
	var hinted Roles
	for _, c := range ds.Coords {
		std, _ := c.Attrs["standard_name"].(string)
		axis, _ := c.Attrs["axis"].(string)
		switch {
		case hinted.Lat == "" && (std == "latitude" || strings.EqualFold(axis, "Y")):
			hinted.Lat = c.Name
		case hinted.Lon == "" && (std == "longitude" || strings.EqualFold(axis, "X")):
			hinted.Lon = c.Name
		case hinted.Time == "" && (std == "time" || strings.EqualFold(axis, "T")):
			hinted.Time = c.Name
		}
	}
	fallback := ds.Roles()
	taken := func(name string) bool {
		return name == hinted.Lat || name == hinted.Lon || name == hinted.Time
	}
	if hinted.Lat == "" && !taken(fallback.Lat) {
		hinted.Lat = fallback.Lat
	}
	if hinted.Lon == "" && !taken(fallback.Lon) {
		hinted.Lon = fallback.Lon
	}
	if hinted.Time == "" && !taken(fallback.Time) {
		hinted.Time = fallback.Time
	}
	return hinted
}

// HasSpatial reports whether both latitude and longitude were found.
func (r Roles) HasSpatial() bool { return r.Lat != "" && r.Lon != "" }

// RequireSpatial returns ErrMissingSpatialDimension unless both latitude and
// longitude were found.
func (r Roles) RequireSpatial() error {
	switch {
	case r.Lat == "" && r.Lon == "":
		return fmt.Errorf("%w: no latitude or longitude coordinate", ErrMissingSpatialDimension)
	case r.Lat == "":
		return fmt.Errorf("%w: no latitude coordinate", ErrMissingSpatialDimension)
	case r.Lon == "":
		return fmt.Errorf("%w: no longitude coordinate", ErrMissingSpatialDimension)
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
