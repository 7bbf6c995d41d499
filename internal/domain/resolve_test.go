package domain

import (
	"errors"
	"math"
	"testing"
)

func TestResolvePoint(t *testing.T) {
	ds := newTestDataset()
	roles := ds.Roles()

	tests := []struct {
		name     string
		lat, lon float64
		want     GridPoint
	}{
		{"inside", 9.6, 30.4, GridPoint{Lat: 9.5, Lon: 30.5, LatIndex: 1, LonIndex: 1}},
		{"exact", 10, 30, GridPoint{Lat: 10, Lon: 30, LatIndex: 0, LonIndex: 0}},
		{"outside clamps to edge", -45, 170, GridPoint{Lat: 9, Lon: 30.5, LatIndex: 2, LonIndex: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePoint(ds, roles, tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("ResolvePoint: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolvePoint(%v, %v) = %+v, want %+v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestResolvePoint_Idempotent(t *testing.T) {
	ds := newTestDataset()
	roles := ds.Roles()
	for _, q := range [][2]float64{{0, 0}, {9.74, 30.26}, {50, -50}} {
		p, err := ResolvePoint(ds, roles, q[0], q[1])
		if err != nil {
			t.Fatalf("ResolvePoint: %v", err)
		}
		again, err := ResolvePoint(ds, roles, p.Lat, p.Lon)
		if err != nil {
			t.Fatalf("ResolvePoint: %v", err)
		}
		if again != p {
			t.Errorf("resolving %+v again gave %+v", p, again)
		}
	}
}

func TestResolvePoint_Errors(t *testing.T) {
	ds := newTestDataset()
	if _, err := ResolvePoint(ds, Roles{Time: "time"}, 1, 1); !errors.Is(err, ErrMissingSpatialDimension) {
		t.Errorf("missing roles: err = %v, want ErrMissingSpatialDimension", err)
	}
	if _, err := ResolvePoint(ds, ds.Roles(), math.NaN(), 1); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("NaN query: err = %v, want ErrInvalidRequest", err)
	}
}

func TestDataset_AtPoint(t *testing.T) {
	ds := newTestDataset()
	roles := ds.Roles()
	p, err := ResolvePoint(ds, roles, 9, 30.5)
	if err != nil {
		t.Fatalf("ResolvePoint: %v", err)
	}
	view := ds.AtPoint(roles, p)
	if len(view.Dims) != 1 || view.Dims[0].Name != "time" {
		t.Fatalf("dims = %+v, want only time", view.Dims)
	}
	if c := view.Coord("latitude"); !c.IsScalar() || c.Values[0] != 9 {
		t.Errorf("latitude = %+v", c)
	}
	if v := view.Var("elevation"); len(v.Data) != 1 || v.Data[0] != 150 {
		t.Errorf("elevation = %v, want [150]", v.Data)
	}
	// t2m[time=0, lat=2, lon=1] = 273.15 + 5
	if v := view.Var("t2m"); v.Data[0] != 273.15+5 {
		t.Errorf("t2m[0] = %v", v.Data[0])
	}
}
