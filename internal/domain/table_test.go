package domain

import (
	"reflect"
	"testing"
)

func TestBuildTable_DropsConstantColumns(t *testing.T) {
	view, _ := pointView(t, 10, 30)
	tbl := BuildTable(view, TableOptions{})

	if got, want := tbl.Header(), []string{"time", "t2m"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("header = %v, want %v", got, want)
	}
	if tbl.Rows != 10 {
		t.Errorf("rows = %d, want 10", tbl.Rows)
	}

	var dropped []string
	for _, d := range tbl.Dropped {
		dropped = append(dropped, d.String())
	}
	want := []string{"latitude(10)", "longitude(30)", "zero(0)", "elevation(100)"}
	if !reflect.DeepEqual(dropped, want) {
		t.Errorf("dropped = %v, want %v", dropped, want)
	}
}

func TestBuildTable_KeepConstant(t *testing.T) {
	view, _ := pointView(t, 10, 30)
	tbl := BuildTable(view, TableOptions{KeepConstant: true})

	want := []string{"time", "latitude", "longitude", "t2m", "zero", "elevation"}
	if got := tbl.Header(); !reflect.DeepEqual(got, want) {
		t.Fatalf("header = %v, want %v", got, want)
	}
	if len(tbl.Dropped) != 0 {
		t.Errorf("dropped = %v, want none", tbl.Dropped)
	}
	zero := tbl.Columns[4]
	for _, c := range zero.Cells {
		if c.String() != "0" {
			t.Fatalf("zero column cell = %q", c.String())
		}
	}
	if got := tbl.Columns[0].Cells[0].String(); got != "2024-01-01 00:00:00" {
		t.Errorf("first time cell = %q", got)
	}
}

func TestBuildTable_SingleRowDropsConstants(t *testing.T) {
	view, _ := pointView(t, 10, 30)
	view = view.Index("time", 0)

	tbl := BuildTable(view, TableOptions{})
	if tbl.Rows != 1 || len(tbl.Columns) != 0 {
		t.Fatalf("rows = %d header = %v, want every column dropped", tbl.Rows, tbl.Header())
	}
	if len(tbl.Dropped) != 6 || tbl.Dropped[0].String() != "time(2024-01-01 00:00:00)" {
		t.Errorf("dropped = %v", tbl.Dropped)
	}

	tbl = BuildTable(view, TableOptions{KeepConstant: true})
	if got := tbl.Header(); !reflect.DeepEqual(got, []string{"time", "latitude", "longitude", "t2m", "zero", "elevation"}) {
		t.Errorf("header with constants = %v", got)
	}
}

func TestBuildTable_Broadcast(t *testing.T) {
	ds := newTestDataset()
	// Keep the whole grid: rows are time x latitude x longitude.
	tbl := BuildTable(ds, TableOptions{KeepConstant: true})
	if tbl.Rows != 60 {
		t.Fatalf("rows = %d, want 60", tbl.Rows)
	}
	var elev Column
	for _, c := range tbl.Columns {
		if c.Name == "elevation" {
			elev = c
		}
	}
	// Row 7 is time 1, latitude 0, longitude 1.
	if got := elev.Cells[7].String(); got != "110" {
		t.Errorf("elevation row 7 = %q, want 110", got)
	}
}

func TestBuildTable_SinglePrecision(t *testing.T) {
	ds := &Dataset{
		Dims: []Dim{{Name: "step", Len: 2}},
		Coords: []*Coord{
			{Name: "step", Dims: []string{"step"}, Shape: []int{2}, Values: []float64{0, 1}},
		},
		Vars: []*Variable{
			{Name: "u10", Dims: []string{"step"}, Shape: []int{2}, Single: true,
				Data: []float64{float64(float32(7.1499877)), float64(float32(0.1))}},
			{Name: "v10", Dims: []string{"step"}, Shape: []int{2},
				Data: []float64{float64(float32(0.1)), 2}},
		},
	}
	tbl := BuildTable(ds, TableOptions{})
	if got := tbl.Columns[1].Cells[0].String(); got != "7.1499877" {
		t.Errorf("float32 cell = %q, want 7.1499877", got)
	}
	if got := tbl.Columns[1].Cells[1].String(); got != "0.1" {
		t.Errorf("float32 cell = %q, want 0.1", got)
	}
	if got := tbl.Columns[2].Cells[0].String(); got != "0.10000000149011612" {
		t.Errorf("float64 cell = %q", got)
	}
}
