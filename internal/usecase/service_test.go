package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.ngs.io/gridquery/internal/adapter/blob"
	"go.ngs.io/gridquery/internal/domain"
)

// gridDataset is a 5-day, 2x2 grid with a Kelvin temperature, an all
// missing variable and a time-invariant elevation.
func gridDataset(source string) *domain.Dataset {
	times := make([]time.Time, 5)
	for i := range times {
		times[i] = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	n := 5 * 2 * 2
	t2m := make([]float64, n)
	tp := make([]float64, n)
	for i := range t2m {
		t2m[i] = 273.15 + float64(i)
		tp[i] = math.NaN()
	}
	dims := []string{"time", "lat", "lon"}
	shape := []int{5, 2, 2}
	return &domain.Dataset{
		Source: source,
		Dims:   []domain.Dim{{Name: "time", Len: 5}, {Name: "lat", Len: 2}, {Name: "lon", Len: 2}},
		Coords: []*domain.Coord{
			{Name: "time", Dims: []string{"time"}, Shape: []int{5}, Times: times},
			{Name: "lat", Dims: []string{"lat"}, Shape: []int{2}, Values: []float64{45, 44}},
			{Name: "lon", Dims: []string{"lon"}, Shape: []int{2}, Values: []float64{7, 8}},
		},
		Vars: []*domain.Variable{
			{Name: "t2m", Dims: dims, Shape: shape, Data: t2m, Attrs: map[string]any{"units": "K"}},
			{Name: "tp", Dims: dims, Shape: shape, Data: tp, Attrs: map[string]any{"units": "m"}},
			{Name: "elevation", Dims: []string{"lat", "lon"}, Shape: []int{2, 2},
				Data: []float64{500, 600, 700, 800}, Attrs: map[string]any{"units": "m"}},
		},
		Attrs: map[string]any{"title": "grid"},
	}
}

type fakeLoader struct {
	loaded []string
	err    error
}

func (f *fakeLoader) Load(_ context.Context, path string) (*domain.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.loaded = append(f.loaded, path)
	return gridDataset(path), nil
}

func newTestService(t *testing.T) (*Service, *fakeLoader) {
	t.Helper()
	l := &fakeLoader{}
	return NewService(l, nil, Options{UploadDir: filepath.Join(t.TempDir(), "uploads")}, nil), l
}

func ptr(x float64) *float64 { return &x }

func TestService_Upload(t *testing.T) {
	s, l := newTestService(t)
	info, err := s.Upload(context.Background(), "../My ERA5.nc", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	want := filepath.Join(s.opts.UploadDir, "My_ERA5.nc")
	if len(l.loaded) != 1 || l.loaded[0] != want {
		t.Fatalf("loaded %v, want %s", l.loaded, want)
	}
	if b, err := os.ReadFile(want); err != nil || string(b) != "bytes" {
		t.Errorf("saved file = %q, %v", b, err)
	}
	if info.Generation != 1 || info.Info.Source != "My_ERA5.nc" {
		t.Errorf("info = generation %d source %q", info.Generation, info.Info.Source)
	}
	if info.Coverage == nil || len(info.Coverage.Points) != 4 {
		t.Fatalf("coverage = %+v", info.Coverage)
	}
	if info.Info.Roles != (domain.Roles{Lat: "lat", Lon: "lon", Time: "time"}) {
		t.Errorf("roles = %+v", info.Info.Roles)
	}

	// re-uploading the same name overwrites the file and bumps the generation
	info, err = s.Upload(context.Background(), "My ERA5.nc", strings.NewReader("new"))
	if err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if b, _ := os.ReadFile(want); string(b) != "new" || info.Generation != 2 {
		t.Errorf("after re-upload: content %q generation %d", b, info.Generation)
	}
}

func TestService_UploadRejects(t *testing.T) {
	s, l := newTestService(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "", strings.NewReader("")); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("empty name: err = %v", err)
	}
	if _, err := s.Upload(ctx, "notes.txt", strings.NewReader("")); !errors.Is(err, domain.ErrUnsupportedFile) {
		t.Errorf("txt: err = %v", err)
	}
	if len(l.loaded) != 0 {
		t.Error("rejected upload reached the loader")
	}

	l.err = &domain.ReadError{Path: "x.nc", Err: errors.New("NetCDF: Unknown file format")}
	_, err := s.Upload(ctx, "x.nc", strings.NewReader("junk"))
	if !errors.Is(err, domain.ErrDatasetRead) || err.Error() != "NetCDF: Unknown file format" {
		t.Errorf("decode failure: err = %v", err)
	}
	if _, ok := s.Session().Current(); ok {
		t.Error("failed load must not install a dataset")
	}
}

func TestService_QueriesBeforeUpload(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.Info(); !errors.Is(err, domain.ErrNoDatasetLoaded) {
		t.Errorf("Info: err = %v", err)
	}
	if _, err := s.TimeSeries(ctx, PointRequest{Lat: ptr(1), Lon: ptr(2)}); !errors.Is(err, domain.ErrNoDatasetLoaded) {
		t.Errorf("TimeSeries: err = %v", err)
	}
	if _, err := s.Export(ctx, ExportRequest{PointRequest: PointRequest{Lat: ptr(1), Lon: ptr(2)}}); !errors.Is(err, domain.ErrNoDatasetLoaded) {
		t.Errorf("Export: err = %v", err)
	}
}

func TestService_TimeSeries(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.Open(ctx, "/data/grid.nc"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	resp, err := s.TimeSeries(ctx, PointRequest{
		Lat: ptr(44.2), Lon: ptr(7.9),
		StartDate: "2024-01-02T00:00:00+00:00", EndDate: "2024-01-04",
	})
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if resp.Coordinates.Lat != 44 || resp.Coordinates.Lon != 8 {
		t.Errorf("coordinates = %+v", resp.Coordinates)
	}
	if _, ok := resp.Series["tp"]; ok {
		t.Error("all-missing variable must be skipped")
	}
	t2m, ok := resp.Series["t2m"]
	if !ok {
		t.Fatalf("series = %v", resp.Series)
	}
	// point (lat 44, lon 8) is flat index 3 of each 2x2 slice
	if len(t2m.Values) != 3 || math.Abs(float64(t2m.Values[0])-7) > 1e-9 || t2m.Units != "C" {
		t.Errorf("t2m = %+v", t2m)
	}
	if t2m.Times[0] != "2024-01-02 00:00:00" || t2m.Chart.Title != "Time Series of t2m" {
		t.Errorf("t2m times %v chart %+v", t2m.Times, t2m.Chart)
	}
	if sc, ok := resp.Scalars["elevation"]; !ok || sc.Value != 800 {
		t.Errorf("scalars = %+v", resp.Scalars)
	}

	if _, err := json.Marshal(resp); err != nil {
		t.Errorf("marshal: %v", err)
	}
}

func TestService_TimeSeriesErrors(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.Open(ctx, "grid.nc"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err := s.TimeSeries(ctx, PointRequest{Lat: ptr(44)})
	if !errors.Is(err, domain.ErrInvalidRequest) || !strings.Contains(err.Error(), "Coordinates not provided") {
		t.Errorf("missing lon: err = %v", err)
	}
	_, err = s.TimeSeries(ctx, PointRequest{Lat: ptr(44), Lon: ptr(7), StartDate: "2025-01-01"})
	if !errors.Is(err, domain.ErrEmptyTimeWindow) {
		t.Errorf("empty window: err = %v", err)
	}
	_, err = s.TimeSeries(ctx, PointRequest{Lat: ptr(44), Lon: ptr(7), Generation: 7})
	if !errors.Is(err, domain.ErrDatasetReplaced) {
		t.Errorf("stale generation: err = %v", err)
	}
}

func TestService_Export(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.Open(ctx, "grid.nc"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	req := ExportRequest{PointRequest: PointRequest{Lat: ptr(45), Lon: ptr(7)}, FileType: "csv"}
	out, err := s.Export(ctx, req)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out.FileName != "timeseries.csv" || out.ContentType != "text/csv" {
		t.Errorf("export = %s %s", out.FileName, out.ContentType)
	}
	rows, err := csv.NewReader(bytes.NewReader(out.Body)).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	// lat, lon and elevation are constant at a point and dropped
	if got := strings.Join(rows[0], ","); got != "time,t2m" {
		t.Errorf("header = %q", got)
	}
	if len(rows) != 6 || rows[1][0] != "2024-01-01 00:00:00" || rows[1][1] != "0" {
		t.Errorf("rows = %v", rows)
	}

	req.KeepConstant = true
	out, err = s.Export(ctx, req)
	if err != nil {
		t.Fatalf("Export keep: %v", err)
	}
	rows, _ = csv.NewReader(bytes.NewReader(out.Body)).ReadAll()
	if got := strings.Join(rows[0], ","); got != "time,lat,lon,t2m,elevation" {
		t.Errorf("header with constants = %q", got)
	}

	req.FileType = "pdf"
	if _, err := s.Export(ctx, req); !errors.Is(err, domain.ErrUnsupportedExportFormat) {
		t.Errorf("pdf: err = %v", err)
	}

	req.FileType = "txt"
	out, err = s.Export(ctx, req)
	if err != nil {
		t.Fatalf("Export txt: %v", err)
	}
	if !strings.HasPrefix(string(out.Body), domain.ExportTitle+"\nGrid Point: Lat 45.0000, Lon 7.0000\n") {
		t.Errorf("txt = %q", out.Body)
	}
}

type fakeFetcher struct {
	got blob.Object
}

func (f *fakeFetcher) Fetch(_ context.Context, o blob.Object, dir string, name func(string) string) (string, error) {
	f.got = o
	path := filepath.Join(dir, name(filepath.Base(o.Name)))
	return path, os.WriteFile(path, []byte("remote"), 0o600)
}

func TestService_LoadObject(t *testing.T) {
	l := &fakeLoader{}
	f := &fakeFetcher{}
	s := NewService(l, f, Options{UploadDir: t.TempDir()}, nil)
	ctx := context.Background()

	info, err := s.LoadObject(ctx, "gs://grids/era5/t 2m.nc")
	if err != nil {
		t.Fatalf("LoadObject: %v", err)
	}
	if f.got.Bucket != "grids" || info.Info.Source != "t_2m.nc" {
		t.Errorf("fetched %+v, source %q", f.got, info.Info.Source)
	}

	if _, err := s.LoadObject(ctx, "https://example.com/x.nc"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("bad uri: err = %v", err)
	}
	if _, err := s.LoadObject(ctx, "gs://grids/readme.md"); !errors.Is(err, domain.ErrUnsupportedFile) {
		t.Errorf("bad extension: err = %v", err)
	}
	if _, err := NewService(l, nil, Options{}, nil).LoadObject(ctx, "gs://grids/a.nc"); !errors.Is(err, ErrRemoteDisabled) {
		t.Errorf("disabled: err = %v", err)
	}
}
