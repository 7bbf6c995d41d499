package grib

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"go.ngs.io/gridquery/internal/domain"
)

type fakeNetCDF struct {
	path    string
	content string
}

func (f *fakeNetCDF) Load(_ context.Context, path string) (*domain.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.path, f.content = path, string(b)
	return &domain.Dataset{Source: path}, nil
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converter")
	}
	path := filepath.Join(t.TempDir(), "fake_grib_to_netcdf")
	//nolint:gosec // G306: the script must be executable.
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestConverter_Load(t *testing.T) {
	script := writeScript(t, `[ "$1" = "-o" ] || exit 2; echo "converted $3" > "$2"`)
	nc := &fakeNetCDF{}
	c := NewConverter(script, nc, nil)
	c.TempDir = t.TempDir()

	ds, err := c.Load(context.Background(), "/data/era5.grib")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Source != "/data/era5.grib" {
		t.Errorf("source = %q, want the GRIB path", ds.Source)
	}
	if nc.content != "converted /data/era5.grib\n" {
		t.Errorf("converter output = %q", nc.content)
	}
	if _, err := os.Stat(nc.path); !os.IsNotExist(err) {
		t.Errorf("temporary file %s was not removed", nc.path)
	}
}

func TestConverter_LoadFailure(t *testing.T) {
	script := writeScript(t, `echo "ECCODES ERROR: wrong message length" >&2; exit 1`)
	c := NewConverter(script, &fakeNetCDF{}, nil)
	c.TempDir = t.TempDir()

	_, err := c.Load(context.Background(), "broken.grib")
	if !errors.Is(err, domain.ErrDatasetRead) {
		t.Fatalf("err = %v, want ErrDatasetRead", err)
	}
	if err.Error() != "ECCODES ERROR: wrong message length" {
		t.Errorf("message = %q, want converter output", err.Error())
	}
}

func TestConverter_MissingCommand(t *testing.T) {
	c := NewConverter("gridquery-no-such-converter", &fakeNetCDF{}, nil)
	c.TempDir = t.TempDir()
	if _, err := c.Load(context.Background(), "x.grib"); !errors.Is(err, domain.ErrDatasetRead) {
		t.Fatalf("err = %v, want ErrDatasetRead", err)
	}
}
