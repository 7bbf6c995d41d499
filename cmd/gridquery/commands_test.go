package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.ngs.io/gridquery/internal/domain"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "gridquery v") {
		t.Errorf("output = %q", out)
	}
}

func TestSeries_MissingCoordinates(t *testing.T) {
	_, err := run("series", "era5.nc", "--lat", "45")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := run("export", "era5.nc", "--lat", "45", "--lon", "7", "-f", "pdf")
	if !errors.Is(err, domain.ErrUnsupportedExportFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedExportFormat", err)
	}
}

func TestInfo_UnsupportedFile(t *testing.T) {
	_, err := run("info", "notes.txt")
	if !errors.Is(err, domain.ErrUnsupportedFile) {
		t.Fatalf("err = %v, want ErrUnsupportedFile", err)
	}
}

func TestInfo_BadBackend(t *testing.T) {
	if _, err := run("--netcdf-backend", "hdf4", "info", "a.nc"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
