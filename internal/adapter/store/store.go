// Package store loads gridded dataset files, choosing a decoder from the
// file extension.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/adapter/store/grib"
	"go.ngs.io/gridquery/internal/adapter/store/native"
	"go.ngs.io/gridquery/internal/adapter/store/netcdf"
	"go.ngs.io/gridquery/internal/domain"
)

// DatasetLoader decodes a dataset file into memory.
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*domain.Dataset, error)
}

// NetCDF backends.
const (
	BackendNetCDF = "netcdf" // netCDF-C through cgo
	BackendNative = "native" // pure Go
)

// Extensions accepted for upload, lowercased and without the dot.
var Extensions = []string{"nc", "grib", "grb"}

// AllowedFile reports whether name has one of the accepted extensions.
func AllowedFile(name string) bool {
	_, ok := kindOf(name)
	return ok
}

type kind int

const (
	kindNetCDF kind = iota
	kindGRIB
)

func kindOf(name string) (kind, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "nc":
		return kindNetCDF, true
	case "grib", "grb":
		return kindGRIB, true
	}
	return 0, false
}

// Dispatcher routes files to the NetCDF or GRIB loader by extension.
type Dispatcher struct {
	NetCDF DatasetLoader
	GRIB   DatasetLoader
}

// Load decodes the file at path. Files whose extension is not accepted are
// rejected with domain.ErrUnsupportedFile before any decoding.
func (d *Dispatcher) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	k, ok := kindOf(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, filepath.Base(path))
	}
	if k == kindGRIB {
		return d.GRIB.Load(ctx, path)
	}
	return d.NetCDF.Load(ctx, path)
}

// Options configures NewLoader.
type Options struct {
	Backend       string // BackendNetCDF or BackendNative
	GRIBConverter string // defaults to grib.DefaultCommand
	TempDir       string
}

// NewLoader builds the Dispatcher for the configured backend.
func NewLoader(opts Options, log logrus.FieldLogger) (*Dispatcher, error) {
	var nc DatasetLoader
	switch strings.ToLower(opts.Backend) {
	case "", BackendNetCDF:
		nc = netcdf.NewLoader(log)
	case BackendNative:
		nc = native.NewLoader(log)
	default:
		return nil, fmt.Errorf("unknown netcdf backend %q (want %s or %s)", opts.Backend, BackendNetCDF, BackendNative)
	}
	conv := grib.NewConverter(opts.GRIBConverter, nc, log)
	conv.TempDir = opts.TempDir
	return &Dispatcher{NetCDF: nc, GRIB: conv}, nil
}
