// Package grib loads GRIB files by converting them to NetCDF with the ecCodes
// grib_to_netcdf tool and decoding the result.
package grib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/domain"
)

// DefaultCommand is the ecCodes converter looked up on PATH.
const DefaultCommand = "grib_to_netcdf"

// NetCDFLoader decodes the converted file.
type NetCDFLoader interface {
	Load(ctx context.Context, path string) (*domain.Dataset, error)
}

// Converter runs an external GRIB to NetCDF converter.
type Converter struct {
	// Command is the converter executable. It is invoked as
	// "Command -o <out.nc> <in.grib>".
	Command string
	// TempDir holds converted files while they are decoded. Empty means
	// os.TempDir.
	TempDir string

	netcdf NetCDFLoader
	log    logrus.FieldLogger
}

// NewConverter creates a Converter that decodes its output with nc.
func NewConverter(command string, nc NetCDFLoader, log logrus.FieldLogger) *Converter {
	if command == "" {
		command = DefaultCommand
	}
	return &Converter{Command: command, netcdf: nc, log: log}
}

// Load converts the GRIB file at path and decodes it. The temporary NetCDF
// file is removed afterwards. Conversion failures are returned as
// *domain.ReadError with the converter's output as message.
func (c *Converter) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	tmp, err := os.CreateTemp(c.TempDir, "gridquery-*.nc")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	out := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(out) }()

	cmd := exec.CommandContext(ctx, c.Command, "-o", out, path)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &domain.ReadError{Path: path, Err: fmt.Errorf("GRIB support needs %s on PATH: %w", c.Command, err)}
		}
		msg := strings.TrimSpace(output.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &domain.ReadError{Path: path, Err: errors.New(msg)}
	}
	if c.log != nil {
		c.log.WithFields(logrus.Fields{"path": path, "converter": c.Command}).Debug("converted grib file")
	}

	ds, err := c.netcdf.Load(ctx, out)
	if err != nil {
		var re *domain.ReadError
		if errors.As(err, &re) {
			return nil, &domain.ReadError{Path: path, Err: re.Err}
		}
		return nil, err
	}
	ds.Source = path
	return ds, nil
}
