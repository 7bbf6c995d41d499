package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.ngs.io/gridquery/internal/adapter/blob"
	"go.ngs.io/gridquery/internal/adapter/render"
	"go.ngs.io/gridquery/internal/adapter/store"
	"go.ngs.io/gridquery/internal/config"
	"go.ngs.io/gridquery/internal/domain"
	"go.ngs.io/gridquery/internal/usecase"
)

const version = "0.1.0"

// app carries the state shared by the subcommands.
type app struct {
	v   *viper.Viper
	out io.Writer
	cfg config.Config
	log *logrus.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: config.New(), out: out}
	a.v.SetDefault(config.KeyLogLevel, "warn")

	root := &cobra.Command{
		Use:   "gridquery",
		Short: "Query gridded NetCDF and GRIB datasets.",
		Long: `gridquery reads a NetCDF (.nc) or GRIB (.grib, .grb) file, or a gs://bucket/object,
and reports its metadata, its spatial coverage, or the time series of every
variable at the grid point nearest a latitude and longitude.

Configuration is read from flags, from environment variables named after the
upper-cased setting (NETCDF_BACKEND, STRICT_KELVIN, ...) and from the file
given by --config.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.String(config.KeyConfig, "", "configuration file (yaml, toml or json)")
	pf.String("netcdf-backend", "netcdf", "NetCDF decoder: netcdf (netCDF-C) or native (pure Go)")
	pf.String("grib-converter", "grib_to_netcdf", "ecCodes grib_to_netcdf command")
	pf.Bool("role-hints", false, "use CF axis and standard_name attributes to find coordinates")
	pf.Bool("strict-kelvin", false, "convert only units spelled as Kelvin")
	pf.Int("coverage-point-limit", 0, "maximum grid points listed in coverage, 0 for all")
	pf.String("log-level", "warn", "debug, info, warn or error")

	root.AddCommand(a.versionCmd(), a.infoCmd(), a.coverageCmd(), a.seriesCmd(), a.exportCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// open loads path, which may be a gs:// URI, into a new service. The
// returned cleanup removes any downloaded copy.
func (a *app) open(ctx context.Context, path string) (*usecase.Service, *usecase.DatasetInfo, func(), error) {
	loader, err := store.NewLoader(store.Options{
		Backend:       a.cfg.NetCDFBackend,
		GRIBConverter: a.cfg.GRIBConverter,
	}, a.log)
	if err != nil {
		return nil, nil, nil, err
	}
	opts := usecase.Options{
		CoveragePointLimit: a.cfg.CoveragePointLimit,
		RoleHints:          a.cfg.RoleHints,
		StrictKelvin:       a.cfg.StrictKelvin,
	}

	if !strings.HasPrefix(path, "gs://") {
		svc := usecase.NewService(loader, nil, opts, a.log)
		info, err := svc.Open(ctx, path)
		return svc, info, func() {}, err
	}

	o, err := blob.ParseURI(path)
	if err != nil {
		return nil, nil, nil, err
	}
	dir, err := os.MkdirTemp("", "gridquery-")
	if err != nil {
		return nil, nil, nil, err
	}
	fetcher := blob.NewFetcher(o.Bucket, a.log)
	cleanup := func() {
		_ = fetcher.Close()
		_ = os.RemoveAll(dir)
	}
	opts.UploadDir = dir
	svc := usecase.NewService(loader, fetcher, opts, a.log)
	info, err := svc.LoadObject(ctx, path)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return svc, info, cleanup, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version number",
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("gridquery v%s\n", version)
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "info FILE",
		Short:             "Print dataset metadata as JSON",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, info, cleanup, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()
			return a.printJSON(info.Info)
		},
	}
}

func (a *app) coverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "coverage FILE",
		Short:             "Print the latitude/longitude grid as JSON",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, info, cleanup, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()
			if info.Coverage == nil {
				return domain.ErrMissingSpatialDimension
			}
			return a.printJSON(info.Coverage)
		},
	}
}

// pointFlags registers the point and date range flags on cmd.
func pointFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("lat", 0, "latitude of the query point")
	f.Float64("lon", 0, "longitude of the query point")
	f.String("start", "", "first date or date-time to include (ISO 8601)")
	f.String("end", "", "last date or date-time to include (ISO 8601)")
}

// pointRequest builds a request from the flags of cmd. Coordinates left
// unset stay nil so validation reports them.
func pointRequest(cmd *cobra.Command) (usecase.PointRequest, error) {
	f := cmd.Flags()
	var req usecase.PointRequest
	for _, c := range []struct {
		name string
		dst  **float64
	}{{"lat", &req.Lat}, {"lon", &req.Lon}} {
		if !f.Changed(c.name) {
			continue
		}
		x, err := f.GetFloat64(c.name)
		if err != nil {
			return req, err
		}
		*c.dst = &x
	}
	req.StartDate, _ = f.GetString("start")
	req.EndDate, _ = f.GetString("end")
	return req, req.Validate()
}

func (a *app) seriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "series FILE",
		Short:             "Print the time series at the nearest grid point as JSON",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := pointRequest(cmd)
			if err != nil {
				return err
			}
			svc, _, cleanup, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()
			resp, err := svc.TimeSeries(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printJSON(resp)
		},
	}
	pointFlags(cmd)
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "export FILE",
		Short:             "Export the point table as csv, xlsx, docx or txt",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := pointRequest(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if _, err := render.ParseTarget(format); err != nil {
				return err
			}
			keep, _ := cmd.Flags().GetBool("keep-constant")
			output, _ := cmd.Flags().GetString("output")

			svc, _, cleanup, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()
			out, err := svc.Export(cmd.Context(), usecase.ExportRequest{
				PointRequest: req,
				FileType:     format,
				KeepConstant: keep,
			})
			if err != nil {
				return err
			}
			return a.write(output, out)
		},
	}
	pointFlags(cmd)
	f := cmd.Flags()
	f.StringP("format", "f", "csv", "output format: "+strings.Join(render.Names(), ", "))
	f.Bool("keep-constant", false, "keep columns holding a single value")
	f.StringP("output", "o", "", "output file (default: the format's file name, - for stdout)")
	return cmd
}

func (a *app) write(output string, e *usecase.Export) error {
	if output == "-" {
		_, err := a.out.Write(e.Body)
		return err
	}
	if output == "" {
		output = e.FileName
	}
	if err := os.WriteFile(output, e.Body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	a.log.WithField("file", output).Info("export written")
	return nil
}
