// Package main provides the gridquery HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/adapter/blob"
	"go.ngs.io/gridquery/internal/adapter/store"
	"go.ngs.io/gridquery/internal/config"
	httpHandler "go.ngs.io/gridquery/internal/http"
	"go.ngs.io/gridquery/internal/usecase"
)

const version = "0.1.0"

func main() {
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		fmt.Printf("gridquery-server version %s\n", version)
		return
	}

	cfg, err := config.Load(config.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", version).Info("starting gridquery server")
	log.WithFields(logrus.Fields{
		"port":           cfg.Port,
		"upload_dir":     cfg.UploadDir,
		"max_upload_mb":  cfg.MaxUploadMB,
		"netcdf_backend": cfg.NetCDFBackend,
		"grib_converter": cfg.GRIBConverter,
	}).Info("configuration")

	loader, err := store.NewLoader(store.Options{
		Backend:       cfg.NetCDFBackend,
		GRIBConverter: cfg.GRIBConverter,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize dataset loader")
	}

	// Cloud Storage is optional; without a bucket /load is disabled.
	var fetcher usecase.ObjectFetcher
	if cfg.GCSBucket != "" {
		f := blob.NewFetcher(cfg.GCSBucket, log)
		defer func() { _ = f.Close() }()
		fetcher = f
		log.WithField("bucket", cfg.GCSBucket).Info("cloud storage loading enabled")
	} else {
		log.Info("cloud storage loading disabled (GCS_BUCKET not set)")
	}

	svc := usecase.NewService(loader, fetcher, usecase.Options{
		UploadDir:          cfg.UploadDir,
		CoveragePointLimit: cfg.CoveragePointLimit,
		RoleHints:          cfg.RoleHints,
		StrictKelvin:       cfg.StrictKelvin,
	}, log)

	router := httpHandler.SetupRouter(svc, httpHandler.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, log)

	addr := ":" + cfg.Port
	log.Infof("Server listening on %s", addr)
	log.Infof("Health check: http://localhost:%s/health", cfg.Port)

	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("gridquery server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  gridquery-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  UPLOAD_DIR              Directory uploaded datasets are stored in (default: ./uploads)")
	fmt.Println("  MAX_UPLOAD_MB           Upload size limit in megabytes (default: 100)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  NETCDF_BACKEND          netcdf (netCDF-C) or native (pure Go) (default: netcdf)")
	fmt.Println("  GRIB_CONVERTER          ecCodes grib_to_netcdf command (default: grib_to_netcdf)")
	fmt.Println("  GCS_BUCKET              Cloud Storage bucket POST /load may read from (optional)")
	fmt.Println("  COVERAGE_POINT_LIMIT    Maximum grid points listed in coverage, 0 for all (default: 0)")
	fmt.Println("  ROLE_HINTS              Use CF axis/standard_name attributes to find coordinates (default: false)")
	fmt.Println("  STRICT_KELVIN           Convert only units spelled as Kelvin (default: false)")
	fmt.Println("  LOG_LEVEL               debug, info, warn or error (default: info)")
	fmt.Println("  LOG_FORMAT              text or json (default: text)")
	fmt.Println("  CONFIG                  Optional configuration file (yaml, toml or json)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                 Health check")
	fmt.Println("  POST /upload                 Upload a .nc, .grib or .grb file (multipart field \"file\")")
	fmt.Println("  POST /load                   Load gs://bucket/object (requires GCS_BUCKET)")
	fmt.Println("  GET  /info                   Metadata and coverage of the loaded dataset")
	fmt.Println("  POST /get_timeseries         Time series at the nearest grid point")
	fmt.Println("  POST /download_timeseries    Export as csv, xlsx, docx or txt")
	fmt.Println()
}
