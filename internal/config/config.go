// Package config loads gridquery settings from the environment, an optional
// configuration file and command-line flags.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration keys. Each is also read from the upper-cased environment
// variable of the same name (PORT, UPLOAD_DIR, ...).
const (
	KeyConfig             = "config"
	KeyPort               = "port"
	KeyUploadDir          = "upload_dir"
	KeyMaxUploadMB        = "max_upload_mb"
	KeyCORSAllowedOrigins = "cors_allowed_origins"
	KeyNetCDFBackend      = "netcdf_backend"
	KeyGRIBConverter      = "grib_converter"
	KeyGCSBucket          = "gcs_bucket"
	KeyCoveragePointLimit = "coverage_point_limit"
	KeyRoleHints          = "role_hints"
	KeyStrictKelvin       = "strict_kelvin"
	KeyLogLevel           = "log_level"
	KeyLogFormat          = "log_format"
)

var defaults = map[string]any{
	KeyPort:               "8080",
	KeyUploadDir:          "./uploads",
	KeyMaxUploadMB:        100,
	KeyCORSAllowedOrigins: "",
	KeyNetCDFBackend:      "netcdf",
	KeyGRIBConverter:      "grib_to_netcdf",
	KeyGCSBucket:          "",
	KeyCoveragePointLimit: 0,
	KeyRoleHints:          false,
	KeyStrictKelvin:       false,
	KeyLogLevel:           "info",
	KeyLogFormat:          "text",
}

// Config holds the resolved settings.
type Config struct {
	Port               string
	UploadDir          string
	MaxUploadMB        int
	CORSAllowedOrigins []string // empty allows every origin
	NetCDFBackend      string
	GRIBConverter      string
	GCSBucket          string // empty disables fetching from Cloud Storage
	CoveragePointLimit int    // 0 is unlimited
	RoleHints          bool
	StrictKelvin       bool
	LogLevel           string
	LogFormat          string
}

// MaxUploadBytes is the request body limit for uploads.
func (c Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every key present in fs, under its own name or with
// dashes in place of underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for k := range defaults {
		for _, name := range []string{k, strings.ReplaceAll(k, "_", "-")} {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(k, f); err != nil {
					return err
				}
			}
		}
	}
	if f := fs.Lookup(KeyConfig); f != nil {
		return v.BindPFlag(KeyConfig, f)
	}
	return nil
}

// Load reads the configuration file named by the config key, if any, and
// returns the resolved settings.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("problem reading configuration file: %w", err)
		}
	}

	c := Config{
		Port:               v.GetString(KeyPort),
		UploadDir:          v.GetString(KeyUploadDir),
		MaxUploadMB:        v.GetInt(KeyMaxUploadMB),
		CORSAllowedOrigins: splitList(v.GetString(KeyCORSAllowedOrigins)),
		NetCDFBackend:      strings.ToLower(v.GetString(KeyNetCDFBackend)),
		GRIBConverter:      v.GetString(KeyGRIBConverter),
		GCSBucket:          v.GetString(KeyGCSBucket),
		CoveragePointLimit: v.GetInt(KeyCoveragePointLimit),
		RoleHints:          v.GetBool(KeyRoleHints),
		StrictKelvin:       v.GetBool(KeyStrictKelvin),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          strings.ToLower(v.GetString(KeyLogFormat)),
	}
	if c.MaxUploadMB <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", KeyMaxUploadMB, c.MaxUploadMB)
	}
	if c.CoveragePointLimit < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %d", KeyCoveragePointLimit, c.CoveragePointLimit)
	}
	if c.Port == "" {
		return Config{}, fmt.Errorf("%s is empty", KeyPort)
	}
	return c, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewLogger builds the logger described by c. Output goes to w, or to
// stderr when w is nil.
func NewLogger(c Config, w io.Writer) (*logrus.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	switch c.LogFormat {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
			DisableSorting:  true,
		})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}
	return log, nil
}
