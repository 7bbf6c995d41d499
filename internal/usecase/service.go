// Package usecase orchestrates dataset loading and point queries over the
// single resident dataset.
package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/adapter/blob"
	"go.ngs.io/gridquery/internal/adapter/render"
	"go.ngs.io/gridquery/internal/adapter/store"
	"go.ngs.io/gridquery/internal/domain"
)

// ErrRemoteDisabled is returned by LoadObject when no bucket is configured.
var ErrRemoteDisabled = errors.New("loading from cloud storage is not configured")

// ObjectFetcher downloads a Cloud Storage object to a local directory.
type ObjectFetcher interface {
	Fetch(ctx context.Context, o blob.Object, dir string, name func(string) string) (string, error)
}

// Options configures a Service.
type Options struct {
	UploadDir          string
	CoveragePointLimit int
	RoleHints          bool
	StrictKelvin       bool
}

// Service implements the upload, info, time series and export operations.
type Service struct {
	loader  store.DatasetLoader
	fetcher ObjectFetcher
	session *Session
	opts    Options
	units   domain.UnitNormalizer
	log     logrus.FieldLogger
}

// NewService creates a Service. fetcher may be nil to disable LoadObject.
func NewService(loader store.DatasetLoader, fetcher ObjectFetcher, opts Options, log logrus.FieldLogger) *Service {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Service{
		loader:  loader,
		fetcher: fetcher,
		session: NewSession(),
		opts:    opts,
		units:   domain.UnitNormalizer{Strict: opts.StrictKelvin},
		log:     log,
	}
}

// Session returns the service's dataset slot.
func (s *Service) Session() *Session { return s.session }

// Upload stores r in the upload directory under the sanitized form of name,
// replacing any file of that name, and loads it as the resident dataset.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (*DatasetInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: No selected file", domain.ErrInvalidRequest)
	}
	safe := SecureFilename(name)
	if safe == "" {
		return nil, fmt.Errorf("%w: invalid file name %q", domain.ErrInvalidRequest, name)
	}
	if !store.AllowedFile(safe) {
		return nil, domain.ErrUnsupportedFile
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	path := filepath.Join(s.opts.UploadDir, safe)
	if err := writeFile(path, r); err != nil {
		return nil, err
	}
	return s.Open(ctx, path)
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}

// LoadObject downloads a gs:// object into the upload directory and loads it.
func (s *Service) LoadObject(ctx context.Context, uri string) (*DatasetInfo, error) {
	if s.fetcher == nil {
		return nil, ErrRemoteDisabled
	}
	o, err := blob.ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if !store.AllowedFile(o.Name) {
		return nil, domain.ErrUnsupportedFile
	}
	if err := os.MkdirAll(s.opts.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	path, err := s.fetcher.Fetch(ctx, o, s.opts.UploadDir, SecureFilename)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, path)
}

// Open decodes the file at path in place and makes it the resident dataset.
// A file that fails to decode leaves the previous dataset resident.
func (s *Service) Open(ctx context.Context, path string) (*DatasetInfo, error) {
	ds, err := s.loader.Load(ctx, path)
	if err != nil {
		s.log.WithError(err).WithField("file", path).Warn("dataset load failed")
		return nil, err
	}
	roles := s.classify(ds)
	res := s.session.Replace(ds, roles, path)

	s.log.WithFields(logrus.Fields{
		"file":       path,
		"dims":       len(ds.Dims),
		"variables":  len(ds.Vars),
		"lat":        roles.Lat,
		"lon":        roles.Lon,
		"time":       roles.Time,
		"generation": res.Generation,
	}).Info("dataset loaded")
	return s.describe(res), nil
}

func (s *Service) classify(ds *domain.Dataset) domain.Roles {
	if s.opts.RoleHints {
		return domain.ClassifyRolesWithHints(ds)
	}
	return ds.Roles()
}

func (s *Service) describe(res *Resident) *DatasetInfo {
	info := &DatasetInfo{
		Info:       domain.ExtractMetadata(res.Dataset, res.Roles),
		Generation: res.Generation,
	}
	info.Info.Source = filepath.Base(res.Path)
	if cov, ok := domain.IndexCoverage(res.Dataset, res.Roles, s.opts.CoveragePointLimit); ok {
		info.Coverage = cov
	}
	return info
}

// Info describes the resident dataset.
func (s *Service) Info() (*DatasetInfo, error) {
	var info *DatasetInfo
	err := s.session.View(0, func(res *Resident) error {
		info = s.describe(res)
		return nil
	})
	return info, err
}

// pointView resolves the request against the resident dataset and returns
// the time-sliced view at the resolved point.
func pointView(res *Resident, req PointRequest) (*domain.Dataset, domain.GridPoint, domain.TimeWindow, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.GridPoint{}, domain.TimeWindow{}, err
	}
	if err := res.Roles.RequireSpatial(); err != nil {
		return nil, domain.GridPoint{}, domain.TimeWindow{}, err
	}
	w, err := domain.ParseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, domain.GridPoint{}, domain.TimeWindow{}, err
	}
	p, err := domain.ResolvePoint(res.Dataset, res.Roles, *req.Lat, *req.Lon)
	if err != nil {
		return nil, domain.GridPoint{}, domain.TimeWindow{}, err
	}
	view, err := domain.SliceTime(res.Dataset.AtPoint(res.Roles, p), res.Roles, w)
	if err != nil {
		return nil, domain.GridPoint{}, domain.TimeWindow{}, err
	}
	return view, p, w, nil
}

// TimeSeries returns every variable's series at the grid point nearest the
// requested coordinates.
func (s *Service) TimeSeries(_ context.Context, req PointRequest) (*TimeSeriesResponse, error) {
	var resp *TimeSeriesResponse
	err := s.session.View(req.Generation, func(res *Resident) error {
		view, p, _, err := pointView(res, req)
		if err != nil {
			return err
		}
		recs := domain.ReduceSeries(view, res.Roles, s.units)
		resp = newTimeSeriesResponse(recs, p, res.Generation)

		s.log.WithFields(logrus.Fields{
			"lat":     p.Lat,
			"lon":     p.Lon,
			"series":  len(resp.Series),
			"scalars": len(resp.Scalars),
			"start":   req.StartDate,
			"end":     req.EndDate,
			"dataset": filepath.Base(res.Path),
		}).Debug("time series query")
		return nil
	})
	return resp, err
}

// Export renders the point table in the requested format.
func (s *Service) Export(_ context.Context, req ExportRequest) (*Export, error) {
	var out *Export
	err := s.session.View(req.Generation, func(res *Resident) error {
		view, p, w, err := pointView(res, req.PointRequest)
		if err != nil {
			return err
		}
		target, err := render.ParseTarget(req.FileType)
		if err != nil {
			return err
		}

		table := domain.BuildTable(view, domain.TableOptions{KeepConstant: req.KeepConstant, Units: s.units})
		rec := domain.FormatExport(table, p, w)

		var buf bytes.Buffer
		if err := target.Render(&buf, rec); err != nil {
			return fmt.Errorf("failed to render %s: %w", target.FileName(), err)
		}
		out = &Export{FileName: target.FileName(), ContentType: target.ContentType(), Body: buf.Bytes()}

		s.log.WithFields(logrus.Fields{
			"lat":     p.Lat,
			"lon":     p.Lon,
			"format":  req.FileType,
			"rows":    table.Rows,
			"dropped": len(table.Dropped),
			"bytes":   buf.Len(),
		}).Info("exported time series")
		return nil
	})
	return out, err
}
