package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/adapter/blob"
	"go.ngs.io/gridquery/internal/domain"
	"go.ngs.io/gridquery/internal/usecase"
)

// exportFailure is the body of an export that failed unexpectedly.
const exportFailure = "Failed to export data"

// Handler serves the dataset query API.
type Handler struct {
	svc *usecase.Service
	log logrus.FieldLogger
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc *usecase.Service, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{svc: svc, log: log}
}

// messages are the client-facing texts of the error taxonomy.
var messages = []struct {
	err error
	msg string
}{
	{domain.ErrNoDatasetLoaded, "No dataset loaded"},
	{domain.ErrMissingSpatialDimension, "Lat/Lon not found in dataset"},
	{domain.ErrEmptyTimeWindow, "No data in selected date range"},
	{domain.ErrUnsupportedExportFormat, "Unsupported filetype"},
	{domain.ErrUnsupportedFile, "Invalid file type. Upload .nc, .grib or .grb only"},
	{domain.ErrDatasetReplaced, "Dataset was replaced by a newer upload"},
	{usecase.ErrRemoteDisabled, "Loading from cloud storage is not configured"},
	{blob.ErrBucketNotAllowed, "Bucket not allowed"},
}

// errorMessage renders err for clients. Read errors carry the decoder's
// message unchanged; invalid requests carry their detail.
func errorMessage(err error) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	if errors.Is(err, domain.ErrInvalidRequest) {
		return strings.TrimPrefix(err.Error(), domain.ErrInvalidRequest.Error()+": ")
	}
	return err.Error()
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrDatasetReplaced):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrRemoteDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, blob.ErrBucketNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNoDatasetLoaded),
		errors.Is(err, domain.ErrMissingSpatialDimension),
		errors.Is(err, domain.ErrEmptyTimeWindow),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnsupportedExportFormat),
		errors.Is(err, domain.ErrUnsupportedFile),
		errors.Is(err, domain.ErrDatasetRead):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"success": false, "error": errorMessage(err)})
}

func datasetBody(info *usecase.DatasetInfo) gin.H {
	return gin.H{
		"success":    true,
		"info":       info.Info,
		"coverage":   info.Coverage,
		"generation": info.Generation,
	}
}

// Upload handles POST /upload with a multipart "file" field.
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file part"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	defer func() { _ = f.Close() }()

	info, err := h.svc.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, datasetBody(info))
}

// LoadRequest names a Cloud Storage object.
type LoadRequest struct {
	URI string `json:"uri" binding:"required"`
}

// Load handles POST /load.
func (h *Handler) Load(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: uri is required", domain.ErrInvalidRequest))
		return
	}
	info, err := h.svc.LoadObject(c.Request.Context(), req.URI)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, datasetBody(info))
}

// Info handles GET /info.
func (h *Handler) Info(c *gin.Context) {
	info, err := h.svc.Info()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, datasetBody(info))
}

// bindPoint decodes a JSON body. An empty body is an empty request, so that
// missing coordinates are reported as such.
func bindPoint(c *gin.Context, req any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(req); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// TimeSeries handles POST /get_timeseries.
func (h *Handler) TimeSeries(c *gin.Context) {
	var req usecase.PointRequest
	if err := bindPoint(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	resp, err := h.svc.TimeSeries(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"series":      resp.Series,
		"scalars":     resp.Scalars,
		"coordinates": resp.Coordinates,
		"generation":  resp.Generation,
	})
}

// Download handles POST /download_timeseries. Failures are plain text.
func (h *Handler) Download(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).Error("export panicked")
			c.String(http.StatusInternalServerError, exportFailure)
		}
	}()

	var req usecase.ExportRequest
	if err := bindPoint(c, &req); err != nil {
		c.String(http.StatusBadRequest, errorMessage(err))
		return
	}
	out, err := h.svc.Export(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.WithError(err).Error("export failed")
			c.String(http.StatusInternalServerError, exportFailure)
			return
		}
		c.String(status, errorMessage(err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.FileName))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"dataset": nil,
	}
	if res, ok := h.svc.Session().Current(); ok {
		body["dataset"] = gin.H{
			"source":     res.Dataset.Source,
			"generation": res.Generation,
			"loaded_at":  res.LoadedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, body)
}
