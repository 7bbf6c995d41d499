package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/gridquery/internal/adapter/blob"
	"go.ngs.io/gridquery/internal/domain"
	"go.ngs.io/gridquery/internal/usecase"
)

type stubLoader struct{ err error }

func (s stubLoader) Load(_ context.Context, path string) (*domain.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	times := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	return &domain.Dataset{
		Source: path,
		Dims:   []domain.Dim{{Name: "valid_time", Len: 3}, {Name: "latitude", Len: 2}, {Name: "longitude", Len: 1}},
		Coords: []*domain.Coord{
			{Name: "valid_time", Dims: []string{"valid_time"}, Shape: []int{3}, Times: times},
			{Name: "latitude", Dims: []string{"latitude"}, Shape: []int{2}, Values: []float64{50, 49.75}},
			{Name: "longitude", Dims: []string{"longitude"}, Shape: []int{1}, Values: []float64{10}},
		},
		Vars: []*domain.Variable{{
			Name: "t2m", Dims: []string{"valid_time", "latitude", "longitude"}, Shape: []int{3, 2, 1},
			Data: []float64{280, 281, 282, 283, 284, 285}, Attrs: map[string]any{"units": "K"},
		}},
	}, nil
}

func newTestRouter(t *testing.T, loader stubLoader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := usecase.NewService(loader, nil, usecase.Options{UploadDir: t.TempDir()}, nil)
	return SetupRouter(svc, RouterOptions{MaxUploadBytes: 1 << 20}, nil)
}

func upload(t *testing.T, r http.Handler, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t, stubLoader{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if m := decode(t, w); m["status"] != "ok" || m["dataset"] != nil {
		t.Errorf("body = %v", m)
	}
}

func TestQueriesBeforeUpload(t *testing.T) {
	r := newTestRouter(t, stubLoader{})

	w := postJSON(r, "/get_timeseries", `{"lat": 50, "lon": 10}`)
	m := decode(t, w)
	if w.Code != http.StatusBadRequest || m["success"] != false || m["error"] != "No dataset loaded" {
		t.Errorf("timeseries: %d %v", w.Code, m)
	}

	w = postJSON(r, "/download_timeseries", `{"lat": 50, "lon": 10, "filetype": "csv"}`)
	if w.Code != http.StatusBadRequest || w.Body.String() != "No dataset loaded" {
		t.Errorf("download: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("info: %d", w.Code)
	}
}

func TestUploadAndQuery(t *testing.T) {
	r := newTestRouter(t, stubLoader{})

	w := upload(t, r, "era5.nc", "data")
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	m := decode(t, w)
	cov, _ := m["coverage"].(map[string]any)
	if m["success"] != true || cov == nil || len(cov["points"].([]any)) != 2 {
		t.Fatalf("upload body = %v", m)
	}

	w = postJSON(r, "/get_timeseries", `{"lat": 49.8, "lon": 10.4, "startDate": "2024-01-02", "endDate": "2024-01-03"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("timeseries: %d %s", w.Code, w.Body.String())
	}
	m = decode(t, w)
	coords := m["coordinates"].(map[string]any)
	if coords["lat"] != 49.75 || coords["lon"] != 10.0 {
		t.Errorf("coordinates = %v", coords)
	}
	t2m := m["series"].(map[string]any)["t2m"].(map[string]any)
	if vals := t2m["values"].([]any); len(vals) != 2 || t2m["units"] != "C" {
		t.Errorf("t2m = %v", t2m)
	}

	w = postJSON(r, "/get_timeseries", `{"lat": 49.8}`)
	if m := decode(t, w); w.Code != http.StatusBadRequest || m["error"] != "Coordinates not provided" {
		t.Errorf("missing lon: %d %v", w.Code, m)
	}

	w = postJSON(r, "/get_timeseries", `{"lat": 49.8, "lon": 10, "startDate": "2030-01-01"}`)
	if m := decode(t, w); m["error"] != "No data in selected date range" {
		t.Errorf("empty window: %v", m)
	}
}

func TestUploadRejects(t *testing.T) {
	r := newTestRouter(t, stubLoader{})

	w := upload(t, r, "notes.txt", "x")
	if m := decode(t, w); w.Code != http.StatusBadRequest || m["success"] != false {
		t.Errorf("txt: %d %v", w.Code, m)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if m := decode(t, w); w.Code != http.StatusBadRequest || m["error"] != "No file part" {
		t.Errorf("no file: %d %v", w.Code, m)
	}

	w = upload(t, r, "big.nc", strings.Repeat("x", 2<<20))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized: %d %s", w.Code, w.Body.String())
	}
}

func TestUploadReadError(t *testing.T) {
	r := newTestRouter(t, stubLoader{err: &domain.ReadError{Path: "x.nc", Err: errors.New("NetCDF: Unknown file format")}})
	w := upload(t, r, "x.nc", "junk")
	if m := decode(t, w); w.Code != http.StatusBadRequest || m["error"] != "NetCDF: Unknown file format" {
		t.Errorf("read error: %d %v", w.Code, m)
	}
}

func TestDownload(t *testing.T) {
	r := newTestRouter(t, stubLoader{})
	if w := upload(t, r, "era5.nc", "data"); w.Code != http.StatusOK {
		t.Fatalf("upload: %d", w.Code)
	}

	w := postJSON(r, "/download_timeseries_csv", `{"lat": 50, "lon": 10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("download: %d %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="timeseries.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "valid_time,t2m\n") {
		t.Errorf("csv = %q", w.Body.String())
	}

	w = postJSON(r, "/download_timeseries", `{"lat": 50, "lon": 10, "filetype": "docx"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "wordprocessingml") {
		t.Errorf("docx: %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	w = postJSON(r, "/download_timeseries", `{"lat": 50, "lon": 10, "filetype": "pdf"}`)
	if w.Code != http.StatusBadRequest || w.Body.String() != "Unsupported filetype" {
		t.Errorf("pdf: %d %q", w.Code, w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNoDatasetLoaded, http.StatusBadRequest},
		{domain.ErrDatasetReplaced, http.StatusConflict},
		{usecase.ErrRemoteDisabled, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: other", blob.ErrBucketNotAllowed), http.StatusForbidden},
		{&domain.ReadError{Err: errors.New("bad")}, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRouterMultipartMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := usecase.NewService(stubLoader{}, nil, usecase.Options{UploadDir: t.TempDir()}, nil)
	if r := SetupRouter(svc, RouterOptions{MaxUploadBytes: 5 << 20}, nil); r.MaxMultipartMemory != 5<<20 {
		t.Errorf("MaxMultipartMemory = %d, want %d", r.MaxMultipartMemory, 5<<20)
	}
}

func TestLoadBucketNotAllowed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fetcher := blob.NewFetcher("era5-public", nil)
	svc := usecase.NewService(stubLoader{}, fetcher, usecase.Options{UploadDir: t.TempDir()}, nil)
	r := SetupRouter(svc, RouterOptions{}, nil)

	w := postJSON(r, "/load", `{"uri": "gs://private/era5.nc"}`)
	if m := decode(t, w); w.Code != http.StatusForbidden || m["error"] != "Bucket not allowed" {
		t.Errorf("load: %d %v", w.Code, m)
	}

	w = postJSON(r, "/load", `{"uri": "s3://era5-public/era5.nc"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad uri: %d %s", w.Code, w.Body.String())
	}
}
