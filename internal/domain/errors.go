package domain

import "errors"

// Sentinel errors returned by the query engine. Callers classify them with
// errors.Is; the messages are safe to show to end users.
var (
	// ErrDatasetRead marks a decode failure. See ReadError.
	ErrDatasetRead = errors.New("dataset read error")

	// ErrUnsupportedFile is returned for file kinds that have no decoder.
	ErrUnsupportedFile = errors.New("invalid file type, upload .nc, .grib or .grb only")

	// ErrMissingSpatialDimension is returned when no latitude or longitude
	// coordinate can be identified.
	ErrMissingSpatialDimension = errors.New("lat/lon not found in dataset")

	// ErrEmptyTimeWindow is returned when a date range selects no time steps.
	ErrEmptyTimeWindow = errors.New("no data in selected date range")

	// ErrNoDatasetLoaded is returned for queries issued before an upload.
	ErrNoDatasetLoaded = errors.New("no dataset loaded")

	// ErrInvalidRequest is returned for malformed or incomplete queries.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnsupportedExportFormat is returned for unknown export targets.
	ErrUnsupportedExportFormat = errors.New("unsupported filetype")

	// ErrDatasetReplaced is returned when a query names a dataset generation
	// that has since been replaced by another upload.
	ErrDatasetReplaced = errors.New("dataset was replaced by a newer upload")
)

// ReadError reports a failure to decode a dataset file. Its message is the
// underlying decoder's message, unchanged.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return e.Err.Error() }

// Unwrap returns the decoder error.
func (e *ReadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDatasetRead) hold for every ReadError.
func (e *ReadError) Is(target error) bool { return target == ErrDatasetRead }
