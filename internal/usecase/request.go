package usecase

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"go.ngs.io/gridquery/internal/domain"
)

// PointRequest selects a grid point and an optional date range.
type PointRequest struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`

	// Generation, when non-zero, pins the query to the dataset generation
	// the client last saw.
	Generation uint64 `json:"generation,omitempty"`
}

// Validate checks that both coordinates are present and finite.
func (r *PointRequest) Validate() error {
	if r.Lat == nil || r.Lon == nil {
		return fmt.Errorf("%w: Coordinates not provided", domain.ErrInvalidRequest)
	}
	if math.IsNaN(*r.Lat) || math.IsNaN(*r.Lon) || math.IsInf(*r.Lat, 0) || math.IsInf(*r.Lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite numbers", domain.ErrInvalidRequest)
	}
	return nil
}

// ExportRequest is a PointRequest plus the export format.
type ExportRequest struct {
	PointRequest
	FileType     string `json:"filetype"`
	KeepConstant bool   `json:"keepConstant"`
}

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	x := float64(n)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, x, 'g', -1, 64), nil
}

func numbers(xs []float64) []Number {
	out := make([]Number, len(xs))
	for i, x := range xs {
		out[i] = Number(x)
	}
	return out
}

// DatasetInfo describes the resident dataset.
type DatasetInfo struct {
	Info       domain.Metadata  `json:"info"`
	Coverage   *domain.Coverage `json:"coverage"`
	Generation uint64           `json:"generation"`
}

// Series is one variable's time series at the resolved point.
type Series struct {
	Units  string             `json:"units,omitempty"`
	Times  []string           `json:"times,omitempty"`
	Steps  []Number           `json:"steps,omitempty"`
	Values []Number           `json:"values"`
	Fixed  map[string]Number  `json:"fixed,omitempty"`
	Chart  domain.ChartLabels `json:"chart"`
}

// Scalar is the value of a variable that does not vary in time.
type Scalar struct {
	Units string `json:"units,omitempty"`
	Value Number `json:"value"`
}

// TimeSeriesResponse holds the series of every variable with data at the
// resolved point. Variables without data appear in neither map.
type TimeSeriesResponse struct {
	Series      map[string]Series `json:"series"`
	Scalars     map[string]Scalar `json:"scalars"`
	Coordinates domain.GridPoint  `json:"coordinates"`
	Generation  uint64            `json:"generation"`
}

func newTimeSeriesResponse(recs []domain.SeriesRecord, p domain.GridPoint, gen uint64) *TimeSeriesResponse {
	resp := &TimeSeriesResponse{
		Series:      make(map[string]Series),
		Scalars:     make(map[string]Scalar),
		Coordinates: p,
		Generation:  gen,
	}
	for _, r := range recs {
		if !r.IsSeries() {
			resp.Scalars[r.Name] = Scalar{Units: r.Units, Value: Number(*r.Scalar)}
			continue
		}
		s := Series{
			Units:  r.Units,
			Values: numbers(r.Values),
			Chart:  r.Chart,
		}
		if r.Times != nil {
			s.Times = formatTimes(r.Times, r.Location)
		} else {
			s.Steps = numbers(r.Steps)
		}
		if len(r.Fixed) > 0 {
			s.Fixed = make(map[string]Number, len(r.Fixed))
			for k, v := range r.Fixed {
				s.Fixed[k] = Number(v)
			}
		}
		resp.Series[r.Name] = s
	}
	return resp
}

func formatTimes(ts []time.Time, loc *time.Location) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = domain.FormatTime(t, loc)
	}
	return out
}

// Export is a rendered export document.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}
