package render

import (
	"encoding/csv"
	"io"

	"go.ngs.io/gridquery/internal/domain"
)

// csvTarget writes the header and rows only; descriptive lines would break
// column-oriented consumers.
type csvTarget struct{}

func (csvTarget) sealed()             {}
func (csvTarget) ContentType() string { return "text/csv" }
func (csvTarget) FileName() string    { return "timeseries.csv" }

func (csvTarget) Render(w io.Writer, rec domain.ExportRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rec.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(rec.Rows); err != nil {
		return err
	}
	return cw.Error()
}
