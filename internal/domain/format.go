package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// ExportTitle heads every exported document.
const ExportTitle = "Time Series Data"

// ExportRecord is a format-neutral export: descriptive lines followed by a
// table of strings. Optional lines are empty when absent.
type ExportRecord struct {
	Title         string
	PointLine     string
	DateRangeLine string
	DroppedLine   string
	Header        []string
	Rows          [][]string
}

// MetaLines returns the non-empty descriptive lines after the title.
func (r ExportRecord) MetaLines() []string {
	var out []string
	for _, l := range []string{r.PointLine, r.DateRangeLine, r.DroppedLine} {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// FormatExport arranges a table and its query for serialization. Every
// header and cell is stripped of control and non-printable characters.
func FormatExport(t Table, p GridPoint, w TimeWindow) ExportRecord {
	rec := ExportRecord{
		Title:         ExportTitle,
		PointLine:     fmt.Sprintf("Grid Point: Lat %.4f, Lon %.4f", p.Lat, p.Lon),
		DateRangeLine: dateRangeLine(w),
	}
	if len(t.Dropped) > 0 {
		names := make([]string, len(t.Dropped))
		for i, d := range t.Dropped {
			names[i] = Sanitize(d.String())
		}
		rec.DroppedLine = "Removed constant columns: " + strings.Join(names, ", ")
	}

	rec.Header = make([]string, len(t.Columns))
	for i, c := range t.Columns {
		rec.Header[i] = Sanitize(c.Name)
	}
	rec.Rows = make([][]string, t.Rows)
	for r := range rec.Rows {
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = Sanitize(c.Cells[r].String())
		}
		rec.Rows[r] = row
	}
	return rec
}

func dateRangeLine(w TimeWindow) string {
	const day = "2006-01-02"
	switch {
	case w.Start != nil && w.End != nil:
		return fmt.Sprintf("Date Range: %s → %s", w.Start.Time.Format(day), w.End.Time.Format(day))
	case w.Start != nil:
		return "Date Range: from " + w.Start.Time.Format(day)
	case w.End != nil:
		return "Date Range: until " + w.End.Time.Format(day)
	}
	return ""
}

// Sanitize removes control and other non-printable characters from s after
// replacing invalid UTF-8 sequences. Plain spaces are kept.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}
