package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.ngs.io/gridquery/internal/domain"
)

type txtTarget struct{}

func (txtTarget) sealed()             {}
func (txtTarget) ContentType() string { return "text/plain; charset=utf-8" }
func (txtTarget) FileName() string    { return "timeseries.txt" }

// Render writes the title and descriptive lines, a blank line, then the table
// with space-aligned columns.
func (txtTarget) Render(w io.Writer, rec domain.ExportRecord) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, rec.Title)
	for _, l := range rec.MetaLines() {
		fmt.Fprintln(bw, l)
	}
	fmt.Fprintln(bw)

	tw := tabwriter.NewWriter(bw, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rec.Header, "\t"))
	for _, row := range rec.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return bw.Flush()
}
