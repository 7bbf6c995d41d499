package render

import (
	"io"
	"math"
	"strconv"

	"github.com/tealeg/xlsx"

	"go.ngs.io/gridquery/internal/domain"
)

const sheetName = "Time Series"

type xlsxTarget struct{}

func (xlsxTarget) sealed() {}
func (xlsxTarget) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (xlsxTarget) FileName() string { return "timeseries.xlsx" }

// Render writes one sheet: the title and descriptive lines, a blank row, the
// header, then the rows. Finite numbers are stored as numeric cells.
func (xlsxTarget) Render(w io.Writer, rec domain.ExportRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return err
	}

	sheet.AddRow().AddCell().SetString(rec.Title)
	for _, l := range rec.MetaLines() {
		sheet.AddRow().AddCell().SetString(l)
	}
	sheet.AddRow()

	header := sheet.AddRow()
	for _, h := range rec.Header {
		header.AddCell().SetString(h)
	}
	for _, r := range rec.Rows {
		row := sheet.AddRow()
		for _, v := range r {
			setCell(row.AddCell(), v)
		}
	}
	return f.Write(w)
}

func setCell(c *xlsx.Cell, v string) {
	if x, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(x) && !math.IsInf(x, 0) {
		c.SetFloat(x)
		return
	}
	c.SetString(v)
}
