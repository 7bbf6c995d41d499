package render

import (
	"fmt"
	"io"

	"github.com/gomutex/godocx"

	"go.ngs.io/gridquery/internal/domain"
)

type docxTarget struct{}

func (docxTarget) sealed() {}
func (docxTarget) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}
func (docxTarget) FileName() string { return "timeseries.docx" }

// Render writes a Word document: the title as a level 0 heading, one
// paragraph per descriptive line, then the table with a bold header row.
func (docxTarget) Render(w io.Writer, rec domain.ExportRecord) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	if _, err := doc.AddHeading(rec.Title, 0); err != nil {
		return fmt.Errorf("failed to add heading: %w", err)
	}
	for _, l := range rec.MetaLines() {
		doc.AddParagraph(l)
	}

	table := doc.AddTable()
	table.Style("TableGrid")
	hdr := table.AddRow()
	for _, h := range rec.Header {
		hdr.AddCell().AddParagraph("").AddText(h).Bold(true)
	}
	for _, r := range rec.Rows {
		row := table.AddRow()
		for _, v := range r {
			row.AddCell().AddParagraph(v)
		}
	}
	return doc.Write(w)
}
