// Package render serializes export records to downloadable documents.
package render

import (
	"fmt"
	"io"
	"strings"

	"go.ngs.io/gridquery/internal/domain"
)

// Target is one export format. The set of targets is closed: use
// ParseTarget or the package-level values.
type Target interface {
	// Render writes rec to w.
	Render(w io.Writer, rec domain.ExportRecord) error
	// ContentType is the MIME type of the rendered document.
	ContentType() string
	// FileName is the suggested download name.
	FileName() string

	sealed()
}

// Export targets.
var (
	CSV  Target = csvTarget{}
	XLSX Target = xlsxTarget{}
	DOCX Target = docxTarget{}
	TXT  Target = txtTarget{}
)

var targets = map[string]Target{
	"csv":  CSV,
	"xlsx": XLSX,
	"docx": DOCX,
	"txt":  TXT,
}

// ParseTarget returns the target named s (csv, xlsx, docx or txt, case
// insensitive). An empty name selects CSV.
func ParseTarget(s string) (Target, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CSV, nil
	}
	t, ok := targets[s]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedExportFormat, s)
	}
	return t, nil
}

// Names lists the accepted target names.
func Names() []string { return []string{"csv", "xlsx", "docx", "txt"} }
