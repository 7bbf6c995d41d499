package usecase

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SecureFilename reduces name to a safe base name for the upload directory:
// Unicode is decomposed and non-ASCII runes dropped, path separators and
// whitespace become underscores, anything outside [A-Za-z0-9._-] is removed,
// and leading dots and underscores are trimmed. The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r > 0x7f:
		case r == ' ' || r == '\t':
			b.WriteByte(' ')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	name = strings.Join(strings.Fields(b.String()), "_")
	name = strings.Trim(name, "._")
	if name == "" || filepath.Base(name) != name {
		return ""
	}
	return name
}
