package bundle

import (
	"fmt"
	"strings"

	"LEX-PDFMAP/internal/processor"
)

const maxNameLength = 80

// SanitizeName turns a template name into a portable file name stem:
// diacritics folded, anything outside [A-Za-z0-9._-] replaced by '_', runs
// collapsed, and a trailing ".pdf" dropped.
func SanitizeName(name string) string {
	name = strings.TrimSpace(processor.ASCII(name))
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}

	var b strings.Builder
	underscore := false
	for _, r := range name {
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-'
		if ok {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}

	out := strings.Trim(b.String(), "_.-")
	if len(out) > maxNameLength {
		out = strings.TrimRight(out[:maxNameLength], "_.-")
	}
	if out == "" {
		return "template"
	}
	return out
}

// EntryName is the archive name of the document at 1-based position index.
func EntryName(index int, name string) string {
	return fmt.Sprintf("%02d_%s.pdf", index, SanitizeName(name))
}
