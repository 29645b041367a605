package processor

import (
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	baseFont     = "Helvetica"
	fontStep     = 0.5
	metricsScale = 1000
)

// Measurer returns the rendered width of text in points.
type Measurer interface {
	Width(text string, size float64) float64
}

// Helvetica measures with the standard Helvetica metrics, the font the fill
// engine draws with.
type Helvetica struct{}

func (Helvetica) Width(text string, size float64) float64 {
	// accented Latin letters share their base letter's advance width
	return font.TextWidth(ASCII(text), baseFont, metricsScale) * size / metricsScale
}

// FitFontSize shrinks size in half-point steps until text fits in width, but
// not below floor. A start size already under the floor is kept. A width <= 0
// means unconstrained.
func FitFontSize(m Measurer, text string, size, width, floor float64) float64 {
	if width <= 0 {
		return size
	}
	for size > floor && m.Width(text, size) > width {
		size -= fontStep
		if size < floor {
			size = floor
		}
	}
	return size
}

// Fold strips combining marks: "José Núñez" becomes "Jose Nunez".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stroked letters have no canonical decomposition, so Fold keeps them.
var stroked = map[rune]rune{
	'Ł': 'L', 'ł': 'l',
	'Đ': 'D', 'đ': 'd',
	'Ħ': 'H', 'ħ': 'h',
	'Ŧ': 'T', 'ŧ': 't',
	'Ø': 'O', 'ø': 'o',
	'ı': 'i',
}

// baseLetter is the unaccented letter r is written with, or '?'.
func baseLetter(r rune) rune {
	if b, ok := stroked[r]; ok {
		return b
	}
	if f := []rune(Fold(string(r))); len(f) == 1 && f[0] != r {
		return f[0]
	}
	return '?'
}

// ASCII folds s and replaces whatever is still outside ASCII with its base
// letter or '?'.
func ASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII {
			return r
		}
		if b := baseLetter(r); b <= unicode.MaxASCII {
			return b
		}
		return '?'
	}, Fold(s))
}

// winAnsi encodes text for a WinAnsiEncoding font. Characters outside the
// code page are written as their base letter, else '?'.
func winAnsi(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range norm.NFC.String(text) {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			if b, ok = charmap.Windows1252.EncodeRune(baseLetter(r)); !ok {
				b = '?'
			}
		}
		out = append(out, b)
	}
	return out
}
