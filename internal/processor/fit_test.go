package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedMeasurer gives every character the same advance: half the font size.
type fixedMeasurer struct{}

func (fixedMeasurer) Width(text string, size float64) float64 {
	return float64(len([]rune(text))) * size * 0.5
}

func TestFitFontSize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		size  float64
		width float64
		want  float64
	}{
		{"fits already", "abcd", 10, 100, 10},
		{"shrinks in half steps", "abcdefghij", 10, 45, 9},
		{"stops at floor", "a very long value that never fits", 10, 20, 6},
		{"explicit size under floor is kept", "a very long value", 5, 10, 5},
		{"unconstrained", "anything", 14, 0, 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitFontSize(fixedMeasurer{}, tt.text, tt.size, tt.width, MinFontSize)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFitFontSizeBound(t *testing.T) {
	m := fixedMeasurer{}
	for _, width := range []float64{5, 20, 33.3, 50, 80} {
		size := FitFontSize(m, "Featherstonehaugh", 10, width, MinFontSize)
		assert.GreaterOrEqual(t, size, MinFontSize)
		if size > MinFontSize {
			assert.LessOrEqual(t, m.Width("Featherstonehaugh", size), width)
		}
	}
}

func TestHelveticaWidth(t *testing.T) {
	assert.InDelta(t, 58.35, Helvetica{}.Width("Bartholomew", 10), 0.01)
	assert.InDelta(t, Helvetica{}.Width("Jose", 10), Helvetica{}.Width("José", 10), 0.01)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "Jose Nunez", Fold("José Núñez"))
	assert.Equal(t, "Poder notarial ?", ASCII("Poder notarial €"))
}

func TestWinAnsiFoldsUnsupportedLetters(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"Łódź", []byte("L\xf3dz")},
		{"Núñez", []byte("N\xfa\xf1ez")},
		{"Dvořák", []byte("Dvor\xe1k")},
		{"Đorđe", []byte("Dorde")},
		{"€ 10", []byte("\x80 10")},
		{"漢", []byte("?")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, winAnsi(tt.in))
		})
	}
}

func TestASCIIFoldsStrokedLetters(t *testing.T) {
	assert.Equal(t, "Lodz", ASCII("Łódź"))
	assert.Equal(t, "Oresund", ASCII("Øresund"))
}
