package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScale(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"unit", 1, false},
		{"zoomed in", 1.5, false},
		{"zoomed out", 0.25, false},
		{"zero", 0, true},
		{"negative", -1, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScale(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScale)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Scale(tt.value), s)
		})
	}
}

func TestScreenRoundTrip(t *testing.T) {
	scales := []float64{0.5, 1, 1.25, 2, 3.7}
	points := []Point{{0, 0}, {100, 700}, {612, 792}, {33.3, 12.75}}

	for _, f := range scales {
		s := MustScale(f)
		for _, p := range points {
			screen := PageToScreen(p, s)
			back := ScreenToPage(screen, s)
			assert.InDelta(t, p.X, back.X, 1e-9)
			assert.InDelta(t, p.Y, back.Y, 1e-9)

			again := PageToScreen(back, s)
			assert.InDelta(t, screen.X, again.X, 1e-9)
			assert.InDelta(t, screen.Y, again.Y, 1e-9)
		}
	}
}

func TestScaleDelta(t *testing.T) {
	d := ScaleDelta(Point{10, 10}, Point{30, 50}, MustScale(2))
	assert.Equal(t, Point{X: 10, Y: 20}, d)
}

func TestPageFlip(t *testing.T) {
	page := Letter

	assert.Equal(t, 92.0, page.DrawY(700))
	assert.Equal(t, 700.0, page.VisualY(92))

	for _, y := range []float64{0, 12.5, 396, 792} {
		assert.InDelta(t, y, page.VisualY(page.DrawY(y)), 1e-9)
	}
}

func TestPageFlipWithOffsetMediaBox(t *testing.T) {
	page := Page{Width: 600, Height: 800, Origin: Point{X: 10, Y: 20}}

	assert.Equal(t, 15.0, page.DrawX(5))
	assert.Equal(t, 720.0, page.DrawY(100))
	assert.Equal(t, 100.0, page.VisualY(720))
}

func TestVisualRect(t *testing.T) {
	page := Letter

	r := page.VisualRect(100, 650, 250, 670)
	assert.Equal(t, Rect{X: 100, Y: 122, Width: 150, Height: 20}, r)

	reversed := page.VisualRect(250, 670, 100, 650)
	assert.Equal(t, r, reversed)
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 5}

	assert.True(t, r.Contains(Point{10, 10}))
	assert.True(t, r.Contains(Point{30, 15}))
	assert.False(t, r.Contains(Point{31, 12}))
	assert.False(t, r.Contains(Point{15, 16}))
}
