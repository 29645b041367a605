// Package geometry holds the coordinate contract shared by the detector, the
// editor and the fill engine.
//
// Stored mapping coordinates are page units (PDF points), measured from the
// top-left corner of the page and independent of any zoom level. Screen
// coordinates are page units multiplied by the display scale. The flip into
// PDF's bottom-left drawing origin happens only when drawing.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Letter is the fallback page size when a document carries no MediaBox.
var Letter = Page{Width: 612, Height: 792}

var ErrInvalidScale = errors.New("scale must be a finite number greater than zero")

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a box in top-left page units: X,Y is the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Scale is a display zoom factor.
type Scale float64

func NewScale(f float64) (Scale, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScale, f)
	}
	return Scale(f), nil
}

// MustScale is NewScale for constants.
func MustScale(f float64) Scale {
	s, err := NewScale(f)
	if err != nil {
		panic(err)
	}
	return s
}

// ScreenToPage removes the zoom from a pointer position.
func ScreenToPage(p Point, s Scale) Point {
	return Point{X: p.X / float64(s), Y: p.Y / float64(s)}
}

// PageToScreen applies the zoom to a stored position.
func PageToScreen(p Point, s Scale) Point {
	return Point{X: p.X * float64(s), Y: p.Y * float64(s)}
}

// RectToScreen applies the zoom to a stored box.
func RectToScreen(r Rect, s Scale) Rect {
	f := float64(s)
	return Rect{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// ScaleDelta normalizes a pointer movement so that it can be added to stored
// coordinates.
func ScaleDelta(from, to Point, s Scale) Point {
	return Point{X: (to.X - from.X) / float64(s), Y: (to.Y - from.Y) / float64(s)}
}

// Page is the geometry of one PDF page. Origin is the lower-left corner of the
// MediaBox, which is (0,0) for almost every document.
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Origin Point   `json:"origin"`
}

// DrawX converts a stored x into PDF user space.
func (p Page) DrawX(x float64) float64 {
	return p.Origin.X + x
}

// DrawY converts a stored (top-origin) y into PDF user space:
// page_height - y.
func (p Page) DrawY(y float64) float64 {
	return p.Origin.Y + p.Height - y
}

// VisualY is the inverse of DrawY.
func (p Page) VisualY(pdfY float64) float64 {
	return p.Origin.Y + p.Height - pdfY
}

// VisualRect converts a PDF rectangle [x0 y0 x1 y1] into a stored box. The
// corners may be given in any order.
func (p Page) VisualRect(x0, y0, x1, y1 float64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	width := x1 - x0
	height := y1 - y0
	return Rect{
		X:      x0 - p.Origin.X,
		Y:      p.VisualY(y0 + height),
		Width:  width,
		Height: height,
	}
}
