// Package pdftest builds small, valid PDF documents for tests: plain pages,
// pages with AcroForm widgets, inherited MediaBoxes and multi-stream contents.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

type Doc struct {
	Pages []Page
	// InheritMediaBox puts the MediaBox on the page tree root only.
	InheritMediaBox bool
}

type Page struct {
	Width, Height    float64
	OriginX, OriginY float64
	// Content is the page's content stream. Empty means a short default text.
	Content string
	// SplitContent stores Content as an array of two streams.
	SplitContent bool
	NoContents   bool
	Widgets      []Widget
}

// Widget is an annotation on a page. With ParentName set the widget becomes
// the kid of a separate field dictionary carrying the name.
type Widget struct {
	Name       string
	ParentName string
	Rect       [4]float64
	// RawRect replaces Rect verbatim, e.g. "[1 2 3]".
	RawRect string
	// Subtype defaults to Widget.
	Subtype string
}

// Letter is a single-page US Letter document with some text on it.
func Letter() []byte {
	return Build(Doc{Pages: []Page{{Width: 612, Height: 792}}})
}

// Pages is a US Letter document with n pages.
func Pages(n int) []byte {
	doc := Doc{}
	for i := 0; i < n; i++ {
		doc.Pages = append(doc.Pages, Page{Width: 612, Height: 792})
	}
	return Build(doc)
}

// WithWidgets is a single US Letter page carrying the given widgets.
func WithWidgets(widgets ...Widget) []byte {
	return Build(Doc{Pages: []Page{{Width: 612, Height: 792, Widgets: widgets}}})
}

type writer struct {
	objects []string
}

func (w *writer) alloc() int {
	w.objects = append(w.objects, "")
	return len(w.objects)
}

func (w *writer) set(n int, body string) {
	w.objects[n-1] = body
}

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

func box(p Page) string {
	return fmt.Sprintf("[%g %g %g %g]", p.OriginX, p.OriginY, p.OriginX+p.Width, p.OriginY+p.Height)
}

// Build serializes doc with a correct cross-reference table.
func Build(doc Doc) []byte {
	w := &writer{}
	catalog := w.alloc()
	pages := w.alloc()
	font := w.alloc()
	w.set(font, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids, fields []string
	for i, p := range doc.Pages {
		pageObj := w.alloc()
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))

		var dict strings.Builder
		fmt.Fprintf(&dict, "<< /Type /Page /Parent %d 0 R", pages)
		if !doc.InheritMediaBox {
			fmt.Fprintf(&dict, " /MediaBox %s", box(p))
		}
		fmt.Fprintf(&dict, " /Resources << /Font << /F1 %d 0 R >> >>", font)

		if !p.NoContents {
			content := p.Content
			if content == "" {
				content = fmt.Sprintf("BT /F1 12 Tf %g %g Td (Page %d) Tj ET", p.OriginX+72, p.OriginY+p.Height-72, i+1)
			}
			if p.SplitContent {
				half := len(content) / 2
				for half < len(content) && content[half] != ' ' {
					half++
				}
				a, b := w.alloc(), w.alloc()
				w.set(a, stream(content[:half]))
				w.set(b, stream(content[half:]))
				fmt.Fprintf(&dict, " /Contents [%d 0 R %d 0 R]", a, b)
			} else {
				c := w.alloc()
				w.set(c, stream(content))
				fmt.Fprintf(&dict, " /Contents %d 0 R", c)
			}
		}

		var annots []string
		for _, wd := range p.Widgets {
			annot := w.alloc()
			annots = append(annots, fmt.Sprintf("%d 0 R", annot))

			subtype := wd.Subtype
			if subtype == "" {
				subtype = "Widget"
			}
			rect := wd.RawRect
			if rect == "" {
				rect = fmt.Sprintf("[%g %g %g %g]", wd.Rect[0], wd.Rect[1], wd.Rect[2], wd.Rect[3])
			}

			var a strings.Builder
			fmt.Fprintf(&a, "<< /Type /Annot /Subtype /%s /Rect %s /P %d 0 R", subtype, rect, pageObj)
			if wd.Name != "" {
				fmt.Fprintf(&a, " /T (%s)", wd.Name)
			}
			if subtype == "Widget" {
				switch {
				case wd.ParentName != "":
					parent := w.alloc()
					w.set(parent, fmt.Sprintf("<< /FT /Tx /T (%s) /Kids [%d 0 R] >>", wd.ParentName, annot))
					fmt.Fprintf(&a, " /Parent %d 0 R", parent)
					fields = append(fields, fmt.Sprintf("%d 0 R", parent))
				default:
					a.WriteString(" /FT /Tx")
					fields = append(fields, fmt.Sprintf("%d 0 R", annot))
				}
			}
			a.WriteString(" >>")
			w.set(annot, a.String())
		}
		if len(annots) > 0 {
			fmt.Fprintf(&dict, " /Annots [%s]", strings.Join(annots, " "))
		}

		dict.WriteString(" >>")
		w.set(pageObj, dict.String())
	}

	var pagesDict strings.Builder
	fmt.Fprintf(&pagesDict, "<< /Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), len(doc.Pages))
	if doc.InheritMediaBox && len(doc.Pages) > 0 {
		fmt.Fprintf(&pagesDict, " /MediaBox %s", box(doc.Pages[0]))
	}
	pagesDict.WriteString(" >>")
	w.set(pages, pagesDict.String())

	if len(fields) > 0 {
		form := w.alloc()
		w.set(form, fmt.Sprintf("<< /Fields [%s] >>", strings.Join(fields, " ")))
		w.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /AcroForm %d 0 R >>", pages, form))
	} else {
		w.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))
	}

	return w.bytes(catalog)
}

func (w *writer) bytes(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(w.objects))
	for i, body := range w.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(w.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(w.objects)+1, root, xref)
	return buf.Bytes()
}
