package processor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/pdfconfig"
)

// ErrTemplateLoad matches every *TemplateLoadError.
var ErrTemplateLoad = errors.New("template could not be loaded as a PDF")

// TemplateLoadError reports template bytes that are not a usable PDF.
type TemplateLoadError struct {
	Err error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("failed to load template: %v", e.Err)
}

func (e *TemplateLoadError) Unwrap() error { return e.Err }

func (e *TemplateLoadError) Is(target error) bool { return target == ErrTemplateLoad }

// DocumentInfo is what the service needs to know about an uploaded template.
type DocumentInfo struct {
	PageCount int             `json:"page_count"`
	Pages     []geometry.Page `json:"pages"`
}

// load parses data into a fresh pdfcpu context. The caller's buffer is only
// read. A parser panic is reported as a load error.
func load(data []byte) (ctx *model.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = &TemplateLoadError{Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	if len(data) == 0 {
		return nil, &TemplateLoadError{Err: errors.New("empty document")}
	}

	ctx, err = api.ReadContext(bytes.NewReader(data), pdfconfig.Relaxed())
	if err != nil {
		return nil, &TemplateLoadError{Err: err}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &TemplateLoadError{Err: err}
	}
	if ctx.PageCount < 1 {
		return nil, &TemplateLoadError{Err: errors.New("document has no pages")}
	}
	return ctx, nil
}

// pageGeometry reads the effective MediaBox of a page, falling back to US
// Letter.
func pageGeometry(ctx *model.Context, pageNr int) geometry.Page {
	_, _, attrs, err := ctx.PageDict(pageNr, false)
	if err != nil || attrs == nil || attrs.MediaBox == nil {
		return geometry.Letter
	}
	mb := attrs.MediaBox
	if mb.Width() <= 0 || mb.Height() <= 0 {
		return geometry.Letter
	}
	return geometry.Page{
		Width:  mb.Width(),
		Height: mb.Height(),
		Origin: geometry.Point{X: mb.LL.X, Y: mb.LL.Y},
	}
}

func pages(ctx *model.Context) []geometry.Page {
	out := make([]geometry.Page, ctx.PageCount)
	for i := range out {
		out[i] = pageGeometry(ctx, i+1)
	}
	return out
}

// Inspect parses data and returns its page geometry.
func Inspect(data []byte) (*DocumentInfo, error) {
	ctx, err := load(data)
	if err != nil {
		return nil, err
	}
	return &DocumentInfo{PageCount: ctx.PageCount, Pages: pages(ctx)}, nil
}
