package pdftest

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"LEX-PDFMAP/internal/pdfconfig"
)

func read(data []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), pdfconfig.Relaxed())
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// PageCount parses data and returns its page count.
func PageCount(data []byte) (int, error) {
	ctx, err := read(data)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// PageContent returns the decoded, concatenated content streams of a page.
func PageContent(data []byte, page int) (string, error) {
	ctx, err := read(data)
	if err != nil {
		return "", err
	}
	pageDict, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		return "", fmt.Errorf("page %d dict: %w", page, err)
	}
	obj, found := pageDict.Find("Contents")
	if !found {
		return "", nil
	}
	content, err := resolveContent(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("page %d content: %w", page, err)
	}
	return string(content), nil
}

// PageFonts returns the BaseFont of every font in a page's resources, keyed
// by resource name.
func PageFonts(data []byte, page int) (map[string]string, error) {
	ctx, err := read(data)
	if err != nil {
		return nil, err
	}
	pageDict, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	res, err := ctx.DereferenceDict(pageDict["Resources"])
	if err != nil || res == nil {
		return out, err
	}
	fonts, err := ctx.DereferenceDict(res["Font"])
	if err != nil || fonts == nil {
		return out, err
	}
	for name, ref := range fonts {
		fd, err := ctx.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		if base := fd.NameEntry("BaseFont"); base != nil {
			out[name] = *base
		}
	}
	return out, nil
}

func resolveContent(ctx *model.Context, obj types.Object) ([]byte, error) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case types.StreamDict:
		if err := v.Decode(); err != nil {
			return nil, fmt.Errorf("decode stream: %w", err)
		}
		return v.Content, nil
	case types.Array:
		var buf bytes.Buffer
		for _, item := range v {
			data, err := resolveContent(ctx, item)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unexpected Contents type: %T", obj)
	}
}
