package processor

import (
	"fmt"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/models"
)

// maxParentDepth bounds the /Parent walk on malformed field trees.
const maxParentDepth = 32

// DetectWidgets lists the form widgets of a PDF as unsaved text mappings in
// top-left page units. Annotations that cannot be read are skipped; a
// document without widgets yields an empty slice.
func DetectWidgets(data []byte) ([]models.FieldMapping, error) {
	ctx, err := load(data)
	if err != nil {
		return nil, err
	}

	found := make([]models.FieldMapping, 0)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageDict, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			log.Printf("[detect] skipping page %d: %v", pageNr, err)
			continue
		}
		annotsObj, ok := pageDict.Find("Annots")
		if !ok {
			continue
		}
		annots, err := ctx.DereferenceArray(annotsObj)
		if err != nil {
			log.Printf("[detect] skipping annotations on page %d: %v", pageNr, err)
			continue
		}

		page := pageGeometry(ctx, pageNr)
		for i, obj := range annots {
			m, ok := widgetMapping(ctx, obj, page, pageNr, i)
			if ok {
				found = append(found, m)
			}
		}
	}
	return found, nil
}

func widgetMapping(ctx *model.Context, obj types.Object, page geometry.Page, pageNr, index int) (models.FieldMapping, bool) {
	annot, err := ctx.DereferenceDict(obj)
	if err != nil || annot == nil {
		return models.FieldMapping{}, false
	}
	if subtype := annot.NameEntry("Subtype"); subtype == nil || *subtype != "Widget" {
		return models.FieldMapping{}, false
	}

	rect, ok := readRect(ctx, annot)
	if !ok {
		return models.FieldMapping{}, false
	}
	box := page.VisualRect(rect[0], rect[1], rect[2], rect[3])
	if box.Width <= 0 || box.Height <= 0 {
		return models.FieldMapping{}, false
	}

	name := fieldName(ctx, annot)
	if name == "" {
		name = fmt.Sprintf("field_pg%d_%d", pageNr, index)
	}

	return models.FieldMapping{
		FieldKey:    name,
		PageNumber:  pageNr,
		XCoordinate: box.X,
		YCoordinate: box.Y,
		Width:       models.Float(box.Width),
		Height:      models.Float(box.Height),
		FieldType:   models.FieldTypeText,
	}, true
}

func readRect(ctx *model.Context, annot types.Dict) ([4]float64, bool) {
	var rect [4]float64
	obj, ok := annot.Find("Rect")
	if !ok {
		return rect, false
	}
	arr, err := ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return rect, false
	}
	for i, v := range arr {
		f, err := ctx.DereferenceNumber(v)
		if err != nil {
			return rect, false
		}
		rect[i] = f
	}
	return rect, true
}

// fieldName is the widget's own /T, else the nearest ancestor's.
func fieldName(ctx *model.Context, d types.Dict) string {
	for depth := 0; d != nil && depth < maxParentDepth; depth++ {
		if obj, ok := d.Find("T"); ok {
			if name, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil && name != "" {
				return name
			}
		}
		parent, ok := d.Find("Parent")
		if !ok {
			return ""
		}
		next, err := ctx.DereferenceDict(parent)
		if err != nil {
			return ""
		}
		d = next
	}
	return ""
}
