package processor

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

type MarkKind string

const (
	MarkText         MarkKind = "text"
	MarkCheck        MarkKind = "check"
	MarkSignatureBox MarkKind = "signature_box"
)

// Mark is one drawing operation in PDF user space. For text marks X,Y is the
// baseline origin; for boxes it is the lower-left corner.
type Mark struct {
	MappingID string   `json:"mapping_id,omitempty"`
	FieldKey  string   `json:"field_key"`
	Page      int      `json:"page"`
	Kind      MarkKind `json:"kind"`
	Text      string   `json:"text,omitempty"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	FontSize  float64  `json:"font_size,omitempty"`
	Width     float64  `json:"width,omitempty"`
	Height    float64  `json:"height,omitempty"`
}

const (
	fontResource  = "LexHelv"
	stateResource = "LexGS"

	strokeOpacity = 0.6
	fillOpacity   = 0.15
)

// num prints a coordinate with at most two decimals.
func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// literal encodes text as a PDF string literal in WinAnsi, with bytes outside
// ASCII written as octal escapes.
func literal(text string) string {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, c := range winAnsi(text) {
		switch {
		case c == '\\' || c == '(' || c == ')':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
	return b.String()
}

// contentFor renders the marks of one page as content stream operators.
func contentFor(marks []Mark, fontName, stateName string) []byte {
	var b bytes.Buffer
	for _, m := range marks {
		switch m.Kind {
		case MarkText, MarkCheck:
			fmt.Fprintf(&b, "BT 0 g /%s %s Tf %s %s Td %s Tj ET\n",
				fontName, num(m.FontSize), num(m.X), num(m.Y), literal(m.Text))
		case MarkSignatureBox:
			fmt.Fprintf(&b, "q /%s gs 0.2 0.3 0.6 RG 0.85 0.9 1 rg 1 w [3 2] 0 d %s %s %s %s re B Q\n",
				stateName, num(m.X), num(m.Y), num(m.Width), num(m.Height))
		}
	}
	return b.Bytes()
}

// overlay appends drawing operators to pages of a loaded document. Page
// content is wrapped in q/Q so the overlay starts from a clean graphics state.
type overlay struct {
	ctx     *model.Context
	fontRef *types.IndirectRef
	gsRef   *types.IndirectRef
}

func newOverlay(ctx *model.Context) (*overlay, error) {
	fontDict := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(baseFont),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	fontRef, err := ctx.IndRefForNewObject(fontDict)
	if err != nil {
		return nil, fmt.Errorf("failed to add font: %w", err)
	}

	gsDict := types.Dict{
		"Type": types.Name("ExtGState"),
		"CA":   types.Float(strokeOpacity),
		"ca":   types.Float(fillOpacity),
	}
	gsRef, err := ctx.IndRefForNewObject(gsDict)
	if err != nil {
		return nil, fmt.Errorf("failed to add graphics state: %w", err)
	}

	return &overlay{ctx: ctx, fontRef: fontRef, gsRef: gsRef}, nil
}

func (o *overlay) newStream(content []byte) (*types.IndirectRef, error) {
	sd := types.StreamDict{Dict: types.NewDict(), Content: content}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return o.ctx.IndRefForNewObject(sd)
}

// draw adds marks to page pageNr.
func (o *overlay) draw(pageNr int, marks []Mark) error {
	pageDict, _, _, err := o.ctx.PageDict(pageNr, false)
	if err != nil {
		return fmt.Errorf("failed to read page %d: %w", pageNr, err)
	}

	fontName, stateName, err := o.addResources(pageDict)
	if err != nil {
		return fmt.Errorf("failed to update resources of page %d: %w", pageNr, err)
	}

	open, err := o.newStream([]byte("q\n"))
	if err != nil {
		return err
	}
	closing := append([]byte("Q\n"), contentFor(marks, fontName, stateName)...)
	ops, err := o.newStream(closing)
	if err != nil {
		return err
	}

	contents := types.Array{*open}
	existing, err := o.existingContents(pageDict)
	if err != nil {
		return fmt.Errorf("failed to read contents of page %d: %w", pageNr, err)
	}
	contents = append(contents, existing...)
	contents = append(contents, *ops)
	pageDict["Contents"] = contents
	return nil
}

// existingContents flattens /Contents into a list of stream references.
func (o *overlay) existingContents(pageDict types.Dict) (types.Array, error) {
	obj, ok := pageDict.Find("Contents")
	if !ok || obj == nil {
		return nil, nil
	}
	var ref types.IndirectRef
	switch v := obj.(type) {
	case types.Array:
		return v, nil
	case types.IndirectRef:
		ref = v
	case *types.IndirectRef:
		ref = *v
	default:
		return nil, fmt.Errorf("unexpected Contents type %T", obj)
	}

	target, err := o.ctx.Dereference(ref)
	if err != nil {
		return nil, err
	}
	if arr, isArr := target.(types.Array); isArr {
		return arr, nil
	}
	return types.Array{ref}, nil
}

// inheritedResources finds /Resources on the nearest page tree ancestor.
func (o *overlay) inheritedResources(pageDict types.Dict) types.Dict {
	d := pageDict
	for depth := 0; depth < maxParentDepth; depth++ {
		parent, ok := d.Find("Parent")
		if !ok {
			return nil
		}
		next, err := o.ctx.DereferenceDict(parent)
		if err != nil || next == nil {
			return nil
		}
		if obj, ok := next.Find("Resources"); ok {
			res, err := o.ctx.DereferenceDict(obj)
			if err == nil {
				return res
			}
		}
		d = next
	}
	return nil
}

// addResources registers the overlay font and graphics state on the page
// under names the page does not already use. A page without its own
// resources gets a copy of the inherited ones.
func (o *overlay) addResources(pageDict types.Dict) (string, string, error) {
	var res types.Dict
	if obj, ok := pageDict.Find("Resources"); ok {
		d, err := o.ctx.DereferenceDict(obj)
		if err != nil {
			return "", "", err
		}
		res = d
	}
	if res == nil {
		res = types.NewDict()
		for k, v := range o.inheritedResources(pageDict) {
			res[k] = v
		}
		pageDict["Resources"] = res
	}

	fonts, err := o.subDict(res, "Font")
	if err != nil {
		return "", "", err
	}
	states, err := o.subDict(res, "ExtGState")
	if err != nil {
		return "", "", err
	}

	fontName := freeName(fonts, fontResource)
	fonts[fontName] = *o.fontRef
	stateName := freeName(states, stateResource)
	states[stateName] = *o.gsRef

	res["Font"] = fonts
	res["ExtGState"] = states
	return fontName, stateName, nil
}

// subDict returns a direct copy of res[key] so shared dictionaries are not
// modified.
func (o *overlay) subDict(res types.Dict, key string) (types.Dict, error) {
	out := types.NewDict()
	obj, ok := res.Find(key)
	if !ok || obj == nil {
		return out, nil
	}
	d, err := o.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, err
	}
	for k, v := range d {
		out[k] = v
	}
	return out, nil
}

func freeName(d types.Dict, base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := d[name]; !taken {
			return name
		}
		name = base + strconv.Itoa(i)
	}
}
