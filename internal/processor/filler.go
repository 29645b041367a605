package processor

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"LEX-PDFMAP/internal/catalog"
	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/models"
)

const (
	DefaultDateLayout = "02/01/2006"
	DefaultFontSize   = 10.0
	MinFontSize       = 6.0

	checkboxFontSize = 12.0
	checkboxInset    = 2.0
	signatureWidth   = 180.0
	signatureHeight  = 50.0
	signaturePadding = 4.0
	signatureStatus  = 8.0
	signatureName    = 10.0
)

// affirmative values check a box whose trigger is unset or "true".
var affirmative = map[string]bool{
	"true": true,
	"si":   true,
	"sí":   true,
	"yes":  true,
}

type FillConfig struct {
	DateLayout      string
	DefaultFontSize float64
	MinFontSize     float64
	Measurer        Measurer
	Now             func() time.Time
	// Debug logs mappings that resolve to no value.
	Debug bool
}

// FillEngine stamps profile values onto a template. It holds no mutable
// state and is safe for concurrent use.
type FillEngine struct {
	cfg FillConfig
}

func NewFillEngine(cfg FillConfig) *FillEngine {
	if cfg.DateLayout == "" {
		cfg.DateLayout = DefaultDateLayout
	}
	if cfg.DefaultFontSize <= 0 {
		cfg.DefaultFontSize = DefaultFontSize
	}
	if cfg.MinFontSize <= 0 {
		cfg.MinFontSize = MinFontSize
	}
	if cfg.Measurer == nil {
		cfg.Measurer = Helvetica{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &FillEngine{cfg: cfg}
}

// Plan returns the marks Fill would draw, in mapping order.
func (e *FillEngine) Plan(template []byte, mappings []models.FieldMapping, subject, org Profile) ([]Mark, error) {
	ctx, err := load(template)
	if err != nil {
		return nil, err
	}
	return e.plan(pages(ctx), mappings, subject, org), nil
}

// Fill draws every mapping onto a copy of template and returns the new
// document. template itself is never modified.
func (e *FillEngine) Fill(template []byte, mappings []models.FieldMapping, subject, org Profile) ([]byte, error) {
	ctx, err := load(template)
	if err != nil {
		return nil, err
	}

	marks := e.plan(pages(ctx), mappings, subject, org)
	if len(marks) > 0 {
		o, err := newOverlay(ctx)
		if err != nil {
			return nil, err
		}
		for _, pageNr := range touchedPages(marks) {
			if err := o.draw(pageNr, marksOn(marks, pageNr)); err != nil {
				return nil, err
			}
		}
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to write filled document: %w", err)
	}
	return out.Bytes(), nil
}

func touchedPages(marks []Mark) []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range marks {
		if !seen[m.Page] {
			seen[m.Page] = true
			out = append(out, m.Page)
		}
	}
	return out
}

func marksOn(marks []Mark, pageNr int) []Mark {
	var out []Mark
	for _, m := range marks {
		if m.Page == pageNr {
			out = append(out, m)
		}
	}
	return out
}

func (e *FillEngine) plan(pages []geometry.Page, mappings []models.FieldMapping, subject, org Profile) []Mark {
	var marks []Mark
	for _, m := range mappings {
		if m.PageNumber < 1 || m.PageNumber > len(pages) {
			if !e.cfg.Debug {
				continue
			}
			log.Printf("[fill] skipping %s: page %d outside 1..%d", m.FieldKey, m.PageNumber, len(pages))
			continue
		}
		page := pages[m.PageNumber-1]

		switch m.TypeOrDefault() {
		case models.FieldTypeCheckbox:
			marks = append(marks, e.checkbox(page, m, subject, org)...)
		case models.FieldTypeSignature:
			marks = append(marks, e.signature(page, m, subject)...)
		default:
			marks = append(marks, e.text(page, m, subject, org)...)
		}
	}
	return marks
}

// value resolves a mapping's field key against the three namespaces.
func (e *FillEngine) value(fieldKey string, subject, org Profile) string {
	var v string
	switch r := catalog.Resolve(fieldKey); r.Source {
	case catalog.SourceToday:
		return e.cfg.Now().Format(e.cfg.DateLayout)
	case catalog.SourceOrganization:
		v = org.Lookup(r.Key)
	default:
		v = subject.Lookup(r.Key)
	}
	if v == "" && e.cfg.Debug {
		log.Printf("[fill] no value for %s", fieldKey)
	}
	return v
}

func (e *FillEngine) text(page geometry.Page, m models.FieldMapping, subject, org Profile) []Mark {
	if catalog.IsLogo(m.FieldKey) {
		return nil
	}
	value := e.value(m.FieldKey, subject, org)
	if value == "" {
		return nil
	}
	field := catalog.LookupOrText(m.FieldKey)
	if field.Class == catalog.ClassDate {
		value = formatDate(value, e.cfg.DateLayout)
	}

	size := e.cfg.DefaultFontSize
	switch {
	case m.FontSize != nil:
		size = *m.FontSize
	case field.DefaultFontSize > 0:
		size = field.DefaultFontSize
	}
	if m.Width != nil {
		size = FitFontSize(e.cfg.Measurer, value, size, *m.Width, e.cfg.MinFontSize)
	}

	return []Mark{{
		MappingID: m.ID,
		FieldKey:  m.FieldKey,
		Page:      m.PageNumber,
		Kind:      MarkText,
		Text:      value,
		X:         page.DrawX(m.XCoordinate),
		Y:         page.DrawY(m.YCoordinate) - size,
		FontSize:  size,
	}}
}

// Checked reports whether a checkbox with the given trigger is ticked by
// value. Comparison ignores case and surrounding space.
func Checked(value string, trigger *string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	if trigger == nil {
		return affirmative[v]
	}
	t := strings.ToLower(strings.TrimSpace(*trigger))
	if t == "" || t == "true" {
		return affirmative[v]
	}
	return v == t
}

func (e *FillEngine) checkbox(page geometry.Page, m models.FieldMapping, subject, org Profile) []Mark {
	if !Checked(e.value(m.FieldKey, subject, org), m.TriggerValue) {
		return nil
	}
	size := checkboxFontSize
	if m.FontSize != nil {
		size = *m.FontSize
	}
	return []Mark{{
		MappingID: m.ID,
		FieldKey:  m.FieldKey,
		Page:      m.PageNumber,
		Kind:      MarkCheck,
		Text:      "X",
		X:         page.DrawX(m.XCoordinate) + checkboxInset,
		Y:         page.DrawY(m.YCoordinate) - size,
		FontSize:  size,
	}}
}

func (e *FillEngine) signature(page geometry.Page, m models.FieldMapping, subject Profile) []Mark {
	width, height := signatureWidth, signatureHeight
	if m.Width != nil {
		width = *m.Width
	}
	if m.Height != nil {
		height = *m.Height
	}
	x := page.DrawX(m.XCoordinate)
	top := page.DrawY(m.YCoordinate)

	status := "Pending signature"
	signedAt := subject.Lookup("signed_at")
	if signedAt == "" {
		signedAt = subject.Lookup("signature_date")
	}
	if signedAt != "" {
		status = "Signed on " + formatDate(signedAt, e.cfg.DateLayout)
	}

	marks := []Mark{
		{
			MappingID: m.ID, FieldKey: m.FieldKey, Page: m.PageNumber, Kind: MarkSignatureBox,
			X: x, Y: top - height, Width: width, Height: height,
		},
		{
			MappingID: m.ID, FieldKey: m.FieldKey, Page: m.PageNumber, Kind: MarkText,
			Text: status, X: x + signaturePadding, Y: top - signaturePadding - signatureStatus,
			FontSize: signatureStatus,
		},
	}

	if name := subject.FullName(); name != "" {
		size := FitFontSize(e.cfg.Measurer, name, signatureName, width-2*signaturePadding, e.cfg.MinFontSize)
		marks = append(marks, Mark{
			MappingID: m.ID, FieldKey: m.FieldKey, Page: m.PageNumber, Kind: MarkText,
			Text: name, X: x + signaturePadding, Y: top - height + signaturePadding + 2,
			FontSize: size,
		})
	}
	return marks
}
