// Package catalog is the fixed registry of semantic field keys an operator can
// place on a template, and the rules that decide where a key's value comes
// from at fill time.
package catalog

import (
	"strings"

	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/models"
)

type RenderClass string

const (
	ClassText      RenderClass = "text"
	ClassDate      RenderClass = "date"
	ClassCheckbox  RenderClass = "checkbox"
	ClassSignature RenderClass = "signature"
	ClassImage     RenderClass = "image"
)

const (
	TodayKey   = "today_date"
	OrgPrefix  = "org_"
	OrgLogoKey = "org_logo"
)

type Field struct {
	Key             string      `json:"key"`
	Label           string      `json:"label"`
	Group           string      `json:"group"`
	Class           RenderClass `json:"render_class"`
	DefaultFontSize float64     `json:"default_font_size,omitempty"`
}

// FieldType is the mapping type a freshly placed field of this class gets.
func (f Field) FieldType() models.FieldType {
	switch f.Class {
	case ClassCheckbox:
		return models.FieldTypeCheckbox
	case ClassSignature:
		return models.FieldTypeSignature
	default:
		return models.FieldTypeText
	}
}

// DefaultBox is the size of a freshly placed field, in page units.
func (f Field) DefaultBox() geometry.Rect {
	switch f.Class {
	case ClassCheckbox:
		return geometry.Rect{Width: 12, Height: 12}
	case ClassSignature:
		return geometry.Rect{Width: 180, Height: 50}
	case ClassDate:
		return geometry.Rect{Width: 80, Height: 14}
	default:
		return geometry.Rect{Width: 150, Height: 14}
	}
}

var fields = []Field{
	// identity
	{Key: "first_name", Label: "First name", Group: "identity", Class: ClassText},
	{Key: "last_name", Label: "Last name", Group: "identity", Class: ClassText},
	{Key: "full_name", Label: "Full name", Group: "identity", Class: ClassText},
	{Key: "document_type", Label: "ID document type", Group: "identity", Class: ClassText},
	{Key: "document_number", Label: "ID document number", Group: "identity", Class: ClassText},
	{Key: "nationality", Label: "Nationality", Group: "identity", Class: ClassText},
	{Key: "birth_date", Label: "Date of birth", Group: "identity", Class: ClassDate},
	{Key: "birth_place", Label: "Place of birth", Group: "identity", Class: ClassText},
	{Key: "gender", Label: "Gender", Group: "identity", Class: ClassText},
	{Key: "marital_status", Label: "Marital status", Group: "identity", Class: ClassText},
	{Key: "profession", Label: "Profession", Group: "identity", Class: ClassText},

	// address
	{Key: "address", Label: "Street address", Group: "address", Class: ClassText, DefaultFontSize: 9},
	{Key: "city", Label: "City", Group: "address", Class: ClassText},
	{Key: "province", Label: "Province", Group: "address", Class: ClassText},
	{Key: "postal_code", Label: "Postal code", Group: "address", Class: ClassText},
	{Key: "country", Label: "Country", Group: "address", Class: ClassText},

	// filiation
	{Key: "father_name", Label: "Father's name", Group: "filiation", Class: ClassText},
	{Key: "mother_name", Label: "Mother's name", Group: "filiation", Class: ClassText},

	// contact
	{Key: "phone", Label: "Phone", Group: "contact", Class: ClassText},
	{Key: "email", Label: "Email", Group: "contact", Class: ClassText, DefaultFontSize: 9},

	// representative
	{Key: "representative_name", Label: "Representative name", Group: "representative", Class: ClassText},
	{Key: "representative_document", Label: "Representative ID", Group: "representative", Class: ClassText},
	{Key: "representative_role", Label: "Representative capacity", Group: "representative", Class: ClassText},

	// dates
	{Key: TodayKey, Label: "Today's date", Group: "dates", Class: ClassDate},
	{Key: "entry_date", Label: "Entry date", Group: "dates", Class: ClassDate},
	{Key: "expiry_date", Label: "Expiry date", Group: "dates", Class: ClassDate},

	// flags
	{Key: "is_married", Label: "Married", Group: "flags", Class: ClassCheckbox},
	{Key: "has_children", Label: "Has children", Group: "flags", Class: ClassCheckbox},
	{Key: "has_representative", Label: "Acts through representative", Group: "flags", Class: ClassCheckbox},
	{Key: "gender_male", Label: "Gender: male", Group: "flags", Class: ClassCheckbox},
	{Key: "gender_female", Label: "Gender: female", Group: "flags", Class: ClassCheckbox},

	// signature
	{Key: "signature", Label: "Signature", Group: "signature", Class: ClassSignature},

	// organization
	{Key: "org_name", Label: "Organization name", Group: "organization", Class: ClassText},
	{Key: "org_address", Label: "Organization address", Group: "organization", Class: ClassText, DefaultFontSize: 9},
	{Key: "org_phone", Label: "Organization phone", Group: "organization", Class: ClassText},
	{Key: "org_email", Label: "Organization email", Group: "organization", Class: ClassText, DefaultFontSize: 9},
	{Key: OrgLogoKey, Label: "Organization logo", Group: "organization", Class: ClassImage},
}

var byKey = func() map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Key] = f
	}
	return m
}()

// All returns the catalog in display order.
func All() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

func Lookup(key string) (Field, bool) {
	f, ok := byKey[key]
	return f, ok
}

// LookupOrText returns the catalog entry for key, or a free-text entry for
// keys the catalog does not know (auto-detected widget names).
func LookupOrText(key string) Field {
	if f, ok := byKey[key]; ok {
		return f
	}
	return Field{Key: key, Label: key, Group: "custom", Class: ClassText}
}

// Groups returns the group names in first-appearance order.
func Groups() []string {
	var groups []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if !seen[f.Group] {
			seen[f.Group] = true
			groups = append(groups, f.Group)
		}
	}
	return groups
}

func IsLogo(key string) bool {
	return key == OrgLogoKey
}

// Source is the namespace a field value is read from.
type Source int

const (
	SourceSubject Source = iota
	SourceOrganization
	SourceToday
)

func (s Source) String() string {
	switch s {
	case SourceOrganization:
		return "organization"
	case SourceToday:
		return "today"
	default:
		return "subject"
	}
}

// Resolution says where one field key's value lives. Key is the lookup key
// inside that namespace and is empty for SourceToday.
type Resolution struct {
	Source Source
	Key    string
}

// Resolve classifies a field key once; the fill engine dispatches on the
// result instead of inspecting the key again.
func Resolve(fieldKey string) Resolution {
	switch {
	case fieldKey == TodayKey:
		return Resolution{Source: SourceToday}
	case strings.HasPrefix(fieldKey, OrgPrefix):
		return Resolution{Source: SourceOrganization, Key: strings.TrimPrefix(fieldKey, OrgPrefix)}
	default:
		return Resolution{Source: SourceSubject, Key: fieldKey}
	}
}
