package mappings

import (
	"bytes"
	"encoding/json"
	"time"

	"LEX-PDFMAP/internal/models"
)

// Patch is one field of an UpdateRequest. Present=false leaves the stored
// value alone; Present=true sets it to Value, which may be nil for the
// nullable columns.
type Patch[T any] struct {
	Present bool
	Value   T
}

// Set builds a present patch.
func Set[T any](v T) Patch[T] {
	return Patch[T]{Present: true, Value: v}
}

// UnmarshalJSON only runs for keys that appear in the document, so a
// decoded Patch is always present. A JSON null yields the zero Value.
func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	p.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		p.Value = zero
		return nil
	}
	return json.Unmarshal(data, &p.Value)
}

// UpdateRequest is a partial update of a mapping. Width, Height, FontSize and
// TriggerValue distinguish "leave alone" from "clear".
type UpdateRequest struct {
	FieldKey     Patch[string]           `json:"field_key"`
	PageNumber   Patch[int]              `json:"page_number"`
	XCoordinate  Patch[float64]          `json:"x_coordinate"`
	YCoordinate  Patch[float64]          `json:"y_coordinate"`
	Width        Patch[*float64]         `json:"width"`
	Height       Patch[*float64]         `json:"height"`
	FieldType    Patch[models.FieldType] `json:"field_type"`
	FontSize     Patch[*float64]         `json:"font_size"`
	TriggerValue Patch[*string]          `json:"trigger_value"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateRequest) IsEmpty() bool {
	return !r.FieldKey.Present && !r.PageNumber.Present &&
		!r.XCoordinate.Present && !r.YCoordinate.Present &&
		!r.Width.Present && !r.Height.Present &&
		!r.FieldType.Present && !r.FontSize.Present && !r.TriggerValue.Present
}

// Apply returns m with every present field overwritten.
func (r UpdateRequest) Apply(m models.FieldMapping) models.FieldMapping {
	if r.FieldKey.Present {
		m.FieldKey = r.FieldKey.Value
	}
	if r.PageNumber.Present {
		m.PageNumber = r.PageNumber.Value
	}
	if r.XCoordinate.Present {
		m.XCoordinate = r.XCoordinate.Value
	}
	if r.YCoordinate.Present {
		m.YCoordinate = r.YCoordinate.Value
	}
	if r.Width.Present {
		m.Width = copyFloat(r.Width.Value)
	}
	if r.Height.Present {
		m.Height = copyFloat(r.Height.Value)
	}
	if r.FieldType.Present {
		m.FieldType = r.FieldType.Value
	}
	if r.FontSize.Present {
		m.FontSize = copyFloat(r.FontSize.Value)
	}
	if r.TriggerValue.Present {
		if r.TriggerValue.Value == nil {
			m.TriggerValue = nil
		} else {
			m.TriggerValue = models.String(*r.TriggerValue.Value)
		}
	}
	return m
}

// columns returns the present fields as column -> value, for the SQL
// backends. Cleared nullable fields map to nil.
func (r UpdateRequest) columns(now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if r.FieldKey.Present {
		cols["field_key"] = r.FieldKey.Value
	}
	if r.PageNumber.Present {
		cols["page_number"] = r.PageNumber.Value
	}
	if r.XCoordinate.Present {
		cols["x_coordinate"] = r.XCoordinate.Value
	}
	if r.YCoordinate.Present {
		cols["y_coordinate"] = r.YCoordinate.Value
	}
	if r.Width.Present {
		cols["width"] = nullable(r.Width.Value)
	}
	if r.Height.Present {
		cols["height"] = nullable(r.Height.Value)
	}
	if r.FieldType.Present {
		cols["field_type"] = string(r.FieldType.Value)
	}
	if r.FontSize.Present {
		cols["font_size"] = nullable(r.FontSize.Value)
	}
	if r.TriggerValue.Present {
		if r.TriggerValue.Value == nil {
			cols["trigger_value"] = nil
		} else {
			cols["trigger_value"] = *r.TriggerValue.Value
		}
	}
	return cols
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return models.Float(*f)
}

func nullable(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
