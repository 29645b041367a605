package editor

import (
	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/models"
)

// FieldView is a mapping on the visible page, with its box in screen pixels.
type FieldView struct {
	Mapping  models.FieldMapping `json:"mapping"`
	Screen   geometry.Rect       `json:"screen"`
	Selected bool                `json:"selected"`
}

// View is a snapshot of what the editor would render.
type View struct {
	TemplateID string          `json:"template_id"`
	Mode       Mode            `json:"mode"`
	Page       int             `json:"page"`
	Scale      float64         `json:"scale"`
	SelectedID string          `json:"selected_id,omitempty"`
	Anchor     *geometry.Point `json:"anchor,omitempty"`
	Status     SyncStatus      `json:"status"`
	Pending    int             `json:"pending"`
	Fields     []FieldView     `json:"fields"`
}

func (e *Editor) View() View {
	v := View{
		TemplateID: e.templateID,
		Mode:       e.mode,
		Page:       e.page,
		Scale:      float64(e.scale),
		SelectedID: e.selected,
		Status:     e.status,
		Pending:    e.queue.Pending(),
		Fields:     make([]FieldView, 0),
	}
	if e.mode == ModePlacing {
		anchor := e.anchor
		v.Anchor = &anchor
	}
	for _, m := range e.mappings {
		if m.PageNumber != e.page {
			continue
		}
		v.Fields = append(v.Fields, FieldView{
			Mapping:  m,
			Screen:   geometry.RectToScreen(Box(m), e.scale),
			Selected: m.ID == e.selected,
		})
	}
	return v
}
