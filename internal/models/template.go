package models

import (
	"time"

	"gorm.io/gorm"
)

type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeSignature FieldType = "signature"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeCheckbox, FieldTypeSignature:
		return true
	}
	return false
}

// PdfTemplate is an uploaded base document. TenantID is opaque here; who may
// see a template is decided elsewhere.
type PdfTemplate struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Category     string         `gorm:"index" json:"category"`
	TenantID     string         `gorm:"index" json:"tenant_id"`
	StoragePath  string         `gorm:"not null" json:"storage_path"`
	OriginalName string         `json:"original_name"`
	FileSize     int64          `json:"file_size"`
	PageCount    int            `json:"page_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Mappings []FieldMapping `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"mappings,omitempty"`
}

func (PdfTemplate) TableName() string {
	return "pdf_templates"
}

// FieldMapping is one placed field on one template page. Coordinates are page
// units from the top-left corner of the page.
type FieldMapping struct {
	ID           string    `gorm:"primaryKey" json:"id,omitempty"`
	TemplateID   string    `gorm:"not null;index" json:"template_id"`
	FieldKey     string    `gorm:"not null" json:"field_key"`
	PageNumber   int       `gorm:"not null" json:"page_number"`
	XCoordinate  float64   `gorm:"not null" json:"x_coordinate"`
	YCoordinate  float64   `gorm:"not null" json:"y_coordinate"`
	Width        *float64  `json:"width,omitempty"`
	Height       *float64  `json:"height,omitempty"`
	FieldType    FieldType `gorm:"type:varchar(16);default:'text'" json:"field_type"`
	FontSize     *float64  `json:"font_size,omitempty"`
	TriggerValue *string   `json:"trigger_value,omitempty"`
	RequestID    string    `gorm:"index" json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (FieldMapping) TableName() string {
	return "field_mappings"
}

// TypeOrDefault treats an unset type as text.
func (m FieldMapping) TypeOrDefault() FieldType {
	if m.FieldType == "" {
		return FieldTypeText
	}
	return m.FieldType
}

type Bundle struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	TenantID  string         `gorm:"index" json:"tenant_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Items []BundleTemplate `gorm:"foreignKey:BundleID" json:"items,omitempty"`
}

func (Bundle) TableName() string {
	return "bundles"
}

type BundleTemplate struct {
	ID           string `gorm:"primaryKey" json:"id"`
	BundleID     string `gorm:"not null;index" json:"bundle_id"`
	TemplateID   string `gorm:"not null" json:"template_id"`
	DisplayOrder int    `gorm:"not null" json:"display_order"`

	Template PdfTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

func (BundleTemplate) TableName() string {
	return "bundle_templates"
}

// Float and String build the optional pointer fields of a FieldMapping.
func Float(v float64) *float64 { return &v }
func String(v string) *string   { return &v }
