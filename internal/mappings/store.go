// Package mappings persists field placements. It knows the shape of a
// FieldMapping and its invariants; it knows nothing about rendering.
package mappings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"LEX-PDFMAP/internal/models"
)

var (
	ErrNotFound       = errors.New("mapping not found")
	ErrInvalidMapping = errors.New("invalid mapping")
)

// Store is the CRUD contract every backend implements.
//
// Mutations are safe to retry: a Create whose ID or RequestID already exists
// returns the existing id, a Delete of a missing id succeeds, and Update only
// sets values. Concurrent writers are last-write-wins.
type Store interface {
	Create(ctx context.Context, templateID string, m models.FieldMapping) (string, error)
	// CreateBatch inserts all mappings or none.
	CreateBatch(ctx context.Context, templateID string, ms []models.FieldMapping) ([]string, error)
	List(ctx context.Context, templateID string) ([]models.FieldMapping, error)
	Get(ctx context.Context, id string) (*models.FieldMapping, error)
	Update(ctx context.Context, id string, req UpdateRequest) error
	Delete(ctx context.Context, id string) error
	DeleteByTemplate(ctx context.Context, templateID string) error
}

// Validate checks the invariants that hold without knowing the template. The
// upper page bound is checked by callers that know the page count.
func Validate(m models.FieldMapping) error {
	if m.TemplateID == "" {
		return fmt.Errorf("%w: template_id is required", ErrInvalidMapping)
	}
	if m.FieldKey == "" {
		return fmt.Errorf("%w: field_key is required", ErrInvalidMapping)
	}
	if m.PageNumber < 1 {
		return fmt.Errorf("%w: page_number must be >= 1, got %d", ErrInvalidMapping, m.PageNumber)
	}
	if !finite(m.XCoordinate) || !finite(m.YCoordinate) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidMapping)
	}
	if m.Width != nil && !(*m.Width > 0 && finite(*m.Width)) {
		return fmt.Errorf("%w: width must be > 0", ErrInvalidMapping)
	}
	if m.Height != nil && !(*m.Height > 0 && finite(*m.Height)) {
		return fmt.Errorf("%w: height must be > 0", ErrInvalidMapping)
	}
	if m.FontSize != nil && !(*m.FontSize > 0 && finite(*m.FontSize)) {
		return fmt.Errorf("%w: font_size must be > 0", ErrInvalidMapping)
	}
	if m.FieldType != "" && !m.FieldType.Valid() {
		return fmt.Errorf("%w: unknown field_type %q", ErrInvalidMapping, m.FieldType)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// normalize fills defaults before a mapping is written.
func normalize(templateID string, m models.FieldMapping) models.FieldMapping {
	m.TemplateID = templateID
	if m.FieldType == "" {
		m.FieldType = models.FieldTypeText
	}
	return m
}

// sortMappings orders mappings by page, then creation time, then id.
func sortMappings(ms []models.FieldMapping) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].PageNumber != ms[j].PageNumber {
			return ms[i].PageNumber < ms[j].PageNumber
		}
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}
