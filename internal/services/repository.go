package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"LEX-PDFMAP/internal/models"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrBundleNotFound   = errors.New("bundle not found")
	ErrPageOutOfRange   = errors.New("page out of range")
)

type TemplateFilter struct {
	TenantID string
	Category string
}

// TemplateRepository persists template metadata. The bytes live in a
// storage.Blob under StoragePath.
type TemplateRepository interface {
	Create(ctx context.Context, t *models.PdfTemplate) error
	Get(ctx context.Context, id string) (*models.PdfTemplate, error)
	List(ctx context.Context, filter TemplateFilter) ([]models.PdfTemplate, error)
	Delete(ctx context.Context, id string) error
}

// BundleRepository returns bundles with their items in display order.
type BundleRepository interface {
	Get(ctx context.Context, id string) (*models.Bundle, error)
}

type RunFilter struct {
	Kind       string
	Status     string
	TemplateID string
}

type RunRepository interface {
	Create(ctx context.Context, run *models.FillRun) error
	List(ctx context.Context, filter RunFilter, limit, offset int) ([]models.FillRun, int64, error)
}

type GormTemplates struct{ db *gorm.DB }

func NewGormTemplates(db *gorm.DB) *GormTemplates { return &GormTemplates{db: db} }

func (r *GormTemplates) Create(ctx context.Context, t *models.PdfTemplate) error {
	if err := r.db.WithContext(ctx).Omit("Mappings").Create(t).Error; err != nil {
		return fmt.Errorf("failed to save template metadata: %w", err)
	}
	return nil
}

func (r *GormTemplates) Get(ctx context.Context, id string) (*models.PdfTemplate, error) {
	var t models.PdfTemplate
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return &t, nil
}

func (r *GormTemplates) List(ctx context.Context, filter TemplateFilter) ([]models.PdfTemplate, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var templates []models.PdfTemplate
	if err := query.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// Delete soft-deletes the template row.
func (r *GormTemplates) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.PdfTemplate{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return nil
}

type GormBundles struct{ db *gorm.DB }

func NewGormBundles(db *gorm.DB) *GormBundles { return &GormBundles{db: db} }

func (r *GormBundles) Get(ctx context.Context, id string) (*models.Bundle, error) {
	var b models.Bundle
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, id ASC")
		}).
		First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}
	return &b, nil
}

type GormRuns struct{ db *gorm.DB }

func NewGormRuns(db *gorm.DB) *GormRuns { return &GormRuns{db: db} }

func (r *GormRuns) Create(ctx context.Context, run *models.FillRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *GormRuns) List(ctx context.Context, filter RunFilter, limit, offset int) ([]models.FillRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FillRun{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", strings.ToLower(filter.Kind))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", strings.ToLower(filter.Status))
	}
	if filter.TemplateID != "" {
		query = query.Where("template_id = ?", filter.TemplateID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var runs []models.FillRun
	if err := query.Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch runs: %w", err)
	}
	return runs, total, nil
}
