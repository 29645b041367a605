package mappings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"LEX-PDFMAP/internal/models"
)

// GormStore is the production store on the service database.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// createIn inserts m unless its id or request id is already stored. Batch
// members get creation times a millisecond apart so List keeps their order.
func createIn(tx *gorm.DB, m models.FieldMapping, createdAt time.Time) (string, error) {
	var existing models.FieldMapping
	q := tx.Select("id")
	if m.RequestID != "" {
		q = q.Where("id = ? OR request_id = ?", m.ID, m.RequestID)
	} else {
		q = q.Where("id = ?", m.ID)
	}
	err := q.Take(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to check existing mapping: %w", err)
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = createdAt
	m.UpdatedAt = createdAt
	if err := tx.Create(&m).Error; err != nil {
		return "", fmt.Errorf("failed to create mapping: %w", err)
	}
	return m.ID, nil
}

func (s *GormStore) Create(ctx context.Context, templateID string, m models.FieldMapping) (string, error) {
	m = normalize(templateID, m)
	if err := Validate(m); err != nil {
		return "", err
	}
	return createIn(s.db.WithContext(ctx), m, time.Now())
}

func (s *GormStore) CreateBatch(ctx context.Context, templateID string, ms []models.FieldMapping) ([]string, error) {
	prepared := make([]models.FieldMapping, len(ms))
	for i, m := range ms {
		m = normalize(templateID, m)
		if err := Validate(m); err != nil {
			return nil, err
		}
		prepared[i] = m
	}

	ids := make([]string, len(prepared))
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, m := range prepared {
			id, err := createIn(tx, m, now.Add(time.Duration(i)*time.Millisecond))
			if err != nil {
				return err
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) List(ctx context.Context, templateID string) ([]models.FieldMapping, error) {
	var out []models.FieldMapping
	err := s.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("page_number ASC, created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.FieldMapping, error) {
	var m models.FieldMapping
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	return &m, nil
}

func (s *GormStore) Update(ctx context.Context, id string, req UpdateRequest) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := Validate(req.Apply(*current)); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Model(&models.FieldMapping{}).
		Where("id = ?", id).
		Updates(req.columns(time.Now())).Error
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FieldMapping{}).Error; err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteByTemplate(ctx context.Context, templateID string) error {
	if err := s.db.WithContext(ctx).Where("template_id = ?", templateID).Delete(&models.FieldMapping{}).Error; err != nil {
		return fmt.Errorf("failed to delete mappings: %w", err)
	}
	return nil
}
