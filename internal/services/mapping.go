package services

import (
	"context"
	"fmt"

	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
)

// MappingService is the mapping CRUD surface. On top of the store's own
// checks it bounds page numbers by the template's page count.
type MappingService struct {
	templates TemplateRepository
	store     mappings.Store
}

func NewMappingService(templates TemplateRepository, store mappings.Store) *MappingService {
	return &MappingService{templates: templates, store: store}
}

func (s *MappingService) Store() mappings.Store { return s.store }

func checkPage(t *models.PdfTemplate, page int) error {
	if page < 1 || (t.PageCount > 0 && page > t.PageCount) {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, t.PageCount)
	}
	return nil
}

func (s *MappingService) List(ctx context.Context, templateID string) ([]models.FieldMapping, error) {
	if _, err := s.templates.Get(ctx, templateID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, templateID)
}

func (s *MappingService) Create(ctx context.Context, templateID string, m models.FieldMapping) (*models.FieldMapping, error) {
	t, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := checkPage(t, m.PageNumber); err != nil {
		return nil, err
	}
	id, err := s.store.Create(ctx, templateID, m)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *MappingService) Update(ctx context.Context, id string, req mappings.UpdateRequest) (*models.FieldMapping, error) {
	if req.PageNumber.Present {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		t, err := s.templates.Get(ctx, current.TemplateID)
		if err != nil {
			return nil, err
		}
		if err := checkPage(t, req.PageNumber.Value); err != nil {
			return nil, err
		}
	}
	if err := s.store.Update(ctx, id, req); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *MappingService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
